// Package validate runs the struct tags on inbound request payloads and folds
// failures into the store error taxonomy.
package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/JunreyOngcol081523/KusinaPOS-sub000/internal/store"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Struct checks the `validate` tags on req. Tag failures come back wrapped in
// store.ErrValidation so callers can classify them with errors.Is.
func Struct(req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return err
	}
	return fmt.Errorf("%w: %s", store.ErrValidation, err.Error())
}
