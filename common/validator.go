package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// maxBodyBytes bounds request bodies; credentials never come close.
const maxBodyBytes = 1 << 16

// ValidateAndDecode decodes the JSON body into payload and runs the struct's
// validate tags against it. Fields the payload does not declare are ignored.
func ValidateAndDecode(w http.ResponseWriter, r *http.Request, payload interface{}) *AppError {
	if r.Body == nil {
		return NewAppError(http.StatusBadRequest, "Request body is required", nil)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(payload); err != nil {
		return NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	if err := validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewAppError(http.StatusBadRequest, validationErrors.Error(), nil)
		}
		return NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	return nil
}
