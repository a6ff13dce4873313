package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// ReasonMissingField marks a body rejected because a required field was absent.
const ReasonMissingField pkgerrors.Reason = "MISSING_FIELD"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// maxBodyBytes bounds every JSON payload this API accepts.
const maxBodyBytes = 1 << 20

// DecodeJSONBody decodes exactly one JSON object into dest and validates it.
func DecodeJSONBody(r *http.Request, dest any) error {
	return decodeBody(r, dest, false)
}

// DecodeOptionalJSONBody behaves like DecodeJSONBody but accepts an empty body.
func DecodeOptionalJSONBody(r *http.Request, dest any) error {
	return decodeBody(r, dest, true)
}

func decodeBody(r *http.Request, dest any, allowEmpty bool) error {
	if r.Body != nil && r.Body != http.NoBody {
		body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		defer io.Copy(io.Discard, body)

		decoder := json.NewDecoder(body)
		decoder.DisallowUnknownFields()
		err := decoder.Decode(dest)
		switch {
		case errors.Is(err, io.EOF) && allowEmpty:
		case err != nil:
			return invalidBody(err)
		case decoder.More():
			return invalidBody(errors.New("body must contain a single JSON object"))
		}
	} else if !allowEmpty {
		return invalidBody(io.EOF)
	}

	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func invalidBody(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
			WithDetails(map[string]any{"limit_bytes": tooLarge.Limit})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		missing := false
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
			missing = missing || fieldErr.Tag() == "required"
		}
		out := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
		if missing {
			out = out.WithReason(ReasonMissingField)
		}
		return out
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	}
	return "is invalid"
}
