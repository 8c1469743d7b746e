package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/bilgisen/studio/internal/logger"
	"github.com/bilgisen/studio/internal/media"
	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// NewValidator creates a validator with the content tags registered:
// slug (lowercase words joined by hyphens) and localized (a non-empty
// default-language entry).
func NewValidator() *Validator {
	v := validator.New()

	// Report json field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("localized", func(fl validator.FieldLevel) bool {
		l, ok := fl.Field().Interface().(models.Localized)
		return ok && strings.TrimSpace(l[models.DefaultLanguage]) != ""
	})

	return &Validator{validate: v}
}

// DefaultValidator is shared by the handlers.
func DefaultValidator() *Validator {
	defaultOnce.Do(func() { defaultValidator = NewValidator() })
	return defaultValidator
}

// Validate validates the request body against the provided struct
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// ValidationError carries per-field failures and renders as 422.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// BindJSON decodes the request body into dst and validates it.
func BindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return DefaultValidator().Check(dst)
}

// Check validates s and converts failures into a *ValidationError.
func (v *Validator) Check(s interface{}) error {
	err := v.Validate(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var fe *fiber.Error
	var ve *ValidationError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve), errors.Is(err, storage.ErrInvalid):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, storage.ErrAuth), errors.Is(err, storage.ErrTransport):
		return fiber.StatusBadGateway
	case errors.Is(err, media.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, media.ErrUnsupportedType):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, media.ErrInvalidKey):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is a middleware that handles errors in a consistent way
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)

	event := logger.Get().Warn()
	if code >= fiber.StatusInternalServerError {
		event = logger.Get().Error()
	}
	event.
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	body := fiber.Map{"error": http.StatusText(code)}

	var ve *ValidationError
	var fe *fiber.Error
	switch {
	case errors.As(err, &ve):
		body["error"] = "Validation failed"
		body["fields"] = ve.Fields
	case errors.As(err, &fe):
		body["error"] = fe.Message
	case code == fiber.StatusConflict:
		body["error"] = "The document was changed by someone else. Reload and try again."
	case code < fiber.StatusInternalServerError:
		body["error"] = err.Error()
	}

	return c.Status(code).JSON(body)
}
