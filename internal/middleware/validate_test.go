package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bilgisen/studio/internal/media"
	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	wrapped := func(kind error) error {
		return fmt.Errorf("create project: %w", &storage.Error{Op: "put", Path: "data/projects.json", Kind: kind})
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", wrapped(storage.ErrNotFound), http.StatusNotFound},
		{"conflict", wrapped(storage.ErrConflict), http.StatusConflict},
		{"auth", wrapped(storage.ErrAuth), http.StatusBadGateway},
		{"transport", wrapped(storage.ErrTransport), http.StatusBadGateway},
		{"invalid record", wrapped(storage.ErrInvalid), http.StatusUnprocessableEntity},
		{"validation", &ValidationError{Fields: map[string]string{"slug": "slug"}}, http.StatusUnprocessableEntity},
		{"fiber", fiber.NewError(http.StatusBadRequest, "bad"), http.StatusBadRequest},
		{"too large", media.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"unsupported", fmt.Errorf("%w: text/plain", media.ErrUnsupportedType), http.StatusUnsupportedMediaType},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorHandlerBodies(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return &storage.Error{Op: "put", Path: "data/blog.json", Kind: storage.ErrConflict}
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return errors.New("secret detail")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/conflict", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "Reload and try again")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "secret detail")
}

func TestCustomTags(t *testing.T) {
	v := NewValidator()

	valid := models.ProjectInput{
		Title:  models.Localized{"tr": "Loft"},
		Slug:   "modern-loft-2",
		Status: models.ProjectDraft,
	}
	assert.NoError(t, v.Check(&valid))

	for _, slug := range []string{"Modern", "two  words", "-edge", "edge-", "a--b"} {
		in := valid
		in.Slug = slug
		var ve *ValidationError
		require.ErrorAs(t, v.Check(&in), &ve, slug)
		assert.Equal(t, "slug", ve.Fields["slug"], slug)
	}

	in := valid
	in.Title = models.Localized{"en": "Loft", "tr": "  "}
	var ve *ValidationError
	require.ErrorAs(t, v.Check(&in), &ve)
	assert.Equal(t, "localized", ve.Fields["title"])
}

func TestPatchFieldsAreOptional(t *testing.T) {
	assert.NoError(t, DefaultValidator().Check(&models.ProjectPatch{}))
	assert.NoError(t, DefaultValidator().Check(&models.BlogPostPatch{}))
}
