package api

import (
	"encoding/json"

	"github.com/bilgisen/studio/internal/logger"
	"github.com/bilgisen/studio/internal/middleware"
	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// CreateProject handles POST /api/v1/admin/projects
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var in models.ProjectInput
	if err := middleware.BindJSON(c, &in); err != nil {
		return err
	}
	p, err := h.content.CreateProject(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdateProject handles PATCH /api/v1/admin/projects/:id
func (h *Handlers) UpdateProject(c *fiber.Ctx) error {
	var check models.ProjectPatch
	patch, err := bindPatch(c, &check)
	if err != nil {
		return err
	}
	p, err := h.content.UpdateProject(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// DeleteProject handles DELETE /api/v1/admin/projects/:id
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	if err := h.content.DeleteProject(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateBlogPost handles POST /api/v1/admin/blog
func (h *Handlers) CreateBlogPost(c *fiber.Ctx) error {
	var in models.BlogPostInput
	if err := middleware.BindJSON(c, &in); err != nil {
		return err
	}
	post, err := h.content.CreateBlogPost(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdateBlogPost handles PATCH /api/v1/admin/blog/:id
func (h *Handlers) UpdateBlogPost(c *fiber.Ctx) error {
	var check models.BlogPostPatch
	patch, err := bindPatch(c, &check)
	if err != nil {
		return err
	}
	post, err := h.content.UpdateBlogPost(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(post)
}

// DeleteBlogPost handles DELETE /api/v1/admin/blog/:id
func (h *Handlers) DeleteBlogPost(c *fiber.Ctx) error {
	if err := h.content.DeleteBlogPost(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SavePage handles PUT /api/v1/admin/pages/:page
func (h *Handlers) SavePage(c *fiber.Ctx) error {
	page := c.Params("page")
	if !storage.ValidPageName(page) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid page name")
	}

	var doc models.PageContent
	if err := json.Unmarshal(c.Body(), &doc); err != nil || doc == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Page content must be a JSON object")
	}

	saved, err := h.content.SavePageContent(c.UserContext(), page, doc)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

// ListMedia handles GET /api/v1/admin/media[?prefix=]
func (h *Handlers) ListMedia(c *fiber.Ctx) error {
	if h.media == nil {
		return errMediaDisabled
	}
	files, err := h.media.List(c.UserContext(), c.Query("prefix"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"total": len(files),
		"items": files,
	})
}

// UploadMedia handles POST /api/v1/admin/media (multipart field "file")
func (h *Handlers) UploadMedia(c *fiber.Ctx) error {
	if h.media == nil {
		return errMediaDisabled
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to read upload")
	}
	defer f.Close()

	file, err := h.media.Upload(c.UserContext(), fh.Filename, f)
	if err != nil {
		return err
	}

	logger.Get().Info().
		Str("ip", c.IP()).
		Str("key", file.Key).
		Msg("Admin uploaded media")

	return c.Status(fiber.StatusCreated).JSON(file)
}

// DeleteMedia handles DELETE /api/v1/admin/media/*
func (h *Handlers) DeleteMedia(c *fiber.Ctx) error {
	if h.media == nil {
		return errMediaDisabled
	}
	if err := h.media.Delete(c.UserContext(), c.Params("*")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

var errMediaDisabled = fiber.NewError(fiber.StatusServiceUnavailable, "Media storage is not configured")

// bindPatch decodes a partial update both as a raw record, which is what
// gets merged, and into check, which is validated.
func bindPatch(c *fiber.Ctx, check interface{}) (storage.Record, error) {
	var patch storage.Record
	if err := json.Unmarshal(c.Body(), &patch); err != nil || patch == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Patch must be a JSON object")
	}
	if err := middleware.BindJSON(c, check); err != nil {
		return nil, err
	}
	return patch, nil
}
