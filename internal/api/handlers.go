package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/studio/internal/content"
	"github.com/bilgisen/studio/internal/media"
	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
	"github.com/gofiber/fiber/v2"
)

const version = "1.0.0"

type Handlers struct {
	content *content.Service
	media   *media.Store
	started time.Time
}

// NewHandlers wires the handlers. media may be nil when R2 is not
// configured; the media endpoints then answer 503.
func NewHandlers(svc *content.Service, mediaStore *media.Store) *Handlers {
	return &Handlers{
		content: svc,
		media:   mediaStore,
		started: time.Now(),
	}
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version,
		"source":  h.content.Source(),
		"media":   h.media != nil,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"time":    time.Now().Format(time.RFC3339),
	})
}

// GetSource handles GET /api/v1/source
func (h *Handlers) GetSource(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"source":            h.content.Source(),
		"remote_configured": h.content.IsRemoteConfigured(),
	})
}

// GetStatus handles GET /api/github/status. Without a cursor it returns
// the current cursor as a baseline for the caller.
func (h *Handlers) GetStatus(c *fiber.Ctx) error {
	cursor := h.content.Cursor()
	if raw := c.Query("cursor"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "cursor must be a non-negative integer")
		}
		cursor = n
	}

	resp := h.content.Status(c.UserContext(), cursor)
	if resp.Updates == nil {
		resp.Updates = []models.ContentUpdate{}
	}
	return c.JSON(resp)
}

// Sync handles POST /api/github/sync
func (h *Handlers) Sync(c *fiber.Ctx) error {
	result, err := h.content.Sync(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetProjects handles GET /api/v1/projects[?status=&featured=]
func (h *Handlers) GetProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()
	status := strings.ToLower(c.Query("status"))

	var (
		projects []models.Project
		err      error
	)
	switch {
	case c.QueryBool("featured"):
		projects, err = h.content.GetFeaturedProjects(ctx)
	case status == string(models.ProjectPublished):
		projects, err = h.content.GetPublishedProjects(ctx)
	default:
		projects, err = h.content.GetProjects(ctx)
	}
	if err != nil {
		return err
	}

	if status != "" && status != string(models.ProjectPublished) {
		filtered := projects[:0:0]
		for _, p := range projects {
			if string(p.Status) == status {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	return c.JSON(fiber.Map{
		"total": len(projects),
		"items": projects,
	})
}

// GetProject handles GET /api/v1/projects/:id
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	p, err := h.content.GetProject(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// GetProjectBySlug handles GET /api/v1/projects/slug/:slug
func (h *Handlers) GetProjectBySlug(c *fiber.Ctx) error {
	p, err := h.content.GetProjectBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// GetBlogPosts handles GET /api/v1/blog[?status=]
func (h *Handlers) GetBlogPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	status := strings.ToLower(c.Query("status"))

	var (
		posts []models.BlogPost
		err   error
	)
	if status == string(models.PostPublished) {
		posts, err = h.content.GetPublishedPosts(ctx)
	} else {
		posts, err = h.content.GetBlogPosts(ctx)
	}
	if err != nil {
		return err
	}

	if status != "" && status != string(models.PostPublished) {
		filtered := posts[:0:0]
		for _, p := range posts {
			if string(p.Status) == status {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}

	return c.JSON(fiber.Map{
		"total": len(posts),
		"items": posts,
	})
}

// GetBlogPost handles GET /api/v1/blog/:id
func (h *Handlers) GetBlogPost(c *fiber.Ctx) error {
	post, err := h.content.GetBlogPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(post)
}

// GetPage handles GET /api/v1/pages/:page
func (h *Handlers) GetPage(c *fiber.Ctx) error {
	page := c.Params("page")
	if !storage.ValidPageName(page) {
		return fiber.NewError(fiber.StatusNotFound, "Page not found")
	}
	doc, err := h.content.GetPageContent(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(doc)
}
