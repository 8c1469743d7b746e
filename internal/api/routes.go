package api

import (
	"time"

	"github.com/bilgisen/studio/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const statusRoute = "/api/github/status"

// ServerConfig holds the fiber settings the server needs.
type ServerConfig struct {
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp builds the fiber app with the shared error handler and all routes.
func NewApp(h *Handlers, cfg ServerConfig) *fiber.App {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 4 << 20
	}
	app := fiber.New(fiber.Config{
		AppName:               "studio",
		ErrorHandler:          middleware.ErrorHandler,
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
	})
	SetupRoutes(app, h)
	return app
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers) {
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger(statusRoute))

	// Change notifier endpoints
	gh := app.Group("/api/github")
	gh.Get("/status", h.GetStatus)
	gh.Post("/sync", h.Sync)

	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)
	api.Get("/source", h.GetSource)

	projects := api.Group("/projects")
	{
		projects.Get("", h.GetProjects)
		projects.Get("/slug/:slug", h.GetProjectBySlug)
		projects.Get("/:id", h.GetProject)
	}

	blog := api.Group("/blog")
	{
		blog.Get("", h.GetBlogPosts)
		blog.Get("/:id", h.GetBlogPost)
	}

	api.Get("/pages/:page", h.GetPage)

	// Admin endpoints. Authentication is expected in front of the service.
	admin := api.Group("/admin")
	{
		admin.Post("/projects", h.CreateProject)
		admin.Patch("/projects/:id", h.UpdateProject)
		admin.Delete("/projects/:id", h.DeleteProject)

		admin.Post("/blog", h.CreateBlogPost)
		admin.Patch("/blog/:id", h.UpdateBlogPost)
		admin.Delete("/blog/:id", h.DeleteBlogPost)

		admin.Put("/pages/:page", h.SavePage)

		admin.Get("/media", h.ListMedia)
		admin.Post("/media", h.UploadMedia)
		admin.Delete("/media/*", h.DeleteMedia)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
