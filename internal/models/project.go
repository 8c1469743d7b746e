package models

import "time"

// TimeLayout is the ISO-8601 form used for every stored timestamp.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectPublished ProjectStatus = "published"
	ProjectArchived  ProjectStatus = "archived"
)

// Project is a portfolio entry stored in data/projects.json.
type Project struct {
	ID              string        `json:"id"`
	Title           Localized     `json:"title"`
	Description     Localized     `json:"description,omitempty"`
	FullDescription Localized     `json:"full_description,omitempty"`
	Slug            string        `json:"slug"`
	Category        Localized     `json:"category,omitempty"`
	Status          ProjectStatus `json:"status"`
	Featured        bool          `json:"featured"`
	FeaturedImage   string        `json:"featured_image,omitempty"`
	Images          []string      `json:"images"`
	Tags            []string      `json:"tags"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}

// ProjectInput is the admin payload for creating a project.
type ProjectInput struct {
	Title           Localized     `json:"title" validate:"required,localized"`
	Description     Localized     `json:"description,omitempty"`
	FullDescription Localized     `json:"full_description,omitempty"`
	Slug            string        `json:"slug" validate:"required,slug"`
	Category        Localized     `json:"category,omitempty"`
	Status          ProjectStatus `json:"status" validate:"required,oneof=draft published archived"`
	Featured        bool          `json:"featured"`
	FeaturedImage   string        `json:"featured_image,omitempty" validate:"omitempty,uri"`
	Images          []string      `json:"images" validate:"dive,uri"`
	Tags            []string      `json:"tags" validate:"dive,required"`
}

// ProjectPatch validates a partial update. Only the fields present in the
// request body are merged, so every field is optional.
type ProjectPatch struct {
	Title           Localized      `json:"title" validate:"omitempty,localized"`
	Description     Localized      `json:"description"`
	FullDescription Localized      `json:"full_description"`
	Slug            *string        `json:"slug" validate:"omitempty,slug"`
	Category        Localized      `json:"category"`
	Status          *ProjectStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	Featured        *bool          `json:"featured"`
	FeaturedImage   *string        `json:"featured_image" validate:"omitempty,uri"`
	Images          []string       `json:"images" validate:"omitempty,dive,uri"`
	Tags            []string       `json:"tags" validate:"omitempty,dive,required"`
}
