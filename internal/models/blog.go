package models

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// BlogPost is an entry stored in data/blog.json.
type BlogPost struct {
	ID          string     `json:"id"`
	Title       Localized  `json:"title"`
	Content     Localized  `json:"content"`
	Excerpt     Localized  `json:"excerpt,omitempty"`
	Image       string     `json:"image,omitempty"`
	Status      PostStatus `json:"status"`
	PublishedAt string     `json:"publishedAt,omitempty"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
}

type BlogPostInput struct {
	Title       Localized  `json:"title" validate:"required,localized"`
	Content     Localized  `json:"content" validate:"required,localized"`
	Excerpt     Localized  `json:"excerpt,omitempty"`
	Image       string     `json:"image,omitempty" validate:"omitempty,uri"`
	Status      PostStatus `json:"status" validate:"required,oneof=draft published"`
	PublishedAt string     `json:"publishedAt,omitempty"`
}

type BlogPostPatch struct {
	Title       Localized   `json:"title" validate:"omitempty,localized"`
	Content     Localized   `json:"content" validate:"omitempty,localized"`
	Excerpt     Localized   `json:"excerpt"`
	Image       *string     `json:"image" validate:"omitempty,uri"`
	Status      *PostStatus `json:"status" validate:"omitempty,oneof=draft published"`
	PublishedAt *string     `json:"publishedAt"`
}
