package content

import (
	"context"

	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
)

func (s *Service) GetBlogPosts(ctx context.Context) ([]models.BlogPost, error) {
	recs, err := s.collection(ctx, storage.Blog)
	if err != nil {
		return nil, err
	}
	return storage.DecodeAll[models.BlogPost](recs)
}

func (s *Service) GetPublishedPosts(ctx context.Context) ([]models.BlogPost, error) {
	all, err := s.GetBlogPosts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.BlogPost, 0, len(all))
	for _, p := range all {
		if p.Status == models.PostPublished {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) GetBlogPost(ctx context.Context, id string) (*models.BlogPost, error) {
	rec, err := s.find(ctx, storage.Blog, func(r storage.Record) bool { return r.ID() == id }, id)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.BlogPost](rec)
}

// CreateBlogPost stores a new post. Published posts without a publish date
// get the creation time.
func (s *Service) CreateBlogPost(ctx context.Context, in models.BlogPostInput) (*models.BlogPost, error) {
	if in.Status == models.PostPublished && in.PublishedAt == "" {
		in.PublishedAt = models.FormatTime(s.now())
	}
	fields, err := storage.NewRecord(in)
	if err != nil {
		return nil, err
	}
	rec, err := s.create(ctx, storage.Blog, fields)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.BlogPost](rec)
}

func (s *Service) UpdateBlogPost(ctx context.Context, id string, patch storage.Record) (*models.BlogPost, error) {
	rec, err := s.update(ctx, storage.Blog, id, patch)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.BlogPost](rec)
}

func (s *Service) DeleteBlogPost(ctx context.Context, id string) error {
	return s.remove(ctx, storage.Blog, id)
}
