package content

import (
	"context"

	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
)

// GetProjects returns every project, most recently created first.
func (s *Service) GetProjects(ctx context.Context) ([]models.Project, error) {
	recs, err := s.collection(ctx, storage.Projects)
	if err != nil {
		return nil, err
	}
	return storage.DecodeAll[models.Project](recs)
}

// GetPublishedProjects returns projects visible on the public site.
func (s *Service) GetPublishedProjects(ctx context.Context) ([]models.Project, error) {
	return s.filterProjects(ctx, func(p models.Project) bool {
		return p.Status == models.ProjectPublished
	})
}

// GetFeaturedProjects returns published projects flagged for the home page.
func (s *Service) GetFeaturedProjects(ctx context.Context) ([]models.Project, error) {
	return s.filterProjects(ctx, func(p models.Project) bool {
		return p.Status == models.ProjectPublished && p.Featured
	})
}

func (s *Service) filterProjects(ctx context.Context, keep func(models.Project) bool) ([]models.Project, error) {
	all, err := s.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(all))
	for _, p := range all {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*models.Project, error) {
	rec, err := s.find(ctx, storage.Projects, func(r storage.Record) bool { return r.ID() == id }, id)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Project](rec)
}

// GetProjectBySlug finds a project by its URL slug. Slugs are expected to be
// unique; the first match wins.
func (s *Service) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	rec, err := s.find(ctx, storage.Projects, func(r storage.Record) bool { return r.String("slug") == slug }, "slug="+slug)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Project](rec)
}

func (s *Service) CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	if in.Images == nil {
		in.Images = []string{}
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	fields, err := storage.NewRecord(in)
	if err != nil {
		return nil, err
	}
	rec, err := s.create(ctx, storage.Projects, fields)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Project](rec)
}

// UpdateProject merges the given top-level fields over the stored project.
func (s *Service) UpdateProject(ctx context.Context, id string, patch storage.Record) (*models.Project, error) {
	rec, err := s.update(ctx, storage.Projects, id, patch)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Project](rec)
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.remove(ctx, storage.Projects, id)
}

func decodeOne[T any](rec storage.Record) (*T, error) {
	v, err := storage.Decode[T](rec)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
