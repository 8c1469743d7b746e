package content

import (
	"context"
	"fmt"

	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
)

const pageType = "pages"

func (s *Service) GetPageContent(ctx context.Context, page string) (models.PageContent, error) {
	if !storage.ValidPageName(page) {
		return nil, &storage.Error{Op: "get", Path: page, Kind: storage.ErrNotFound, Err: fmt.Errorf("invalid page name")}
	}
	key := pageCacheKey(page)
	if v, ok := s.cache.get(key); ok {
		return models.PageContent(v.(storage.Record)), nil
	}
	tok := s.cache.token(key)

	doc, primary, err := read(s.policy, "get page "+page, func(st storage.DocumentStore) (storage.Record, error) {
		return st.GetDocument(ctx, page)
	})
	if err != nil {
		return nil, err
	}
	if primary {
		s.cache.set(key, tok, doc)
	}
	return models.PageContent(doc), nil
}

// SavePageContent replaces the whole document of page and stamps updatedAt.
func (s *Service) SavePageContent(ctx context.Context, page string, content models.PageContent) (models.PageContent, error) {
	if !storage.ValidPageName(page) {
		return nil, &storage.Error{Op: "save", Path: page, Kind: storage.ErrNotFound, Err: fmt.Errorf("invalid page name")}
	}
	doc, err := write(s.policy, "save page "+page, func(st storage.DocumentStore) (storage.Record, error) {
		return st.SaveDocument(ctx, page, storage.Record(content))
	})
	if err != nil {
		return nil, err
	}
	s.changed(pageCacheKey(page), pageType, "update", map[string]any{"page": page, "content": doc})
	return models.PageContent(doc), nil
}
