package content

import (
	"context"
	"errors"

	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
)

var watched = []storage.Collection{storage.Projects, storage.Blog}

// Cursor returns the sequence number of the latest journaled update.
func (s *Service) Cursor() uint64 {
	return s.journal.cursor()
}

// Status returns the updates recorded after cursor. When GitHub is active it
// first checks, at most once per check interval, whether the data files were
// committed by someone else.
func (s *Service) Status(ctx context.Context, cursor uint64) models.StatusResponse {
	s.detectRemoteChanges(ctx)

	updates, next := s.journal.since(cursor)
	if updates == nil {
		updates = []models.ContentUpdate{}
	}
	return models.StatusResponse{
		HasUpdates: len(updates) > 0,
		Updates:    updates,
		Cursor:     next,
		Source:     s.Source(),
	}
}

func (s *Service) detectRemoteChanges(ctx context.Context) {
	if !s.policy.useRemote || s.checkEvery <= 0 {
		return
	}

	s.checkMu.Lock()
	now := s.now()
	if !s.lastCheck.IsZero() && now.Sub(s.lastCheck) < s.checkEvery {
		s.checkMu.Unlock()
		return
	}
	s.lastCheck = now
	s.checkMu.Unlock()

	for _, c := range watched {
		changed, err := s.remote.CheckRevision(ctx, c)
		if err != nil {
			s.log.Debug().Err(err).Str("collection", c.Name).Msg("Revision check failed")
			continue
		}
		if changed {
			s.log.Info().Str("collection", c.Name).Msg("Collection changed on GitHub")
			s.changed(c.Name, c.Name, "remote_change", nil)
		}
	}
}

// Sync drops every cached read and reloads projects and posts from the
// active store. Unlike ordinary reads, a failure here is returned.
func (s *Service) Sync(ctx context.Context) (*models.SyncResult, error) {
	s.cache.flush()

	st := s.policy.selected()
	counts := make(map[string]int, len(watched))
	for _, c := range watched {
		tok := s.cache.token(c.Name)
		recs, err := st.GetAll(ctx, c)
		if errors.Is(err, storage.ErrNotFound) {
			// Nothing committed yet.
			recs, err = []storage.Record{}, nil
		}
		if err != nil {
			s.log.Error().Err(err).Str("collection", c.Name).Msg("Sync failed")
			return nil, err
		}
		s.cache.set(c.Name, tok, recs)
		counts[c.Name] = len(recs)
	}

	s.log.Info().
		Int("projects", counts[storage.Projects.Name]).
		Int("posts", counts[storage.Blog.Name]).
		Msg("Content synced")

	return &models.SyncResult{
		Synced:    true,
		Source:    s.Source(),
		Projects:  counts[storage.Projects.Name],
		Posts:     counts[storage.Blog.Name],
		Timestamp: models.FormatTime(s.now()),
	}, nil
}
