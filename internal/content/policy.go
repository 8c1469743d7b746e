package content

import (
	"github.com/bilgisen/studio/internal/storage"
	"github.com/rs/zerolog"
)

// policy decides which store serves a call. Reads fall back to the local
// store on any remote error; writes go to the selected store only and their
// errors are returned unchanged.
type policy struct {
	useRemote bool
	remote    storage.DocumentStore
	local     storage.DocumentStore
	log       zerolog.Logger
}

func (p *policy) selected() storage.DocumentStore {
	if p.useRemote {
		return p.remote
	}
	return p.local
}

// read runs fn against the selected store. primary is false when the value
// came from the local fallback after a remote failure.
func read[T any](p *policy, op string, fn func(storage.DocumentStore) (T, error)) (v T, primary bool, err error) {
	v, err = fn(p.selected())
	if err == nil {
		return v, true, nil
	}
	if !p.useRemote {
		return v, false, err
	}

	p.log.Warn().
		Err(err).
		Str("op", op).
		Msg("Remote read failed, serving local fallback")

	v, err = fn(p.local)
	return v, false, err
}

func write[T any](p *policy, op string, fn func(storage.DocumentStore) (T, error)) (T, error) {
	v, err := fn(p.selected())
	if err != nil {
		p.log.Error().
			Err(err).
			Str("op", op).
			Bool("remote", p.useRemote).
			Msg("Write failed")
	}
	return v, err
}
