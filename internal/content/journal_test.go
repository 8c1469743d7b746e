package content

import (
	"testing"

	"github.com/bilgisen/studio/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestJournalSince(t *testing.T) {
	j := newJournal(3)
	for _, action := range []string{"a", "b"} {
		j.append(models.ContentUpdate{Action: action})
	}

	updates, cursor := j.since(0)
	assert.Equal(t, uint64(2), cursor)
	assert.Len(t, updates, 2)

	updates, _ = j.since(1)
	assert.Len(t, updates, 1)
	assert.Equal(t, "b", updates[0].Action)

	updates, cursor = j.since(99)
	assert.Empty(t, updates)
	assert.Equal(t, uint64(2), cursor)
}

func TestJournalWrapsAround(t *testing.T) {
	j := newJournal(3)
	for _, action := range []string{"a", "b", "c", "d", "e"} {
		j.append(models.ContentUpdate{Action: action})
	}

	updates, cursor := j.since(0)
	assert.Equal(t, uint64(5), cursor)
	var got []string
	for _, u := range updates {
		got = append(got, u.Action)
	}
	assert.Equal(t, []string{"c", "d", "e"}, got)
}
