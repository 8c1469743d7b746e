package content

import (
	"sync"

	"github.com/bilgisen/studio/internal/models"
)

type journalEntry struct {
	seq    uint64
	update models.ContentUpdate
}

// journal keeps the most recent content updates in a fixed-size ring so
// pollers can ask for everything after a cursor.
type journal struct {
	mu      sync.Mutex
	entries []journalEntry
	next    int
	full    bool
	seq     uint64
}

func newJournal(size int) *journal {
	if size <= 0 {
		size = 256
	}
	return &journal{entries: make([]journalEntry, size)}
}

func (j *journal) append(u models.ContentUpdate) uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.entries[j.next] = journalEntry{seq: j.seq, update: u}
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	return j.seq
}

func (j *journal) cursor() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// since returns updates newer than cursor, oldest first, and the cursor to
// use next time. Entries that already fell out of the ring are skipped. A
// cursor from the future (the server restarted) yields nothing.
func (j *journal) since(cursor uint64) ([]models.ContentUpdate, uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if cursor >= j.seq {
		return nil, j.seq
	}

	var out []models.ContentUpdate
	n := j.next
	if j.full {
		n = len(j.entries)
	}
	start := 0
	if j.full {
		start = j.next
	}
	for i := 0; i < n; i++ {
		e := j.entries[(start+i)%len(j.entries)]
		if e.seq > cursor {
			out = append(out, e.update)
		}
	}
	return out, j.seq
}
