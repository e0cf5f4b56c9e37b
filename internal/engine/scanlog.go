package engine

import "autotradev1/internal/model"

// logRing is a fixed-capacity append-only log; once full, each append
// evicts the oldest entry. Not goroutine-safe; guarded by Engine.mu.
type logRing struct {
	buf  []model.ScanLogEntry
	head int
	full bool
}

func newLogRing(capacity int) logRing {
	return logRing{buf: make([]model.ScanLogEntry, capacity)}
}

func (r *logRing) append(entry model.ScanLogEntry) {
	r.buf[r.head] = entry
	r.head = (r.head + 1) % len(r.buf)
	if r.head == 0 {
		r.full = true
	}
}

// entries returns the retained log, oldest first.
func (r *logRing) entries() []model.ScanLogEntry {
	if !r.full {
		out := make([]model.ScanLogEntry, r.head)
		copy(out, r.buf[:r.head])
		return out
	}
	out := make([]model.ScanLogEntry, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	out = append(out, r.buf[:r.head]...)
	return out
}
