package master

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vrnvu/minikeyvalue/internal/record"
)

// handleList implements spec.md §4.6's GET /<prefix>?list[&start=&limit=]:
// a newline-delimited, byte-wise ordered enumeration of live keys under
// prefix, strictly after start, capped at limit, skipping SOFT/HARD
// records.
func (m *Master) handleList(w http.ResponseWriter, req *http.Request, prefix string) {
	q := req.URL.Query()
	start := q.Get("start")

	limit := m.cfg.ListDefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, ErrBadRequest)
			return
		}
		limit = n
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	emitted := 0
	err := m.store.IterPrefix([]byte(prefix), []byte(start), 0, func(k, v []byte) bool {
		if limit > 0 && emitted >= limit {
			return false
		}
		rec, decErr := record.Decode(v)
		if decErr != nil || rec.Deleted != record.DeletedNo {
			return true
		}
		if emitted > 0 {
			_, _ = w.Write([]byte("\n"))
		}
		_, _ = w.Write(k)
		emitted++
		return true
	})
	if err != nil {
		// The response may already be partially written; there is no
		// status code left to change. This mirrors streaming list
		// endpoints across the corpus that can only log once bytes are
		// on the wire.
		m.log.Error("list: index iteration failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

// handleUnlinkedList implements spec.md §4.6's GET /?unlinked: an
// unbounded, newline-delimited enumeration of every key tagged SOFT.
func (m *Master) handleUnlinkedList(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	emitted := 0
	err := m.store.IterAll(func(k, v []byte) bool {
		rec, decErr := record.Decode(v)
		if decErr != nil || rec.Deleted != record.DeletedSoft {
			return true
		}
		if emitted > 0 {
			_, _ = w.Write([]byte("\n"))
		}
		_, _ = w.Write(k)
		emitted++
		return true
	})
	if err != nil {
		http.Error(w, "index error", http.StatusInternalServerError)
	}
}
