package master

import (
	"net/http"

	"github.com/vrnvu/minikeyvalue/internal/record"
)

// handleUnlink implements spec.md §4.6's UNLINK flow: acquire the
// lock, 404 if absent or already SOFT, write the record back with
// Deleted=SOFT, no remote I/O.
func (m *Master) handleUnlink(w http.ResponseWriter, req *http.Request, key string) {
	err := m.locks.WithLock(key, func() error {
		return m.doUnlink(key)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Master) doUnlink(key string) error {
	rec, err := m.getAny(key)
	if err != nil {
		return err
	}
	if rec.Deleted != record.DeletedNo {
		return errNotFound
	}

	rec.Deleted = record.DeletedSoft
	encoded, err := record.Encode(rec)
	if err != nil {
		return err
	}

	return m.store.Put([]byte(key), encoded)
}
