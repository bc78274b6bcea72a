package master

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// handleDelete implements spec.md §4.6's DELETE flow: acquire the key
// lock, 404 if absent, delete every volume copy, and only then remove
// the index entry. If any volume delete fails the whole operation
// aborts with 500 and the record is left in place so an operator can
// retry.
func (m *Master) handleDelete(w http.ResponseWriter, req *http.Request, key string) {
	err := m.locks.WithLock(key, func() error {
		return m.doDelete(req.Context(), key)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Master) doDelete(ctx context.Context, key string) error {
	rec, err := m.getAny(key)
	if err != nil {
		return err
	}

	for _, v := range rec.Volumes {
		path := m.ring.DerivePath(v, key)
		if err := m.volumeCli.DeleteBlob(ctx, v, path); err != nil {
			m.log.Error("delete: volume delete failed, record retained for retry",
				zap.String("key", key), zap.String("volume", v), zap.Error(err))
			return err
		}
	}

	return m.store.Delete([]byte(key))
}
