package master

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// handleGet implements spec.md §4.6's GET/HEAD flow: a 404 for an
// absent or non-Live record, otherwise a 302 redirect to the primary
// volume. Any range, conditional, or HEAD semantics are inherited from
// the volume via the redirect — this handler never proxies bytes.
func (m *Master) handleGet(w http.ResponseWriter, req *http.Request, key string, headOnly bool) {
	rec, err := m.getLive(key)
	if err != nil {
		m.log.Debug("get: miss", zap.String("key", key), zap.Bool("head", headOnly), zap.Error(err))
		writeError(w, err)
		return
	}

	path := m.ring.DerivePath(rec.Volumes[0], key)
	location := fmt.Sprintf("http://%s%s", rec.Volumes[0], path)

	w.Header().Set("Location", location)
	w.Header().Set("Content-MD5", rec.Hash)
	w.WriteHeader(http.StatusFound)
}
