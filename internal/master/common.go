package master

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vrnvu/minikeyvalue/internal/index"
	"github.com/vrnvu/minikeyvalue/internal/record"
)

func writeJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

const debugConfigPath = "/.mkv/config"

// getAny returns the record stored under key in any deletion state, or
// errNotFound if the index has no entry at all.
func (m *Master) getAny(key string) (record.Record, error) {
	raw, err := m.store.Get([]byte(key))
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return record.Record{}, errNotFound
		}
		return record.Record{}, err
	}

	rec, err := record.Decode(raw)
	if err != nil {
		return record.Record{}, err
	}
	return rec, nil
}

// getLive returns the record stored under key only if it is Live
// (Deleted == DeletedNo); absent or any deleted state is errNotFound,
// matching the GET/HEAD/list visibility rules in spec.md §3 invariant 5.
func (m *Master) getLive(key string) (record.Record, error) {
	rec, err := m.getAny(key)
	if err != nil {
		return record.Record{}, err
	}
	if rec.Deleted != record.DeletedNo {
		return record.Record{}, errNotFound
	}
	return rec, nil
}

func (m *Master) handleDebugConfig(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = writeJSON(w, m.cfg)
}
