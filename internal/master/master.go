// Package master implements the request handler (C6) and the
// immutable wiring (C7's payload) binding the index, lock table,
// volume client, and placement ring into one value passed to every
// request.
//
// Grounded on couchbaselabs/cbfs's http.go dispatch-by-method-and-prefix
// shape and main.go's wire-then-serve flow, cut down to the five
// methods and handful of routes spec.md names.
package master

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vrnvu/minikeyvalue/config"
	"github.com/vrnvu/minikeyvalue/internal/index"
	"github.com/vrnvu/minikeyvalue/internal/keylock"
	"github.com/vrnvu/minikeyvalue/internal/placement"
	"github.com/vrnvu/minikeyvalue/internal/volume"
)

// errNotFound is the handler-local not-found sentinel: either the
// index has no entry for a key, or it has one that is not Live.
var errNotFound = errors.New("master: not found")

// Master bundles the components a handler needs. It is built once at
// startup and never mutated afterward — there is no process-wide
// mutable state beyond the index itself, per spec.md §9.
type Master struct {
	cfg       config.Config
	store     index.Store
	locks     *keylock.Table
	ring      *placement.Ring
	volumeCli *volume.Client
	log       *zap.Logger
}

// New builds a Master from its dependencies.
func New(cfg config.Config, store index.Store, ring *placement.Ring, volumeCli *volume.Client, log *zap.Logger) *Master {
	if log == nil {
		log = zap.NewNop()
	}
	return &Master{
		cfg:       cfg,
		store:     store,
		locks:     keylock.New(cfg.LockShards),
		ring:      ring,
		volumeCli: volumeCli,
		log:       log,
	}
}

// Handler returns the http.Handler dispatching PUT/GET/HEAD/DELETE and
// the UNLINK extension method, plus the list/unlinked/debug routes.
func (m *Master) Handler() http.Handler {
	return http.HandlerFunc(m.route)
}

func (m *Master) route(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path == debugConfigPath {
		m.handleDebugConfig(w, req)
		return
	}

	if req.Method == http.MethodGet && req.URL.Path == "/" && req.URL.Query().Has("unlinked") {
		m.handleUnlinkedList(w, req)
		return
	}

	key := trimLeadingSlash(req.URL.Path)
	if key == "" {
		http.NotFound(w, req)
		return
	}

	switch req.Method {
	case http.MethodPut:
		m.handlePut(w, req, key)
	case http.MethodGet:
		if req.URL.Query().Has("list") {
			m.handleList(w, req, key)
			return
		}
		m.handleGet(w, req, key, false)
	case http.MethodHead:
		m.handleGet(w, req, key, true)
	case http.MethodDelete:
		m.handleDelete(w, req, key)
	case "UNLINK":
		m.handleUnlink(w, req, key)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}
