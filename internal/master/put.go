package master

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vrnvu/minikeyvalue/internal/record"
)

// handlePut implements spec.md §4.6's PUT flow: acquire the key lock,
// reject any existing record (live or SOFT) with 403 — the
// SOFT-then-PUT policy DESIGN.md records as the chosen behaviour —
// stream the body through an MD5 hasher to the primary volume, copy it
// out to each replica, and commit the record.
func (m *Master) handlePut(w http.ResponseWriter, req *http.Request, key string) {
	length, err := contentLength(req)
	if err != nil {
		writeError(w, err)
		return
	}

	var hash string
	err = m.locks.WithLock(key, func() error {
		h, putErr := m.doPut(req.Context(), key, req.Body, length)
		hash = h
		return putErr
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-MD5", hash)
	w.WriteHeader(http.StatusCreated)
}

func contentLength(req *http.Request) (int64, error) {
	header := req.Header.Get("Content-Length")
	if header == "" {
		return 0, ErrLengthRequired
	}
	length, err := strconv.ParseInt(header, 10, 64)
	if err != nil || length < 0 {
		return 0, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return length, nil
}

// doPut runs under key's lock for its full duration and returns the
// hash committed to the record.
func (m *Master) doPut(ctx context.Context, key string, body io.Reader, length int64) (string, error) {
	_, err := m.getAny(key)
	switch {
	case err == nil:
		// A record exists in any state — live or SOFT. Both reject the
		// write; a SOFT record must be DELETEd before the key can be
		// reused.
		return "", ErrAlreadyExists
	case !errors.Is(err, errNotFound):
		return "", err
	}

	volumes := m.ring.Place(key)
	primaryPath := m.ring.DerivePath(volumes[0], key)

	hasher := md5.New()
	tee := io.TeeReader(body, hasher)

	if err := m.volumeCli.PutBlob(ctx, volumes[0], primaryPath, length, "", tee); err != nil {
		return "", err
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	written := volumes[:1:1]
	for _, replica := range volumes[1:] {
		if err := m.copyToReplica(ctx, volumes[0], primaryPath, replica, key, hash); err != nil {
			m.rollback(ctx, written, key)
			return "", err
		}
		written = append(written, replica)
	}

	rec := record.Record{Hash: hash, Volumes: volumes, Deleted: record.DeletedNo}
	encoded, err := record.Encode(rec)
	if err != nil {
		m.rollback(ctx, written, key)
		return "", err
	}

	if err := m.store.Put([]byte(key), encoded); err != nil {
		m.rollback(ctx, written, key)
		return "", err
	}

	return hash, nil
}

// copyToReplica re-fetches the body from the primary (at its own
// derived path) and streams it to replica at replica's own derived
// path — the two may differ when --subvolumes shards paths per volume
// — following spec.md §4.6 step 6's master-driven replication default
// (doubles intra-cluster bandwidth versus fan-out tee, but keeps the
// client-facing contract a single PUT — see DESIGN.md).
func (m *Master) copyToReplica(ctx context.Context, primary, primaryPath, replica, key, hash string) error {
	body, length, err := m.volumeCli.GetBlob(ctx, primary, primaryPath)
	if err != nil {
		return err
	}
	defer body.Close()

	replicaPath := m.ring.DerivePath(replica, key)
	return m.volumeCli.PutBlob(ctx, replica, replicaPath, length, hash, body)
}

// rollback deletes every volume that already has a copy, following the
// PUT rollback policy in spec.md §7. Each volume's own derived path is
// recomputed since it may differ per volume under --subvolumes.
func (m *Master) rollback(ctx context.Context, written []string, key string) {
	for _, v := range written {
		path := m.ring.DerivePath(v, key)
		if delErr := m.volumeCli.DeleteBlob(ctx, v, path); delErr != nil {
			m.log.Error("put rollback: failed to delete orphaned copy", zap.String("volume", v), zap.String("path", path), zap.Error(delErr))
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		http.Error(w, fmt.Sprintf("internal error: %v", err), status)
		return
	}
	w.WriteHeader(status)
}
