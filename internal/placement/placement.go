// Package placement implements deterministic key placement across a
// roster of volume servers, and the two-level on-volume path derived
// from a key.
package placement

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/spaolacci/murmur3"
)

// Ring is a pure function of a volume roster, replication factor, and
// subvolume count. It holds no mutable state and is safe for concurrent
// use by any number of handlers.
type Ring struct {
	volumes    []string
	replicas   int
	subvolumes int
}

// New builds a placement ring over volumes. replicas must satisfy
// 1 <= replicas <= len(volumes); subvolumes of 0 disables subvolume
// sharding.
func New(volumes []string, replicas, subvolumes int) (*Ring, error) {
	if len(volumes) == 0 {
		return nil, fmt.Errorf("placement: no volumes configured")
	}
	if replicas < 1 || replicas > len(volumes) {
		return nil, fmt.Errorf("placement: replicas %d out of range [1, %d]", replicas, len(volumes))
	}

	cp := make([]string, len(volumes))
	copy(cp, volumes)
	return &Ring{volumes: cp, replicas: replicas, subvolumes: subvolumes}, nil
}

// Volumes returns the full configured roster, in the order it was
// supplied. It is not the placement order for any particular key.
func (r *Ring) Volumes() []string {
	cp := make([]string, len(r.volumes))
	copy(cp, r.volumes)
	return cp
}

// Replicas returns the configured replication factor N.
func (r *Ring) Replicas() int {
	return r.replicas
}

// Place returns the ordered list of N volumes for key, chosen by
// rendezvous (highest random weight) hashing over H'(volume || key).
// The result is deterministic across processes and restarts given the
// same roster and replica count.
func (r *Ring) Place(key string) []string {
	type weighted struct {
		volume string
		weight uint64
	}

	ws := make([]weighted, len(r.volumes))
	for i, v := range r.volumes {
		ws[i] = weighted{volume: v, weight: rendezvousWeight(v, key)}
	}

	sort.Slice(ws, func(i, j int) bool {
		if ws[i].weight != ws[j].weight {
			return ws[i].weight > ws[j].weight
		}
		return ws[i].volume < ws[j].volume
	})

	n := r.replicas
	if n > len(ws) {
		n = len(ws)
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ws[i].volume
	}
	return out
}

// DerivePath returns the on-volume path for key: /<b1>/<b2>/<base64url(key)>,
// optionally prefixed with /svNN when subvolume sharding is enabled for
// the given volume.
func (r *Ring) DerivePath(volume, key string) string {
	b1, b2 := keyHashPrefix(key)
	encoded := base64.URLEncoding.EncodeToString([]byte(key))

	if r.subvolumes <= 0 {
		return fmt.Sprintf("/%02x/%02x/%s", b1, b2, encoded)
	}

	sv := murmur3.Sum32([]byte(volume)) % uint32(r.subvolumes)
	return fmt.Sprintf("/sv%02X/%02x/%02x/%s", sv, b1, b2, encoded)
}

// keyHashPrefix returns the first two bytes of H(key), used to bound
// per-directory fan-out on the volume.
func keyHashPrefix(key string) (byte, byte) {
	h1, _ := murmur3.Sum128([]byte(key))
	return byte(h1 >> 56), byte(h1 >> 48)
}

// rendezvousWeight computes H'(volume || key) for HRW placement.
func rendezvousWeight(volume, key string) uint64 {
	buf := make([]byte, 0, len(volume)+1+len(key))
	buf = append(buf, volume...)
	buf = append(buf, 0)
	buf = append(buf, key...)
	h1, h2 := murmur3.Sum128(buf)
	return h1 ^ h2
}
