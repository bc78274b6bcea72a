// Package config holds the master's immutable runtime configuration,
// built once at startup from CLI flags and handed to every handler.
//
// Adapted from couchbaselabs/cbfs's cbfsconfig.CBFSConfig: this spec has
// no cluster-wide mutable configuration (no GC, no heartbeat, no
// rebalance thresholds — those belong to the out-of-scope administrative
// tools), so the reflection-based SetParameter/UnmarshalJSON machinery
// cbfs used for live reconfiguration is dropped. MarshalJSON backs the
// read-only /.mkv/config debug endpoint; Dump renders the same fields
// as aligned text.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"text/tabwriter"
	"time"
)

// Config is the bundle of tunables passed to every handler. There is
// no process-wide mutable state beyond the index itself; everything a
// handler needs to act on comes from this struct or the components it
// holds.
type Config struct {
	// Bind is the listener address, e.g. ":3000".
	Bind string `json:"bind"`
	// IndexPath is the directory/file path of the embedded index.
	IndexPath string `json:"indexPath"`
	// Volumes is the ordered roster of volume host[:port] strings.
	Volumes []string `json:"volumes"`
	// Replicas is the replication factor N.
	Replicas int `json:"replicas"`
	// Subvolumes is the optional per-volume internal shard count; 0 disables it.
	Subvolumes int `json:"subvolumes"`
	// LockShards is the size of the key-lock table.
	LockShards int `json:"lockShards"`
	// MaxIdleConnsPerHost bounds the volume client's per-host connection pool.
	MaxIdleConnsPerHost int `json:"maxIdleConnsPerHost"`
	// RemoteTimeout bounds a single request to a volume server.
	RemoteTimeout time.Duration `json:"remoteTimeout"`
	// ListDefaultLimit caps ?list responses when the caller omits &limit=.
	ListDefaultLimit int `json:"listDefaultLimit"`
}

// Default returns the configuration used when a flag is left at its
// CLI default, following DefaultConfig's role in cbfsconfig.
func Default() Config {
	return Config{
		Bind:                ":3000",
		IndexPath:           "mkv.db",
		Replicas:            3,
		Subvolumes:          0,
		LockShards:          1024,
		MaxIdleConnsPerHost: 100,
		RemoteTimeout:       30 * time.Second,
		ListDefaultLimit:    1000,
	}
}

func jsonFieldName(sf reflect.StructField) string {
	name := sf.Tag.Get("json")
	if name == "" {
		name = sf.Name
	}
	return name
}

// MarshalJSON renders durations in their string form, the same
// vanilla-marshal-plus-duration-strings trick cbfsconfig.CBFSConfig uses.
func (c Config) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{}

	val := reflect.ValueOf(c)
	for i := 0; i < val.NumField(); i++ {
		v := val.Field(i).Interface()
		if d, ok := v.(time.Duration); ok {
			v = d.String()
		}
		m[jsonFieldName(val.Type().Field(i))] = v
	}

	return json.Marshal(m)
}

// Dump writes a tab-aligned text rendering of c to w, one field per
// line, keyed by the field's JSON name.
func (c Config) Dump(w io.Writer) {
	tw := tabwriter.NewWriter(w, 2, 4, 1, ' ', 0)
	val := reflect.ValueOf(c)
	for i := 0; i < val.NumField(); i++ {
		fmt.Fprintf(tw, "%v:\t%v\n", jsonFieldName(val.Type().Field(i)), val.Field(i).Interface())
	}
	tw.Flush()
}
