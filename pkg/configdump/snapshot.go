// Package configdump extracts a portable configuration snapshot limited to a
// fixed allow-list of configuration paths.
package configdump

import (
	"fmt"
	"strings"

	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
)

// DefaultKeys is the allow-list of configuration paths kept in a snapshot.
var DefaultKeys = []string{
	"modules",
	"scopes",
	"system/default/general/locale/code",
	"system/default/dev/static/sign",
	"system/default/dev/front_end_development_workflow",
	"system/default/dev/template",
	"system/default/dev/js",
	"system/default/dev/css",
	"system/default/advanced/modules_disable_output",
	"system/stores",
	"system/websites",
}

// Snapshot is a nested configuration tree addressed by slash-separated paths.
type Snapshot map[string]any

// Get returns the value at path.
func (s Snapshot) Get(path string) (any, bool) {
	var node any = map[string]any(s)
	for _, part := range strings.Split(path, "/") {
		m, ok := asMap(node)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Set stores value at path, creating intermediate maps.
func (s Snapshot) Set(path string, value any) {
	parts := strings.Split(path, "/")
	m := map[string]any(s)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(m[part])
		if !ok {
			next = map[string]any{}
		}
		m[part] = next
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Snapshot:
		return m, true
	}
	return nil, false
}

// Generate copies every path in keys that is present in src into a new
// snapshot. Nothing outside keys is copied.
func Generate(src Snapshot, keys []string) Snapshot {
	out := Snapshot{}
	for _, key := range keys {
		if v, ok := src.Get(key); ok {
			out.Set(key, v)
		}
	}
	return out
}

// Load reads a snapshot file. A missing file yields an empty snapshot.
func Load(path string) (Snapshot, error) {
	m, err := fsutil.ReadYAML(path)
	if err != nil {
		return nil, fmt.Errorf("loading config snapshot: %w", err)
	}
	return Snapshot(m), nil
}

// Save writes a snapshot file atomically.
func Save(path string, s Snapshot) error {
	if err := fsutil.WriteYAML(path, map[string]any(s)); err != nil {
		return fmt.Errorf("saving config snapshot: %w", err)
	}
	return nil
}
