// SPDX-License-Identifier: MPL-2.0

package envbuild

import (
	"maps"
	"slices"
	"strings"
)

// Snapshot is an immutable set of environment variables. Every method that
// changes content returns a new Snapshot.
type Snapshot struct {
	vars map[string]string
}

// NewSnapshot copies m into a new Snapshot.
func NewSnapshot(m map[string]string) Snapshot {
	return Snapshot{vars: maps.Clone(m)}
}

// ParseEnviron converts os.Environ-style "KEY=VALUE" entries into a map.
// Later entries win; entries without '=' are ignored.
func ParseEnviron(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		m[k] = v
	}
	return m
}

// Get returns the value of key.
func (s Snapshot) Get(key string) (string, bool) {
	v, ok := s.vars[key]
	return v, ok
}

// Len returns the number of variables.
func (s Snapshot) Len() int { return len(s.vars) }

// Keys returns the variable names in sorted order.
func (s Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(s.vars))
}

// Map returns a copy of the variables.
func (s Snapshot) Map() map[string]string {
	return maps.Clone(s.vars)
}

// With returns a copy of s with key set to value.
func (s Snapshot) With(key, value string) Snapshot {
	m := maps.Clone(s.vars)
	if m == nil {
		m = make(map[string]string, 1)
	}
	m[key] = value
	return Snapshot{vars: m}
}

// Without returns a copy of s with key removed.
func (s Snapshot) Without(key string) Snapshot {
	m := maps.Clone(s.vars)
	delete(m, key)
	return Snapshot{vars: m}
}

// Environ returns sorted "KEY=VALUE" entries for exec.Cmd.Env.
func (s Snapshot) Environ() []string {
	out := make([]string, 0, len(s.vars))
	for _, k := range s.Keys() {
		out = append(out, k+"="+s.vars[k])
	}
	return out
}

// EnvList renders the snapshot as a container env-file: one sorted
// KEY=VALUE line per variable. Values containing newlines cannot be
// represented in that format and are flattened to spaces.
func (s Snapshot) EnvList() []byte {
	var b strings.Builder
	for _, k := range s.Keys() {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.NewReplacer("\r\n", " ", "\n", " ").Replace(s.vars[k]))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Equal reports whether both snapshots hold the same variables.
func (s Snapshot) Equal(o Snapshot) bool {
	return maps.Equal(s.vars, o.vars)
}
