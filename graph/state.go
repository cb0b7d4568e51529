package graph

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// State is an immutable key/value snapshot threaded through a run. Every
// merge produces a new State with the version incremented; earlier snapshots
// are never modified, so checkpoints can keep them.
//
// Values themselves are shared between snapshots. Nodes must not mutate a
// value read from State in place; they return a new value in their Command.
type State struct {
	values  map[string]any
	version int
}

// NewState creates a version 0 state holding a copy of values.
func NewState(values map[string]any) State {
	return State{values: maps.Clone(values)}
}

func restoreState(values map[string]any, version int) State {
	return State{values: maps.Clone(values), version: version}
}

// Get returns the value stored under key.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the value under key if it is a string, otherwise "".
func (s State) GetString(key string) string {
	v, _ := s.values[key].(string)
	return v
}

// Keys returns the keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Values returns a copy of the underlying map.
func (s State) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// Len returns the number of keys.
func (s State) Len() int {
	return len(s.values)
}

// Version returns the number of merges applied since the run started.
func (s State) Version() int {
	return s.version
}

// Equal reports whether both states hold equal values. Versions are ignored.
func (s State) Equal(other State) bool {
	if len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := other.values[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// Merge returns a new state where each key of update replaces the old value.
// Keys not mentioned in update are kept.
func (s State) Merge(update map[string]any) State {
	out := State{
		values:  make(map[string]any, len(s.values)+len(update)),
		version: s.version + 1,
	}
	maps.Copy(out.values, s.values)
	maps.Copy(out.values, update)
	return out
}

// MergeWith is Merge with per-key reducers: keys that have a reducer are
// combined through it, the others are overwritten.
func (s State) MergeWith(update map[string]any, reducers map[string]Reducer) (State, error) {
	if len(reducers) == 0 {
		return s.Merge(update), nil
	}

	out := State{
		values:  make(map[string]any, len(s.values)+len(update)),
		version: s.version + 1,
	}
	maps.Copy(out.values, s.values)

	for _, k := range slices.Sorted(maps.Keys(update)) {
		v := update[k]
		reducer, ok := reducers[k]
		if !ok {
			out.values[k] = v
			continue
		}
		merged, err := reducer(out.values[k], v)
		if err != nil {
			return State{}, fmt.Errorf("failed to reduce key %s: %w", k, err)
		}
		out.values[k] = merged
	}
	return out, nil
}

// String formats the state as {k1: v1, k2: v2} with keys sorted.
func (s State) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", k, s.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
