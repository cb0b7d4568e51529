package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/bytedance/sonic"
)

// Codec serializes checkpoint state for the JSON-based stores. Every value is
// wrapped in a {"type", "value"} envelope; values whose Go type is registered in
// the TypeRegistry are decoded back into that type, the rest decode the way
// encoding/json decodes into an interface (numbers become float64).
type Codec struct {
	registry *TypeRegistry
	api      sonic.API
}

// NewCodec creates a codec over registry. A nil registry means NewTypeRegistry().
func NewCodec(registry *TypeRegistry) *Codec {
	if registry == nil {
		registry = NewTypeRegistry()
	}
	return &Codec{
		registry: registry,
		api:      sonic.ConfigStd,
	}
}

// Registry returns the codec's type registry.
func (c *Codec) Registry() *TypeRegistry {
	return c.registry
}

type envelope struct {
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value"`
}

// MarshalValue encodes a single value with its type name.
func (c *Codec) MarshalValue(value any) ([]byte, error) {
	env, err := c.wrap(value)
	if err != nil {
		return nil, err
	}
	return c.api.Marshal(env)
}

// UnmarshalValue decodes a value written by MarshalValue.
func (c *Codec) UnmarshalValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var env envelope
	if err := c.api.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value envelope: %w", err)
	}
	return c.unwrap(env)
}

// MarshalState encodes a state map.
func (c *Codec) MarshalState(values map[string]any) ([]byte, error) {
	wrapped := make(map[string]envelope, len(values))
	for k, v := range values {
		env, err := c.wrap(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal state key %s: %w", k, err)
		}
		wrapped[k] = env
	}
	return c.api.Marshal(wrapped)
}

// UnmarshalState decodes a state map written by MarshalState.
func (c *Codec) UnmarshalState(data []byte) (map[string]any, error) {
	var wrapped map[string]envelope
	if err := c.api.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	values := make(map[string]any, len(wrapped))
	for k, env := range wrapped {
		v, err := c.unwrap(env)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal state key %s: %w", k, err)
		}
		values[k] = v
	}
	return values, nil
}

type checkpointRecord struct {
	ThreadID       string          `json:"thread_id"`
	State          json.RawMessage `json:"state"`
	PendingNode    string          `json:"pending_node"`
	Step           int             `json:"step"`
	Version        int             `json:"version"`
	InterruptValue json.RawMessage `json:"interrupt_value,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MarshalCheckpoint encodes a whole checkpoint as one JSON document.
func (c *Codec) MarshalCheckpoint(cp *Checkpoint) ([]byte, error) {
	state, err := c.MarshalState(cp.State)
	if err != nil {
		return nil, err
	}
	rec := checkpointRecord{
		ThreadID:    cp.ThreadID,
		State:       state,
		PendingNode: cp.PendingNode,
		Step:        cp.Step,
		Version:     cp.Version,
		Metadata:    cp.Metadata,
		CreatedAt:   cp.CreatedAt,
		UpdatedAt:   cp.UpdatedAt,
	}
	if cp.InterruptValue != nil {
		if rec.InterruptValue, err = c.MarshalValue(cp.InterruptValue); err != nil {
			return nil, fmt.Errorf("failed to marshal interrupt value: %w", err)
		}
	}
	return c.api.Marshal(rec)
}

// UnmarshalCheckpoint decodes a document written by MarshalCheckpoint.
func (c *Codec) UnmarshalCheckpoint(data []byte) (*Checkpoint, error) {
	var rec checkpointRecord
	if err := c.api.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	state, err := c.UnmarshalState(rec.State)
	if err != nil {
		return nil, err
	}
	interruptValue, err := c.UnmarshalValue(rec.InterruptValue)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal interrupt value: %w", err)
	}
	return &Checkpoint{
		ThreadID:       rec.ThreadID,
		State:          state,
		PendingNode:    rec.PendingNode,
		Step:           rec.Step,
		Version:        rec.Version,
		InterruptValue: interruptValue,
		Metadata:       rec.Metadata,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}, nil
}

func (c *Codec) wrap(value any) (envelope, error) {
	raw, err := c.api.Marshal(value)
	if err != nil {
		return envelope{}, err
	}
	env := envelope{Value: raw}
	if value != nil {
		if name, ok := c.registry.GetTypeName(reflect.TypeOf(value)); ok {
			env.Type = name
		}
	}
	return env, nil
}

func (c *Codec) unwrap(env envelope) (any, error) {
	if len(env.Value) == 0 || string(env.Value) == "null" {
		return nil, nil
	}
	if env.Type == "" {
		var v any
		if err := c.api.Unmarshal(env.Value, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	t, ok := c.registry.GetTypeByName(env.Type)
	if !ok {
		return nil, fmt.Errorf("unknown type: %s", env.Type)
	}
	ptr := reflect.New(t)
	if err := c.api.Unmarshal(env.Value, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", env.Type, err)
	}
	return ptr.Elem().Interface(), nil
}
