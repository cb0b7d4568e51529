package store

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// TypeRegistry maps Go types to stable names so that state values written by a
// JSON-based store can be decoded back into their original types.
type TypeRegistry struct {
	mu             sync.RWMutex
	typeNameToType map[string]reflect.Type
	typeToName     map[reflect.Type]string
}

// NewTypeRegistry creates a registry preloaded with the builtin types:
// string, bool, int, int64, float64, []string, []any, map[string]any and time.Time.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		typeNameToType: make(map[string]reflect.Type),
		typeToName:     make(map[reflect.Type]string),
	}
	builtins := map[string]reflect.Type{
		"string":         reflect.TypeFor[string](),
		"bool":           reflect.TypeFor[bool](),
		"int":            reflect.TypeFor[int](),
		"int64":          reflect.TypeFor[int64](),
		"float64":        reflect.TypeFor[float64](),
		"[]string":       reflect.TypeFor[[]string](),
		"[]any":          reflect.TypeFor[[]any](),
		"map[string]any": reflect.TypeFor[map[string]any](),
		"time":           reflect.TypeFor[time.Time](),
	}
	for name, t := range builtins {
		r.typeNameToType[name] = t
		r.typeToName[t] = name
	}
	return r
}

// Register registers t under typeName. Registering the same pair twice is a no-op;
// reusing a name or a type with a different counterpart is an error.
func (r *TypeRegistry) Register(t reflect.Type, typeName string) error {
	if t == nil {
		return fmt.Errorf("cannot register nil type")
	}
	if typeName == "" {
		return fmt.Errorf("type %s needs a non-empty name", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existingName, ok := r.typeToName[t]; ok && existingName != typeName {
		return fmt.Errorf("type %v already registered as %s", t, existingName)
	}
	if existingType, ok := r.typeNameToType[typeName]; ok && existingType != t {
		return fmt.Errorf("name %s already registered for type %v", typeName, existingType)
	}

	r.typeNameToType[typeName] = t
	r.typeToName[t] = typeName
	return nil
}

// RegisterType registers T under typeName.
//
//	reg := store.NewTypeRegistry()
//	_ = store.RegisterType[Approval](reg, "Approval")
func RegisterType[T any](r *TypeRegistry, typeName string) error {
	return r.Register(reflect.TypeFor[T](), typeName)
}

// GetTypeByName returns the reflect.Type for a registered type name.
func (r *TypeRegistry) GetTypeByName(typeName string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.typeNameToType[typeName]
	return t, ok
}

// GetTypeName returns the registered name for a type.
func (r *TypeRegistry) GetTypeName(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.typeToName[t]
	return name, ok
}
