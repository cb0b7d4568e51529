package store

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type approvalDecision struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer"`
}

type toolCall struct {
	Name string `json:"name"`
	Args string `json:"args"`
}

func TestTypeRegistry_Builtins(t *testing.T) {
	registry := NewTypeRegistry()

	name, ok := registry.GetTypeName(reflect.TypeFor[string]())
	assert.True(t, ok)
	assert.Equal(t, "string", name)

	typ, ok := registry.GetTypeByName("[]string")
	assert.True(t, ok)
	assert.Equal(t, reflect.Slice, typ.Kind())

	_, ok = registry.GetTypeName(reflect.TypeFor[uint8]())
	assert.False(t, ok)
}

func TestTypeRegistry_RegisterType(t *testing.T) {
	registry := NewTypeRegistry()

	t.Run("register struct type", func(t *testing.T) {
		err := RegisterType[approvalDecision](registry, "ApprovalDecision")
		assert.NoError(t, err)

		typ, ok := registry.GetTypeByName("ApprovalDecision")
		assert.True(t, ok)
		assert.Equal(t, "approvalDecision", typ.Name())
	})

	t.Run("registering the same pair twice is allowed", func(t *testing.T) {
		assert.NoError(t, RegisterType[approvalDecision](registry, "ApprovalDecision"))
	})

	t.Run("same type with different name fails", func(t *testing.T) {
		err := RegisterType[approvalDecision](registry, "Decision")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already registered as ApprovalDecision")
	})

	t.Run("same name with different type fails", func(t *testing.T) {
		err := RegisterType[toolCall](registry, "ApprovalDecision")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already registered for type")
	})

	t.Run("empty name fails", func(t *testing.T) {
		assert.Error(t, RegisterType[toolCall](registry, ""))
	})

	t.Run("nil type fails", func(t *testing.T) {
		assert.Error(t, registry.Register(nil, "Nil"))
	})
}
