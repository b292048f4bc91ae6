//go:build js && wasm
// +build js,wasm

package kv

import (
	"context"
	"strings"
	"syscall/js"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage mimics the Storage interface; setItem throws once a value
// exceeds quota characters and every method throws when blocked is set.
const fakeStorage = `
const items = new Map();
const state = { blocked: false };
return {
  state,
  getItem(k) {
    if (state.blocked) throw new Error("SecurityError: access denied");
    return items.has(k) ? items.get(k) : null;
  },
  setItem(k, v) {
    if (state.blocked) throw new Error("SecurityError: access denied");
    if (String(v).length > quota) throw new Error("QuotaExceededError: quota exceeded");
    items.set(k, String(v));
  },
  removeItem(k) {
    if (state.blocked) throw new Error("SecurityError: access denied");
    items.delete(k);
  },
};
`

func installLocalStorage(t *testing.T, quota int) js.Value {
	t.Helper()
	storage := js.Global().Get("Function").New("quota", fakeStorage).Invoke(quota)
	js.Global().Set("localStorage", storage)
	t.Cleanup(func() { js.Global().Delete("localStorage") })
	return storage
}

func TestLocalStorage(t *testing.T) {
	installLocalStorage(t, 1<<20)
	exerciseStore(t, NewLocalStorage())
}

func TestLocalStorage_Quota(t *testing.T) {
	installLocalStorage(t, 8)
	s := NewLocalStorage()

	require.NoError(t, s.Set(context.Background(), "k", "small"))
	assert.ErrorIs(t, s.Set(context.Background(), "k", strings.Repeat("x", 9)), ErrQuotaExceeded)

	v, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "small", v)
}

func TestLocalStorage_Blocked(t *testing.T) {
	storage := installLocalStorage(t, 1<<20)
	s := NewLocalStorage()
	storage.Get("state").Set("blocked", true)

	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Set(context.Background(), "k", "v"), ErrUnavailable)
	assert.ErrorIs(t, s.Delete(context.Background(), "k"), ErrUnavailable)
}

func TestLocalStorage_Missing(t *testing.T) {
	js.Global().Delete("localStorage")
	s := NewLocalStorage()

	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}
