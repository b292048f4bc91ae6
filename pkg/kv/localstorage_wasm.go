//go:build js && wasm
// +build js,wasm

package kv

import (
	"context"
	"fmt"
	"strings"
	"syscall/js"
)

// LocalStorage is a Store backed by the browser's window.localStorage.
type LocalStorage struct {
	storage js.Value
}

// NewLocalStorage returns a store over window.localStorage. Accessing
// localStorage can throw (private mode, disabled storage); such failures are
// reported as ErrUnavailable on each call.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{storage: js.Global().Get("localStorage")}
}

func (l *LocalStorage) Get(_ context.Context, key string) (value string, ok bool, err error) {
	defer recoverJS(&err)
	if !l.storage.Truthy() {
		return "", false, ErrUnavailable
	}
	v := l.storage.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return "", false, nil
	}
	return v.String(), true, nil
}

func (l *LocalStorage) Set(_ context.Context, key, value string) (err error) {
	defer recoverJS(&err)
	if !l.storage.Truthy() {
		return ErrUnavailable
	}
	l.storage.Call("setItem", key, value)
	return nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) (err error) {
	defer recoverJS(&err)
	if !l.storage.Truthy() {
		return ErrUnavailable
	}
	l.storage.Call("removeItem", key)
	return nil
}

// recoverJS converts a thrown JS exception into an error.
func recoverJS(err *error) {
	r := recover()
	if r == nil {
		return
	}
	msg := fmt.Sprint(r)
	if strings.Contains(msg, "QuotaExceeded") {
		*err = fmt.Errorf("%w: %s", ErrQuotaExceeded, msg)
		return
	}
	*err = fmt.Errorf("%w: %s", ErrUnavailable, msg)
}
