package clipboard

import (
	"context"
	"time"
)

// NullBackend is a backend that never stores anything.
// Useful when sharing is disabled.
type NullBackend struct{}

// NewNullBackend creates a null backend.
func NewNullBackend() *NullBackend { return &NullBackend{} }

func (*NullBackend) Name() string { return "null" }

// Get always misses.
func (*NullBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set does nothing.
func (*NullBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (*NullBackend) Delete(context.Context, string) error { return nil }

// Close does nothing.
func (*NullBackend) Close() error { return nil }

var _ Backend = (*NullBackend)(nil)
