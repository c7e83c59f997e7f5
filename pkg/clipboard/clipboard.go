// Package clipboard moves skill-tree tokens over shared storage.
//
// A token is the whole tree as one string, so "copy" and "paste" between
// machines only need a key-value store. [Board] validates tokens, stores
// them under a short share code derived from their content, and looks them
// up again by code:
//
//	board := clipboard.New(clipboard.NewFileBackend(dir), 0)
//	code, err := board.Write(ctx, tok) // e.g. "3f9a0c12be47"
//	tok, err = board.Read(ctx, code)
//
// # Backends
//
// Storage is pluggable through [Backend]:
//   - [NullBackend]: stores nothing, every read misses
//   - [MemoryBackend]: process-local map, for tests and single-process hosts
//   - [FileBackend]: one JSON file per entry, for the CLI
//   - [SQLiteBackend]: a single database file shared by local processes
//   - [RedisBackend]: Redis, for multi-instance servers
//   - [MongoBackend]: MongoDB, with a TTL index for expiry
//
// [Open] builds a board from a [Config].
package clipboard

import (
	"context"
	"errors"
	"time"

	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/observability"
	"github.com/matzehuels/skilltree/pkg/token"
)

// keyPrefix namespaces clipboard entries in shared stores.
const keyPrefix = "clip:"

// Backend is the key-value storage behind a Board.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Get returns the stored value. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Board stores tokens in a Backend under content-derived share codes.
type Board struct {
	backend Backend
	ttl     time.Duration
}

// New creates a board. Entries expire after ttl; zero keeps them forever.
func New(b Backend, ttl time.Duration) *Board {
	return &Board{backend: b, ttl: ttl}
}

// Backend returns the underlying storage.
func (b *Board) Backend() Backend { return b.backend }

// Write validates tok and stores it, returning its share code. Writing the
// same token twice yields the same code.
func (b *Board) Write(ctx context.Context, tok string) (code string, err error) {
	defer func() {
		observability.Clipboard().OnWrite(b.backend.Name(), len(tok), err)
	}()

	if _, err := token.Decode(tok); err != nil {
		return "", err
	}
	code = Code(tok)
	err = RetryWithBackoff(ctx, func() error {
		return b.backend.Set(ctx, keyPrefix+code, []byte(tok), b.ttl)
	})
	if err != nil {
		return "", wrapBackend(err, "write %s", code)
	}
	return code, nil
}

// Read returns the token stored under code.
// Returns INVALID_CODE for malformed codes and NOT_FOUND on a miss.
func (b *Board) Read(ctx context.Context, code string) (tok string, err error) {
	var hit bool
	defer func() {
		observability.Clipboard().OnRead(b.backend.Name(), hit, err)
	}()

	if err := errs.ValidateShareCode(code); err != nil {
		return "", err
	}
	var data []byte
	err = RetryWithBackoff(ctx, func() error {
		var err error
		data, hit, err = b.backend.Get(ctx, keyPrefix+code)
		return err
	})
	if err != nil {
		return "", wrapBackend(err, "read %s", code)
	}
	if !hit {
		return "", errs.New(errs.ErrCodeNotFound, "no token under code %s", code)
	}
	return string(data), nil
}

// Delete removes the token stored under code.
func (b *Board) Delete(ctx context.Context, code string) error {
	if err := errs.ValidateShareCode(code); err != nil {
		return err
	}
	if err := b.backend.Delete(ctx, keyPrefix+code); err != nil {
		return wrapBackend(err, "delete %s", code)
	}
	return nil
}

// Close closes the backend.
func (b *Board) Close() error { return b.backend.Close() }

// wrapBackend keeps coded errors from backends and marks the rest internal.
func wrapBackend(err error, format string, args ...any) error {
	switch {
	case errs.GetCode(err) != "":
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrCodeTimeout, err, format, args...)
	default:
		return errs.Wrap(errs.ErrCodeInternal, err, format, args...)
	}
}
