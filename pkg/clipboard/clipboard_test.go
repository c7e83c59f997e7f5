package clipboard

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

const sampleToken = `[[["0",350,250,"Central Skill",true],["1",470,250,"Go",false]],[["0","1"]],true]`

var errNetwork = errors.New("network error")

func init() {
	retryDelay = time.Millisecond
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()
	fb, err := NewFileBackend(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	sb, err := NewSQLiteBackend(filepath.Join(dir, "clip.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend: %v", err)
	}
	t.Cleanup(func() { sb.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fb,
		"sqlite": sb,
	}
}

func TestBackends(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if b.Name() != name {
				t.Errorf("Name = %q, want %q", b.Name(), name)
			}

			// Miss before Set
			_, hit, err := b.Get(ctx, "clip:missing")
			if err != nil || hit {
				t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
			}

			if err := b.Set(ctx, "clip:a", []byte("value"), 0); err != nil {
				t.Fatalf("Set: %v", err)
			}
			data, hit, err := b.Get(ctx, "clip:a")
			if err != nil || !hit || string(data) != "value" {
				t.Fatalf("Get = %q, %v, %v", data, hit, err)
			}

			// Overwrite
			if err := b.Set(ctx, "clip:a", []byte("other"), time.Hour); err != nil {
				t.Fatalf("Set: %v", err)
			}
			data, _, _ = b.Get(ctx, "clip:a")
			if string(data) != "other" {
				t.Errorf("after overwrite Get = %q", data)
			}

			if err := b.Delete(ctx, "clip:a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, hit, _ := b.Get(ctx, "clip:a"); hit {
				t.Error("Get after Delete should miss")
			}
			if err := b.Delete(ctx, "clip:a"); err != nil {
				t.Errorf("Delete of missing key: %v", err)
			}
		})
	}
}

func TestBackendsExpire(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Set(ctx, "clip:ttl", []byte("v"), time.Millisecond); err != nil {
				t.Fatalf("Set: %v", err)
			}
			time.Sleep(20 * time.Millisecond)
			if _, hit, _ := b.Get(ctx, "clip:ttl"); hit {
				t.Error("expired entry should miss")
			}
		})
	}
}

func TestNullBackend(t *testing.T) {
	ctx := context.Background()
	b := NewNullBackend()
	defer b.Close()

	if err := b.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	_, hit, err := b.Get(ctx, "key")
	if err != nil || hit {
		t.Error("NullBackend should not store data")
	}
}

func TestBoardRoundTrip(t *testing.T) {
	ctx := context.Background()
	board := New(NewMemoryBackend(), time.Hour)

	code, err := board.Write(ctx, sampleToken)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if code != Code(sampleToken) || len(code) != CodeLength {
		t.Errorf("code = %q", code)
	}
	if err := errs.ValidateShareCode(code); err != nil {
		t.Errorf("code is not a valid share code: %v", err)
	}

	again, _ := board.Write(ctx, sampleToken)
	if again != code {
		t.Errorf("same token gave codes %q and %q", code, again)
	}

	got, err := board.Read(ctx, code)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != sampleToken {
		t.Errorf("Read = %q", got)
	}

	if err := board.Delete(ctx, code); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := board.Read(ctx, code); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("Read after Delete err = %v, want NOT_FOUND", err)
	}
}

func TestBoardRejects(t *testing.T) {
	ctx := context.Background()
	board := New(NewMemoryBackend(), 0)

	if _, err := board.Write(ctx, "not a token"); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Write(garbage) err = %v, want INVALID_INPUT", err)
	}
	if _, err := board.Write(ctx, `[[],[]]`); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Write(empty tree) err = %v, want INVALID_INPUT", err)
	}
	for _, code := range []string{"", "xyz", strings.Repeat("A", CodeLength), "../../etc/pa"} {
		if _, err := board.Read(ctx, code); !errs.Is(err, errs.ErrCodeInvalidCode) {
			t.Errorf("Read(%q) err = %v, want INVALID_CODE", code, err)
		}
	}
}

func TestBoardNullMisses(t *testing.T) {
	ctx := context.Background()
	board := New(NewNullBackend(), 0)
	code, err := board.Write(ctx, sampleToken)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := board.Read(ctx, code); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("Read err = %v, want NOT_FOUND", err)
	}
}

// flaky fails the first n Set calls with a retryable error.
type flaky struct {
	*MemoryBackend
	n, calls int
}

func (f *flaky) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	f.calls++
	if f.calls <= f.n {
		return Retryable(errs.Wrap(errs.ErrCodeNetwork, errNetwork, "set"))
	}
	return f.MemoryBackend.Set(ctx, key, data, ttl)
}

func TestBoardRetries(t *testing.T) {
	ctx := context.Background()

	b := &flaky{MemoryBackend: NewMemoryBackend(), n: 2}
	if _, err := New(b, 0).Write(ctx, sampleToken); err != nil {
		t.Fatalf("Write should succeed on third attempt: %v", err)
	}

	b = &flaky{MemoryBackend: NewMemoryBackend(), n: 5}
	_, err := New(b, 0).Write(ctx, sampleToken)
	if !errs.Is(err, errs.ErrCodeNetwork) {
		t.Errorf("err = %v, want NETWORK_ERROR", err)
	}
	if b.calls != 3 {
		t.Errorf("calls = %d, want 3", b.calls)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Backend: "", Dir: dir}, "file"},
		{Config{Backend: BackendNull}, "null"},
		{Config{Backend: BackendMemory}, "memory"},
		{Config{Backend: BackendSQLite, Dir: filepath.Join(dir, "db")}, "sqlite"},
	}
	for _, tt := range tests {
		board, err := Open(ctx, tt.cfg)
		if err != nil {
			t.Fatalf("Open(%+v): %v", tt.cfg, err)
		}
		if got := board.Backend().Name(); got != tt.want {
			t.Errorf("backend = %q, want %q", got, tt.want)
		}
		board.Close()
	}

	if _, err := Open(ctx, Config{Backend: "s3"}); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("unknown backend err = %v", err)
	}
	if _, err := Open(ctx, Config{Backend: BackendFile}); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("file without dir err = %v", err)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return errNetwork
	})
	if err != errNetwork || calls != 1 {
		t.Errorf("non-retryable: err %v, calls %d", err, calls)
	}

	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	if got := Retryable(errNetwork).Error(); got != errNetwork.Error() {
		t.Errorf("message not preserved: %s", got)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestCode(t *testing.T) {
	if Code("a") != Code("a") {
		t.Error("Code should be deterministic")
	}
	if Code("a") == Code("b") {
		t.Error("different tokens should produce different codes")
	}
	if len(Hash([]byte("x"))) != 64 {
		t.Error("Hash should be 64 hex characters")
	}
}
