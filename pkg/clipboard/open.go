package clipboard

import (
	"context"
	"os"
	"path/filepath"
	"time"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

// Backend names accepted by Open.
const (
	BackendNull   = "null"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	TTL     time.Duration

	// Dir is the root for the file backend and the default location of the
	// SQLite database.
	Dir        string
	SQLitePath string
	Redis      RedisConfig
	Mongo      MongoConfig
}

// Open builds a board for cfg. An empty backend name selects the file
// backend.
func Open(ctx context.Context, cfg Config) (*Board, error) {
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(b, cfg.TTL), nil
}

func openBackend(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case BackendNull:
		return NewNullBackend(), nil
	case BackendMemory:
		return NewMemoryBackend(), nil
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, errs.New(errs.ErrCodeInvalidInput, "file clipboard needs a directory")
		}
		return NewFileBackend(cfg.Dir)
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			if cfg.Dir == "" {
				return nil, errs.New(errs.ErrCodeInvalidInput, "sqlite clipboard needs a path")
			}
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return nil, err
			}
			path = filepath.Join(cfg.Dir, "clipboard.db")
		}
		return NewSQLiteBackend(path)
	case BackendRedis:
		return NewRedisBackend(ctx, cfg.Redis)
	case BackendMongo:
		return NewMongoBackend(ctx, cfg.Mongo)
	default:
		return nil, errs.New(errs.ErrCodeInvalidInput, "unknown clipboard backend %q", cfg.Backend)
	}
}
