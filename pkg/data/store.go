package data

import (
	"errors"
	"fmt"
	"log/slog"
)

// DefaultQuota mirrors the usual browser local-storage budget.
const DefaultQuota = 5 << 20

var (
	// ErrQuotaExceeded is returned by Set when the write would push the store past its quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrClosed        = errors.New("storage closed")
	ErrNotFound      = errors.New("not found")
)

// KV is a durable, string-keyed store with a fixed quota.
// A missing key is reported with ok=false and is never an error.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(keys ...string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

const (
	BackendDuckDB = "duckdb"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type StoreOptions struct {
	Backend  string
	Path     string
	RedisURL string
	Quota    int64
}

// OpenStore returns the KV backend named by opts.Backend.
func OpenStore(opts StoreOptions, log *slog.Logger) (KV, error) {
	switch opts.Backend {
	case BackendDuckDB, "":
		return NewDuckDBStore(opts.Path, opts.Quota)
	case BackendRedis:
		return NewRedisStore(opts.RedisURL, opts.Quota, log)
	case BackendMemory:
		return NewMemoryStore(opts.Quota), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
