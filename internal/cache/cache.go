// Package cache memoizes multi-symbol prediction sweeps. Entries are keyed by
// the full parameter tuple and never evicted.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/util"
)

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is a blob store keyed by string.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
	Close() error
}

// Params is the parameter tuple a sweep result depends on.
type Params struct {
	Selector   string `json:"selector"`
	Interval   string `json:"interval"`
	Operate    string `json:"operate"`
	Mode       string `json:"mode"`
	Tuning     string `json:"tuning"`
	Buy        string `json:"buy"`
	Sell       string `json:"sell"`
	Condition  string `json:"condition"`
	DataPath   string `json:"data_path"`
	TargetDate string `json:"target_date"`
}

// Key derives the cache key for p. An empty target date becomes the
// trading day before now, so that a day's sweep is shared until the next
// session closes.
func Key(p Params, now time.Time) string {
	if p.TargetDate == "" {
		p.TargetDate = util.PreviousTradingDay(now).Format(domain.DateLayout)
	}
	// Marshalling a struct of strings cannot fail.
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the value stored under key, or calls compute, stores
// its result and returns it. hit reports whether compute was skipped. A nil
// store always computes. Store failures are logged and degrade to compute.
func GetOrCompute[T any](ctx context.Context, s Store, key string, logger *slog.Logger, compute func(context.Context) (T, error)) (v T, hit bool, err error) {
	if s == nil {
		v, err = compute(ctx)
		return v, false, err
	}

	blob, gerr := s.Get(ctx, key)
	switch {
	case gerr == nil:
		uerr := json.Unmarshal(blob, &v)
		if uerr == nil {
			return v, true, nil
		}
		logger.Warn("cache entry undecodable, recomputing", "key", key, "error", uerr)
	case !errors.Is(gerr, ErrMiss):
		logger.Warn("cache read failed, recomputing", "key", key, "error", gerr)
	}

	v, err = compute(ctx)
	if err != nil {
		return v, false, err
	}
	blob, merr := json.Marshal(v)
	if merr != nil {
		logger.Warn("cache value unencodable", "key", key, "error", merr)
		return v, false, nil
	}
	if perr := s.Put(ctx, key, blob); perr != nil {
		logger.Warn("cache write failed", "key", key, "error", perr)
	}
	return v, false, nil
}

// New opens the backend selected by cfg. The "none" backend returns a nil
// Store.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
