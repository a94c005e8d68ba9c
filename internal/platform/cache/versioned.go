package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const (
	versionKey   = "headoffice:cache:version"
	bumpChannel  = "headoffice.cache.bump"
	keyNamespace = "headoffice"
)

type refreshContextKey struct{}

// WithRefresh marks ctx so that FetchJSON skips cached values and reloads.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshContextKey{}, true)
}

// RefreshRequested reports whether ctx was marked by WithRefresh.
func RefreshRequested(ctx context.Context) bool {
	v, _ := ctx.Value(refreshContextKey{}).(bool)
	return v
}

// Versioned caches JSON payloads in Redis under a global version that Bump
// increments, invalidating every key at once.
type Versioned struct {
	client *redis.Client
	ttl    time.Duration
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

// NewVersioned instantiates the cache helper. registerer may be nil.
func NewVersioned(client *redis.Client, ttl time.Duration, registerer prometheus.Registerer) *Versioned {
	v := &Versioned{client: client, ttl: ttl}
	if registerer != nil {
		v.hits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headoffice_cache_hits_total",
			Help: "Report cache hits by report.",
		}, []string{"report"})
		v.misses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headoffice_cache_miss_total",
			Help: "Report cache misses by report.",
		}, []string{"report"})
		registerer.MustRegister(v.hits, v.misses)
	}
	return v
}

// Version returns the current cache version, initialising when missing.
func (c *Versioned) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, versionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes a namespaced key with the current version.
func (c *Versioned) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := keyNamespace + ":" + strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// FetchJSON loads a cached value into dest or populates it using loader.
// Loader errors are returned and nothing is cached.
func (c *Versioned) FetchJSON(ctx context.Context, report string, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	if !RefreshRequested(ctx) {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			c.count(c.hits, report)
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
	}
	c.count(c.misses, report)
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every cached report by incrementing the version and
// publishing it to other instances.
func (c *Versioned) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return 0, err
	}
	return ver, c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation applies version bumps published by other instances
// until ctx is cancelled.
func (c *Versioned) ListenForInvalidation(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				current, err := c.Version(ctx)
				if err == nil && ver > current {
					_ = c.client.Set(ctx, versionKey, ver, 0).Err()
				}
			}
		}
	}()
}

func (c *Versioned) count(vec *prometheus.CounterVec, report string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(report).Inc()
}

func roundTrip(value interface{}, dest interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
