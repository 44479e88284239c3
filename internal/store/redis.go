package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

// DefaultKeyPrefix namespaces panel keys when no prefix is configured.
const DefaultKeyPrefix = "pmo:panel:"

// KV is the key-value surface the Redis store needs. It exists so tests can
// substitute an in-memory map for a server.
type KV interface {
	Get(ctx context.Context, key string) (string, error) // ErrNotFound on a miss
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) (int64, error)
	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// NewRedisClient builds a client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) (int64, error) {
	return r.client.Del(ctx, key).Result()
}

func (r *RedisKV) SAdd(ctx context.Context, key, member string) error {
	return r.client.SAdd(ctx, key, member).Err()
}

func (r *RedisKV) SRem(ctx context.Context, key, member string) error {
	return r.client.SRem(ctx, key, member).Err()
}

func (r *RedisKV) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

// Redis stores each panel under <prefix><panel_id> and tracks the ids in the
// set <prefix>_index. The index key cannot collide with a valid panel id.
type Redis struct {
	kv     KV
	prefix string
}

// NewRedis creates a store on kv.
func NewRedis(kv KV, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{kv: kv, prefix: prefix}
}

func (s *Redis) key(panelID string) string { return s.prefix + panelID }
func (s *Redis) index() string             { return s.prefix + "_index" }

func (s *Redis) Save(ctx context.Context, p *core.Panel) error {
	data, err := encodePanel(p)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key(p.PanelID), string(data)); err != nil {
		return fmt.Errorf("save panel %s: %w", p.PanelID, err)
	}
	if err := s.kv.SAdd(ctx, s.index(), p.PanelID); err != nil {
		return fmt.Errorf("index panel %s: %w", p.PanelID, err)
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, panelID string) (*core.Panel, error) {
	if err := ValidateID(panelID); err != nil {
		return nil, err
	}
	data, err := s.kv.Get(ctx, s.key(panelID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load panel %s: %w", panelID, err)
	}
	return decodePanel(panelID, []byte(data))
}

func (s *Redis) List(ctx context.Context) ([]string, error) {
	ids, err := s.kv.SMembers(ctx, s.index())
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Redis) Delete(ctx context.Context, panelID string) error {
	if err := ValidateID(panelID); err != nil {
		return err
	}
	n, err := s.kv.Del(ctx, s.key(panelID))
	if err != nil {
		return fmt.Errorf("delete panel %s: %w", panelID, err)
	}
	if err := s.kv.SRem(ctx, s.index(), panelID); err != nil {
		return fmt.Errorf("unindex panel %s: %w", panelID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
