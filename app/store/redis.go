package store

import (
	"context"
	"errors"
	"fmt"

	log "github.com/go-pkgz/lgr"
	"github.com/redis/go-redis/v9"

	"github.com/umputun/flipper/app/rotation"
)

// DefaultRedisKey used when RedisParams.Key is empty
const DefaultRedisKey = "flipper:states"

// RedisParams defines connection to redis server
type RedisParams struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Redis keeps states as a single JSON value under one key
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to redis and checks the connection with ping
func NewRedis(ctx context.Context, params RedisParams) (*Redis, error) {
	if params.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	key := params.Key
	if key == "" {
		key = DefaultRedisKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     params.Addr,
		Password: params.Password,
		DB:       params.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("can't connect to redis %s: %w", params.Addr, err)
	}
	return &Redis{client: client, key: key}, nil
}

// Load gets states from the key, missing key means no saved states
func (r *Redis) Load(ctx context.Context) (rotation.States, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			log.Printf("[INFO] no saved task states in redis key %s, starting fresh", r.key)
			return rotation.States{}, nil
		}
		return rotation.States{}, fmt.Errorf("can't get %s from redis: %w", r.key, err)
	}
	return decode(data)
}

// Save overwrites the key with states
func (r *Redis) Save(ctx context.Context, states rotation.States) error {
	data, err := encode(states)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("can't set %s in redis: %w", r.key, err)
	}
	return nil
}

// Close closes redis client
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) String() string { return "redis:" + r.key }
