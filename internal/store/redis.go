package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisScanBatch = 100

// RedisStore keeps one JSON value per user under <prefix>user:<email>.
// Add relies on SETNX, so two processes racing on the same email cannot
// both create a record.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(email string) string {
	return s.prefix + "user:" + email
}

func (s *RedisStore) Find(ctx context.Context, email string) (*models.User, error) {
	data, err := s.client.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, wrap("get user", err)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, wrap("decode user", err)
	}
	return &user, nil
}

func (s *RedisStore) Add(ctx context.Context, email string) (*models.User, error) {
	user, err := newUser(email)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, wrap("encode user", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(email), data, 0).Result()
	if err != nil {
		return nil, wrap("set user", err)
	}
	if !ok {
		return nil, ErrDuplicateIdentity
	}
	return user, nil
}

func (s *RedisStore) List(ctx context.Context) ([]models.User, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"user:*", redisScanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("scan users", err)
	}

	users := make([]models.User, 0, len(keys))
	for start := 0; start < len(keys); start += redisScanBatch {
		end := min(start+redisScanBatch, len(keys))
		values, err := s.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, wrap("get users", err)
		}
		for _, v := range values {
			raw, ok := v.(string)
			if !ok {
				// removed between SCAN and MGET
				continue
			}
			var user models.User
			if err := json.Unmarshal([]byte(raw), &user); err != nil {
				return nil, wrap("decode user", err)
			}
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *RedisStore) Remove(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(email)).Result()
	if err != nil {
		return false, wrap("delete user", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrap("ping redis", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
