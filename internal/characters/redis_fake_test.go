package characters

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the narrow command interfaces the package uses, so
// store and cache tests run without a Redis server.
type fakeRedis struct {
	strings map[string]string
	hashes  map[string]map[string]string

	failures int
	getCalls int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
	}
}

func (fake *fakeRedis) nextFailure() error {
	if fake.failures > 0 {
		fake.failures--
		return redis.ErrClosed
	}
	return nil
}

func (fake *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	fake.getCalls++
	if err := fake.nextFailure(); err != nil {
		return redis.NewStringResult("", err)
	}
	value, ok := fake.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (fake *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if err := fake.nextFailure(); err != nil {
		return redis.NewStatusResult("", err)
	}
	switch typed := value.(type) {
	case string:
		fake.strings[key] = typed
	case []byte:
		fake.strings[key] = string(typed)
	}
	return redis.NewStatusResult("OK", nil)
}

func (fake *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if err := fake.nextFailure(); err != nil {
		return redis.NewIntResult(0, err)
	}
	var removed int64
	for _, key := range keys {
		if _, ok := fake.strings[key]; ok {
			delete(fake.strings, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (fake *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if err := fake.nextFailure(); err != nil {
		return redis.NewIntResult(0, err)
	}
	hash, ok := fake.hashes[key]
	if !ok {
		hash = make(map[string]string)
		fake.hashes[key] = hash
	}
	for index := 0; index+1 < len(values); index += 2 {
		field, _ := values[index].(string)
		value, _ := values[index+1].(string)
		hash[field] = value
	}
	return redis.NewIntResult(int64(len(values) / 2), nil)
}

func (fake *fakeRedis) HGet(ctx context.Context, key string, field string) *redis.StringCmd {
	if err := fake.nextFailure(); err != nil {
		return redis.NewStringResult("", err)
	}
	value, ok := fake.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (fake *fakeRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	if err := fake.nextFailure(); err != nil {
		return redis.NewMapStringStringResult(nil, err)
	}
	snapshot := make(map[string]string, len(fake.hashes[key]))
	for field, value := range fake.hashes[key] {
		snapshot[field] = value
	}
	return redis.NewMapStringStringResult(snapshot, nil)
}

func (fake *fakeRedis) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	if err := fake.nextFailure(); err != nil {
		return redis.NewIntResult(0, err)
	}
	var removed int64
	for _, field := range fields {
		if _, ok := fake.hashes[key][field]; ok {
			delete(fake.hashes[key], field)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}
