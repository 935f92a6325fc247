package redis

import (
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/bidmarkt/goapi/base/ctx"
)

// Forever is the expire value for keys without TTL
const Forever = time.Duration(-1)

var (
	// ErrNotFound is returned when the key does not exist
	ErrNotFound = errors.New("redis key not found")

	// ErrNotSet is returned by SetNX when the key already exists
	ErrNotSet = errors.New("redis key not set")

	// ErrNoTTL is returned by TTL when the key has no associated expire
	ErrNoTTL = errors.New("redis key has no ttl")

	// ErrExpireNotExistOrTimeout is returned by Expire when the key does
	// not exist or the timeout could not be set
	ErrExpireNotExistOrTimeout = errors.New("key not exist or timeout can not be set")

	// ErrGapTime is returned when no pool is available to serve the command
	ErrGapTime = errors.New("pool unavailable during gap time")
)

// Service provides interface for redis commands
type Service interface {
	Get(context ctx.Ctx, key string) (val []byte, err error)
	Set(context ctx.Ctx, key string, val []byte, expire time.Duration) error

	// SetNX sets the key only if it does not exist yet. Returns
	// ErrNotSet if the key is already there.
	SetNX(context ctx.Ctx, key string, val []byte, expire time.Duration) error

	// SetStruct stores exported fields of a struct as a redis hash
	SetStruct(context ctx.Ctx, key string, val interface{}, expire time.Duration) error

	// GetStruct restores a struct stored by SetStruct. Returns
	// ErrNotFound if the key does not exist.
	GetStruct(context ctx.Ctx, key string, val interface{}) error

	Del(context ctx.Ctx, ks ...string) (int, error)
	Incr(context ctx.Ctx, key string) (int64, error)
	Incrby(context ctx.Ctx, key string, val int) (int64, error)
	Expire(context ctx.Ctx, key string, ttl time.Duration) error
	Exists(context ctx.Ctx, key string) (bool, error)
	TTL(context ctx.Ctx, key string) (int, error)
}

// ByteMap converts a redis reply of alternating field/value bulk
// strings into a map, in the manner of redigo's StringMap.
func ByteMap(result interface{}, err error) (map[string][]byte, error) {
	values, err := redis.Values(result, err)
	if err != nil {
		return nil, err
	}
	if len(values)%2 != 0 {
		return nil, errors.New("ByteMap expects even number of values result")
	}
	m := make(map[string][]byte, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].([]byte)
		if !ok {
			return nil, errors.New("ByteMap key not a bulk string value")
		}
		value, ok := values[i+1].([]byte)
		if !ok {
			return nil, errors.New("ByteMap value not a bulk string value")
		}
		m[string(key)] = value
	}
	return m, nil
}
