package directory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix is prepended to the user ID to form the hash key of a user.
const KeyPrefix = "gradflow:user:"

// HashClient is the subset of the Redis client the directory uses.
type HashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Close() error
}

// Redis reads users from hashes mirrored into Redis by the campus backend.
type Redis struct {
	client HashClient
}

func NewRedis(client HashClient) *Redis {
	return &Redis{client: client}
}

// DialRedis connects to the Redis server named by url.
func DialRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedis(client), nil
}

func (r *Redis) UserByID(ctx context.Context, id int64) (*models.User, error) {
	fields, err := r.client.HGetAll(ctx, KeyPrefix+strconv.FormatInt(id, 10)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user %d: %w", id, err)
	}

	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	entry := Entry{
		ID:       id,
		Username: fields["username"],
		RealName: fields["realname"],
	}

	entry.UserType, err = strconv.Atoi(fields["usertype"])
	if err != nil {
		return nil, fmt.Errorf("user %d has invalid usertype %q", id, fields["usertype"])
	}

	if staff := fields["is_staff"]; staff != "" {
		entry.IsStaff, err = strconv.ParseBool(staff)
		if err != nil {
			return nil, fmt.Errorf("user %d has invalid is_staff %q", id, staff)
		}
	}

	return entry.User()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
