package redis

import (
	"context"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/go-redis/redis/v8"
)

const tokenKeyPrefix = "token:"

type AuthRedisCache struct {
	rdb         *redis.Client
	tokenExpiry time.Duration
}

// VerifyToken returns the user a token was issued for and slides its expiry.
func (a *AuthRedisCache) VerifyToken(ctx context.Context, token string) (string, string, error) {
	key := tokenKeyPrefix + token
	values, err := a.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return "", "", err
	}
	id, email := values["id"], values["email"]
	if id == "" || email == "" {
		return "", "", domain.ErrInvalidToken
	}
	if err := a.rdb.Expire(ctx, key, a.tokenExpiry).Err(); err != nil {
		return "", "", err
	}
	return id, email, nil
}

func (a *AuthRedisCache) GenerateAndSaveToken(ctx context.Context, email string, id string) (string, error) {
	token := util.RandomString(50)
	key := tokenKeyPrefix + token
	_, err := a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := pipe.HSet(ctx, key, "id", id, "email", email).Err(); err != nil {
			return err
		}
		return pipe.Expire(ctx, key, a.tokenExpiry).Err()
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (a *AuthRedisCache) DeleteToken(ctx context.Context, token string) error {
	return a.rdb.Del(ctx, tokenKeyPrefix+token).Err()
}

func (a *AuthRedisCache) GetTokenExpiry() time.Duration {
	return a.tokenExpiry
}

func NewAuthRedisCache(rdb *redis.Client, tokenExpiry time.Duration) *AuthRedisCache {
	return &AuthRedisCache{
		rdb:         rdb,
		tokenExpiry: tokenExpiry,
	}
}
