package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return &AppError{Kind: KindNotFound, Err: err, Status: http.StatusNotFound, Message: RedisNotFoundMessage}
	}

	return &AppError{Kind: KindStorage, Err: err, Status: http.StatusBadGateway, Message: RedisErrorMessage}
}
