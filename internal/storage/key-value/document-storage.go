package key_value

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamvkosarev/bappa-chat/internal/model"
	"github.com/redis/go-redis/v9"
)

type DocumentStorage struct {
	rdb redis.Cmdable
}

func NewDocumentStorage(rdb redis.Cmdable) *DocumentStorage {
	return &DocumentStorage{
		rdb: rdb,
	}
}

func (d *DocumentStorage) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := d.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return raw, nil
}

func (d *DocumentStorage) Save(ctx context.Context, key string, value []byte) error {
	if err := d.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}
	return nil
}

func (d *DocumentStorage) Remove(ctx context.Context, key string) error {
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to remove document %s: %w", key, err)
	}
	return nil
}
