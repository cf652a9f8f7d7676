package in_memory

import (
	"context"
	"sync"

	"github.com/iamvkosarev/bappa-chat/internal/model"
)

type DocumentStorage struct {
	mu        sync.RWMutex
	documents map[string][]byte
}

func NewDocumentStorage() *DocumentStorage {
	return &DocumentStorage{
		documents: make(map[string][]byte),
	}
}

func (d *DocumentStorage) Load(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.documents[key]
	if !ok {
		return nil, model.ErrDocumentNotFound
	}
	return append([]byte(nil), value...), nil
}

func (d *DocumentStorage) Save(_ context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.documents[key] = append([]byte(nil), value...)
	return nil
}

func (d *DocumentStorage) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.documents, key)
	return nil
}
