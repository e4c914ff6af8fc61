package cart

import (
	"context"
	"errors"
	"time"

	"github.com/safar/go-storefront/internal/devicestate"
)

// Storage persists carts by key. Update runs fn against the current cart and
// saves the result with its revision bumped; fn errors abort the write.
type Storage interface {
	Load(ctx context.Context, key string) (*Cart, error)
	Update(ctx context.Context, key string, fn func(*Cart) error) (*Cart, error)
	Delete(ctx context.Context, key string) error
}

// FileStorage keeps carts as JSON files on the local device.
type FileStorage struct {
	dir *devicestate.Dir
	now func() time.Time
}

func NewFileStorage(dir *devicestate.Dir) *FileStorage {
	return &FileStorage{dir: dir, now: time.Now}
}

func (s *FileStorage) Load(_ context.Context, key string) (*Cart, error) {
	c := &Cart{}
	if err := s.dir.Read(key, c); err != nil {
		if errors.Is(err, devicestate.ErrNotFound) {
			return New(), nil
		}
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *FileStorage) Update(_ context.Context, key string, fn func(*Cart) error) (*Cart, error) {
	c := &Cart{}
	err := s.dir.Modify(key, c, func(found bool) error {
		if !found {
			*c = *New()
		}
		if err := c.check(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.Revision++
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *FileStorage) Delete(_ context.Context, key string) error {
	return s.dir.Remove(key)
}
