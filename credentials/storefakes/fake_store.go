package storefakes

import (
	"sync"

	"github.com/jamsesh/go-jamsesh-client/credentials"
	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store for tests. ReadErr and
// WriteErr, when set, are returned by every Get and Set/Delete respectively,
// to exercise storage-failure paths.
type FakeStore struct {
	values map[string]string
	lock   sync.RWMutex

	ReadErr  error
	WriteErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[string]string)}
}

func (fs *FakeStore) Get(key string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.ReadErr != nil {
		return "", fs.ReadErr
	}
	value, ok := fs.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return value, nil
}

func (fs *FakeStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.WriteErr != nil {
		return fs.WriteErr
	}
	fs.values[key] = value
	return nil
}

func (fs *FakeStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.WriteErr != nil {
		return fs.WriteErr
	}
	delete(fs.values, key)
	return nil
}

// Len reports how many secrets are currently stored.
func (fs *FakeStore) Len() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return len(fs.values)
}
