// Package credentials persists the two session secrets (the access and
// refresh bearer tokens) across process restarts. The store holds nothing
// else; session state proper is rebuilt at every start via the session
// manager's Restore.
package credentials

import (
	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
	"github.com/pkg/errors"
)

// Keys under which the session secrets are persisted. These are the only
// keys the SDK ever writes.
const (
	AccessKey  = "access"
	RefreshKey = "refresh"
)

// Store is a durable key/value store for the credential pair. Implementations
// must be safe for concurrent use. Get returns an error satisfying
// errors.Is(err, apperrors.ErrNotFound) when the key is absent; Delete of an
// absent key is not an error.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// SetPair persists both tokens of a freshly issued credential pair.
func SetPair(s Store, access, refresh string) error {
	if err := s.Set(AccessKey, access); err != nil {
		return errors.Wrap(err, "[SetPair] access")
	}
	if err := s.Set(RefreshKey, refresh); err != nil {
		return errors.Wrap(err, "[SetPair] refresh")
	}
	return nil
}

// Clear erases both tokens. Both deletes are attempted even if the first
// fails.
func Clear(s Store) error {
	accessErr := s.Delete(AccessKey)
	refreshErr := s.Delete(RefreshKey)
	if accessErr != nil {
		return errors.Wrap(accessErr, "[Clear] access")
	}
	if refreshErr != nil {
		return errors.Wrap(refreshErr, "[Clear] refresh")
	}
	return nil
}

// Read fetches a key, mapping both absence and storage failures to "no
// credential present", per the read-path policy for restore and request
// dispatch. The error is returned for logging only.
func Read(s Store, key string) (string, bool, error) {
	value, err := s.Get(key)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, value != "", nil
}
