package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	// argon2id parameters
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// fileEnvelope is the on-disk layout. The secretbox payload is the JSON
// encoding of the key/value map; salt and nonce are regenerated on every
// write.
type fileEnvelope struct {
	Salt  string `json:"salt"`
	Nonce string `json:"nonce"`
	Box   string `json:"box"`
}

// FileStore is an encrypted-at-rest Store backed by a single file. The
// sealing key is derived from a passphrase with argon2id and the payload is
// sealed with nacl/secretbox. A missing file behaves as an empty store.
type FileStore struct {
	path       string
	passphrase []byte
	lock       sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path, passphrase string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}
	if passphrase == "" {
		return nil, errors.New("[NewFileStore] passphrase is required")
	}
	return &FileStore{path: path, passphrase: []byte(passphrase)}, nil
}

func (fs *FileStore) Get(key string) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	values, err := fs.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrNotFound, "[FileStore.Get] %q", key)
	}
	return value, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	values, err := fs.load()
	if err != nil {
		return err
	}
	values[key] = value
	return fs.save(values)
}

func (fs *FileStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	values, err := fs.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return fs.save(values)
}

func (fs *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.load] read %s: %v", fs.path, err)
	}

	var envelope fileEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.load] parse envelope: %v", err)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil || len(salt) != saltLength {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.load] bad salt")
	}
	rawNonce, err := base64.StdEncoding.DecodeString(envelope.Nonce)
	if err != nil || len(rawNonce) != nonceLength {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.load] bad nonce")
	}
	box, err := base64.StdEncoding.DecodeString(envelope.Box)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.load] bad box")
	}

	var nonce [nonceLength]byte
	copy(nonce[:], rawNonce)
	key := fs.deriveKey(salt)

	payload, ok := secretbox.Open(nil, box, &nonce, key)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.load] cannot open box (wrong passphrase?)")
	}

	values := map[string]string{}
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.load] parse payload: %v", err)
	}
	return values, nil
}

func (fs *FileStore) save(values map[string]string) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.save] marshal payload: %v", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.save] rand salt: %v", err)
	}
	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.save] rand nonce: %v", err)
	}

	key := fs.deriveKey(salt)
	box := secretbox.Seal(nil, payload, &nonce, key)

	envelope := fileEnvelope{
		Salt:  base64.StdEncoding.EncodeToString(salt),
		Nonce: base64.StdEncoding.EncodeToString(nonce[:]),
		Box:   base64.StdEncoding.EncodeToString(box),
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.save] marshal envelope: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.save] mkdir: %v", err)
	}
	if err := os.WriteFile(fs.path, raw, 0o600); err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "[FileStore.save] write %s: %v", fs.path, err)
	}
	return nil
}

func (fs *FileStore) deriveKey(salt []byte) *[keyLength]byte {
	derived := argon2.IDKey(fs.passphrase, salt, argonTime, argonMemory, argonThreads, keyLength)
	var key [keyLength]byte
	copy(key[:], derived)
	return &key
}
