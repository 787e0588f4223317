package session

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Storage is the durable key-value boundary the session survives process
// restarts in. Implementations must treat a missing key as (nil, false, nil).
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// KeyringStorage persists values in the OS credential store, scoped by
// service name. This is the default boundary for real installs.
type KeyringStorage struct {
	Service string
}

func (k KeyringStorage) Get(key string) ([]byte, bool, error) {
	v, err := keyring.Get(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (k KeyringStorage) Set(key string, value []byte) error {
	return keyring.Set(k.Service, key, string(value))
}

func (k KeyringStorage) Delete(key string) error {
	err := keyring.Delete(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// FileStorage persists values as files under Dir, for environments without a
// usable OS keyring (headless boxes, CI). When Passphrase is non-empty the
// value is sealed with an scrypt-derived chacha20poly1305 key; otherwise it
// is written plain with 0600 permissions.
type FileStorage struct {
	Dir        string
	Passphrase string

	mu sync.Mutex
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.Dir, key+".json")
}

func (f *FileStorage) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if f.Passphrase == "" {
		return blob, true, nil
	}
	raw, err := openEnvelope(f.Passphrase, blob)
	if err != nil {
		return nil, false, fmt.Errorf("decrypt %s: %w", key, err)
	}
	return raw, true, nil
}

func (f *FileStorage) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return err
	}
	blob := value
	if f.Passphrase != "" {
		sealed, err := sealEnvelope(f.Passphrase, value)
		if err != nil {
			return err
		}
		blob = sealed
	}
	return os.WriteFile(f.path(key), blob, 0o600)
}

func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStorage is an in-process boundary for tests.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// scrypt envelope. A fresh salt per write means a fresh key per write, so a
// fixed nonce is safe.
type envelope struct {
	Salt []byte `json:"salt"`
	CT   []byte `json:"ct"`
}

func scryptParams() (N, r, p int) { return 1 << 15, 8, 1 }

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	N, r, p := scryptParams()
	return scrypt.Key([]byte(passphrase), salt, N, r, p, chacha20poly1305.KeySize)
}

func sealEnvelope(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	ct := aead.Seal(nil, nonce, plaintext, salt)
	return json.Marshal(envelope{Salt: salt, CT: ct})
}

func openEnvelope(passphrase string, blob []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, err
	}
	key, err := deriveKey(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	return aead.Open(nil, nonce, env.CT, env.Salt)
}
