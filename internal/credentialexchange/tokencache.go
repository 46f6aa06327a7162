package credentialexchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/werf/lockgate"
	"github.com/werf/lockgate/pkg/file_locker"
)

var (
	ErrCacheCorrupt        = errors.New("token cache content is corrupt")
	ErrCannotLockDir       = errors.New("unable to create lock dir")
	ErrUnableToAcquireLock = errors.New("cannot acquire lock")
)

// TokenSet is the triple produced by a successful user pool login.
// TokenExpires is always the id token's own expiry, downstream
// credential expiry never leaks into it.
type TokenSet struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	TokenExpires time.Time
}

func (t TokenSet) Empty() bool {
	return t.IDToken == "" && t.AccessToken == "" && t.RefreshToken == ""
}

// tokenDocument is the serialized cache format.
type tokenDocument struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenExpires string `json:"token_expires"`
}

// CacheBackend is a whole-document sink for the serialized token set.
// Read returns nil content when the backend holds nothing yet.
type CacheBackend interface {
	Read() ([]byte, error)
	Write(doc []byte) error
	Clear() error
}

// TokenCache persists the token triple through a pluggable backend.
type TokenCache struct {
	backend CacheBackend
}

func NewTokenCache(backend CacheBackend) *TokenCache {
	return &TokenCache{backend: backend}
}

// Store replaces the cached document with the given token set.
func (c *TokenCache) Store(tokens TokenSet) error {
	doc := tokenDocument{
		IDToken:      tokens.IDToken,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenExpires: tokens.TokenExpires.Format(time.RFC3339),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return c.backend.Write(b)
}

// Load returns the cached token set, or a zero set when the backend is
// empty. Non-empty unparsable content is ErrCacheCorrupt - never silently
// discarded, it could mask a real storage problem.
func (c *TokenCache) Load() (TokenSet, error) {
	b, err := c.backend.Read()
	if err != nil {
		return TokenSet{}, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return TokenSet{}, nil
	}

	doc := tokenDocument{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return TokenSet{}, fmt.Errorf("%s, %w", err, ErrCacheCorrupt)
	}

	tokens := TokenSet{
		IDToken:      doc.IDToken,
		AccessToken:  doc.AccessToken,
		RefreshToken: doc.RefreshToken,
	}
	if doc.TokenExpires != "" {
		expires, err := time.Parse(time.RFC3339, doc.TokenExpires)
		if err != nil {
			return TokenSet{}, fmt.Errorf("%s, %w", err, ErrCacheCorrupt)
		}
		tokens.TokenExpires = expires
	}
	return tokens, nil
}

// Clear drops the cached document from the backend.
func (c *TokenCache) Clear() error {
	return c.backend.Clear()
}

// FileBackend stores the document at an addressable path, guarded by a
// file lock so concurrent processes never interleave partial writes.
type FileBackend struct {
	path         string
	locker       lockgate.Locker
	lockResource string
}

func NewFileBackend(path string) (*FileBackend, error) {
	lockDir := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s-lock", SELF_NAME))
	locker, err := file_locker.NewFileLocker(lockDir)
	if err != nil {
		return nil, fmt.Errorf("cannot setup lock dir: %s, %w", lockDir, ErrCannotLockDir)
	}
	return &FileBackend{
		path:         path,
		locker:       locker,
		lockResource: filepath.Base(path),
	}, nil
}

func (f *FileBackend) WithLocker(locker lockgate.Locker) *FileBackend {
	f.locker = locker
	return f
}

func (f *FileBackend) ensureLock() (func(), error) {
	acquired, lock, err := f.locker.Acquire(f.lockResource, lockgate.AcquireOptions{Shared: false, Timeout: 1 * time.Minute})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToAcquireLock)
	}
	if !acquired {
		return nil, ErrUnableToAcquireLock
	}
	return func() {
		if err := f.locker.Release(lock); err != nil {
			Writeln("failed to release lock: %v", err)
		}
	}, nil
}

func (f *FileBackend) Read() ([]byte, error) {
	release, err := f.ensureLock()
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (f *FileBackend) Write(doc []byte) error {
	release, err := f.ensureLock()
	if err != nil {
		return err
	}
	defer release()

	return os.WriteFile(f.path, doc, 0600)
}

func (f *FileBackend) Clear() error {
	release, err := f.ensureLock()
	if err != nil {
		return err
	}
	defer release()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryBackend keeps the document in process memory, useful for
// ephemeral sessions and test doubles.
type MemoryBackend struct {
	mu  sync.Mutex
	doc []byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc, nil
}

func (m *MemoryBackend) Write(doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = append([]byte(nil), doc...)
	return nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = nil
	return nil
}
