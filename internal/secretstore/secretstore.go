// Package secretstore implements the encrypted blob backing secrets.tomb:
// an opaque capability {unlock(key), get(id), put(id,val), reset(key)} keyed
// by a caller-supplied hex key. The contract module treats this as a black
// box and only ever sees locked/unlocked, never the derived key material.
package secretstore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"uwizard/internal/logging"
)

const (
	keyLen  = 32 // WIZARD_KEY is 64 hex chars = 32 raw bytes.
	saltLen = 16
	hkdfInfo = "uwizard-secretstore-v1"
)

// ErrorKind is the closed set of ways a secret-store operation can fail.
type ErrorKind string

const (
	ErrLocked     ErrorKind = "locked"
	ErrBadKey     ErrorKind = "bad_key"
	ErrIO         ErrorKind = "io"
	ErrNotFound   ErrorKind = "not_found"
	ErrCorrupted  ErrorKind = "corrupted"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// tomb is the on-disk shape of secrets.tomb: an opaque, authenticated blob.
// Salt is persisted so re-unlocking with the same raw key always derives the
// same encryption key, independent of process restarts.
type tomb struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store is the secret store at a fixed path. Construction never touches
// disk; call Unlock to load and decrypt, or Reset to destroy-and-reseed.
type Store struct {
	path string

	mu       sync.RWMutex
	unlocked bool
	salt     [saltLen]byte
	encKey   [keyLen]byte
	entries  map[string]string
}

// Open returns a Store bound to path. The store starts locked.
func Open(path string) *Store {
	return &Store{path: path, entries: make(map[string]string)}
}

// Locked reports whether the store holds no derived key in memory, i.e.
// neither Unlock nor Reset has succeeded yet.
func (s *Store) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.unlocked
}

// Unlock attempts to open the store with hexKey (WIZARD_KEY). A missing tomb
// file is not an error: the store unlocks empty under a fresh salt, and
// nothing is written to disk until the first Put.
func (s *Store) Unlock(hexKey string) error {
	raw, err := decodeKey(hexKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		var salt [saltLen]byte
		if _, err := rand.Read(salt[:]); err != nil {
			return newErr(ErrIO, "generate salt: %v", err)
		}
		s.salt = salt
		s.encKey = deriveKey(raw, salt[:])
		s.entries = make(map[string]string)
		s.unlocked = true
		return nil
	}
	if err != nil {
		return newErr(ErrIO, "read tomb: %v", err)
	}

	var t tomb
	if err := json.Unmarshal(data, &t); err != nil {
		return newErr(ErrCorrupted, "tomb file is not valid JSON: %v", err)
	}
	if len(t.Salt) != saltLen {
		return newErr(ErrCorrupted, "tomb salt has unexpected length %d", len(t.Salt))
	}
	var salt [saltLen]byte
	copy(salt[:], t.Salt)
	encKey := deriveKey(raw, salt[:])

	var nonce [24]byte
	if len(t.Nonce) != len(nonce) {
		return newErr(ErrCorrupted, "tomb nonce has unexpected length %d", len(t.Nonce))
	}
	copy(nonce[:], t.Nonce)

	plain, ok := secretbox.Open(nil, t.Ciphertext, &nonce, &encKey)
	if !ok {
		return newErr(ErrLocked, "wrong key or corrupted tomb")
	}

	entries := make(map[string]string)
	if len(plain) > 0 {
		if err := json.Unmarshal(plain, &entries); err != nil {
			return newErr(ErrCorrupted, "decrypted payload is not valid JSON: %v", err)
		}
	}

	s.salt = salt
	s.encKey = encKey
	s.entries = entries
	s.unlocked = true
	return nil
}

// Get reads one entry. Requires the store to be unlocked.
func (s *Store) Get(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.unlocked {
		return "", newErr(ErrLocked, "secret store is locked")
	}
	v, ok := s.entries[id]
	if !ok {
		return "", newErr(ErrNotFound, "no secret entry %q", id)
	}
	return v, nil
}

// Put upserts one entry and persists the whole encrypted blob, mirroring the
// whole-structure rewrite-on-every-mutation pattern used for account state.
func (s *Store) Put(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked {
		return newErr(ErrLocked, "secret store is locked")
	}
	s.entries[id] = value
	return s.persistLocked()
}

// Reset destroys any existing tomb and reseeds an empty store under a fresh
// random salt, with the encryption key derived from hexKey. This is the repair path for secret_store_locked
// drift: a controlled destroy-and-reseed, never a silent partial recovery.
func (s *Store) Reset(hexKey string) error {
	raw, err := decodeKey(hexKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var salt [saltLen]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return newErr(ErrIO, "generate salt: %v", err)
	}

	s.salt = salt
	s.encKey = deriveKey(raw, salt[:])
	s.entries = make(map[string]string)
	s.unlocked = true

	log := logging.Get(logging.CategorySecretStore)
	log.Warn("secret store reset (destroy-and-reseed) at %s", s.path)

	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	plain, err := json.Marshal(s.entries)
	if err != nil {
		return newErr(ErrIO, "marshal entries: %v", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return newErr(ErrIO, "generate nonce: %v", err)
	}

	ciphertext := secretbox.Seal(nil, plain, &nonce, &s.encKey)

	t := tomb{Salt: s.salt[:], Nonce: nonce[:], Ciphertext: ciphertext}
	data, err := json.Marshal(t)
	if err != nil {
		return newErr(ErrIO, "marshal tomb: %v", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return newErr(ErrIO, "mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return newErr(ErrIO, "write tomb: %v", err)
	}
	return nil
}

func decodeKey(hexKey string) ([]byte, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, newErr(ErrBadKey, "WIZARD_KEY is not valid hex: %v", err)
	}
	if len(raw) != keyLen {
		return nil, newErr(ErrBadKey, "WIZARD_KEY must decode to %d bytes, got %d", keyLen, len(raw))
	}
	return raw, nil
}

func deriveKey(raw, salt []byte) [keyLen]byte {
	r := hkdf.New(sha256.New, raw, salt, []byte(hkdfInfo))
	var out [keyLen]byte
	_, _ = r.Read(out[:])
	return out
}

// b64 base64-encodes b; nothing in this package or its tests calls it.
func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
