// Package vaultstate holds the in-memory representation of an unlocked
// vault (spec §4.5): the derived key, the secrets keyed case-insensitively,
// and the set of active API keys keyed by hash. It performs no I/O —
// callers persist changes through the vaultcontainer and apikeystore
// packages.
package vaultstate

import (
	"sort"
	"strings"
	"sync"

	"github.com/arca-vault/arca/vaultmodel"
	"github.com/arca-vault/arca/vaulterrors"
)

// State is the live, unlocked vault: a derived key plus the secrets and
// API keys it protects. The zero value is locked.
type State struct {
	mu sync.RWMutex

	key     []byte                            // nil when locked
	secrets map[string]vaultmodel.SecretEntry // keyed by NormalizedKey
	apiKeys map[string]vaultmodel.ApiKeyEntry // keyed by KeyHash
}

// New returns a locked State.
func New() *State {
	return &State{}
}

// Unlock installs the derived key and the decrypted secrets, moving the
// state from locked to unlocked. It is an error to unlock an
// already-unlocked state.
func (s *State) Unlock(key []byte, secrets []vaultmodel.SecretEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return vaulterrors.New(vaulterrors.KindIoError, vaulterrors.ErrAlreadyUnlocked)
	}

	s.key = append([]byte(nil), key...)

	s.secrets = make(map[string]vaultmodel.SecretEntry, len(secrets))
	for _, entry := range secrets {
		s.secrets[vaultmodel.NormalizedKey(entry.Key)] = entry
	}

	s.apiKeys = make(map[string]vaultmodel.ApiKeyEntry)

	return nil
}

// Lock zeroizes the derived key and drops all secret plaintexts. It is
// idempotent: locking an already-locked state is a no-op.
func (s *State) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	zeroize(s.key)
	s.key = nil

	for k := range s.secrets {
		delete(s.secrets, k)
	}

	s.secrets = nil
	s.apiKeys = nil
}

// IsUnlocked reports whether the vault currently holds a derived key.
func (s *State) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.key != nil
}

// Key returns a copy of the derived key, or nil if locked.
func (s *State) Key() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil
	}

	return append([]byte(nil), s.key...)
}

// Get returns the secret stored under key (case-insensitive lookup).
func (s *State) Get(key string) (vaultmodel.SecretEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.secrets[vaultmodel.NormalizedKey(key)]

	return entry, ok
}

// Put inserts or replaces the secret stored under entry.Key.
func (s *State) Put(entry vaultmodel.SecretEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[vaultmodel.NormalizedKey(entry.Key)] = entry
}

// Delete removes the secret stored under key, reporting whether it was
// present.
func (s *State) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := vaultmodel.NormalizedKey(key)

	if _, ok := s.secrets[norm]; !ok {
		return false
	}

	delete(s.secrets, norm)

	return true
}

// List returns all secrets, sorted by key, optionally filtered to keys
// containing a case-insensitive substring.
func (s *State) List(filter string) []vaultmodel.SecretEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	norm := vaultmodel.NormalizedKey(filter)

	out := make([]vaultmodel.SecretEntry, 0, len(s.secrets))
	for k, entry := range s.secrets {
		if norm != "" && !strings.Contains(k, norm) {
			continue
		}

		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}

// Secrets returns every secret entry, unsorted, for export/backup use.
func (s *State) Secrets() []vaultmodel.SecretEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vaultmodel.SecretEntry, 0, len(s.secrets))
	for _, entry := range s.secrets {
		out = append(out, entry)
	}

	return out
}

// InstallApiKeys replaces the active API key set, keyed by hash.
func (s *State) InstallApiKeys(keys []vaultmodel.ApiKeyEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apiKeys = make(map[string]vaultmodel.ApiKeyEntry, len(keys))
	for _, k := range keys {
		if !k.IsActive {
			continue
		}

		s.apiKeys[k.KeyHash] = k
	}
}

// LookupApiKey finds an active key by its hash.
func (s *State) LookupApiKey(hash string) (vaultmodel.ApiKeyEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.apiKeys[hash]

	return entry, ok
}

// ApiKeyCount returns the number of active API keys, used to decide
// whether the IPC server requires authentication.
func (s *State) ApiKeyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.apiKeys)
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
