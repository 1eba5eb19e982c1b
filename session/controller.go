// Package session implements the controller that orchestrates the
// unlock/lock lifecycle and every mutating vault operation, wiring the
// container, API-key store, in-memory state, authorization evaluator,
// audit log, and IPC server together (spec §4.9).
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arca-vault/arca/apikeystore"
	"github.com/arca-vault/arca/audit"
	"github.com/arca-vault/arca/authz"
	"github.com/arca-vault/arca/backup"
	"github.com/arca-vault/arca/config"
	"github.com/arca-vault/arca/ipc"
	"github.com/arca-vault/arca/vaultcontainer"
	"github.com/arca-vault/arca/vaultcrypto"
	"github.com/arca-vault/arca/vaultmodel"
	"github.com/arca-vault/arca/vaultstate"
	"github.com/arca-vault/arca/vaulterrors"
)

const invalidApiKeyAuditName = "Invalid"

// apiKeyPrefix is prepended to every generated API key (spec §6).
const apiKeyPrefix = "arca_"

// apiKeyRandBytes is the number of random bytes encoded into the
// key material following apiKeyPrefix.
const apiKeyRandBytes = 32

// Controller is the single entry point a CLI or GUI host drives. It is
// safe for concurrent use; mutating operations are serialized by mu in
// the single-writer discipline the spec requires.
type Controller struct {
	paths      config.Paths
	socketPath string

	mu     sync.Mutex
	state  *vaultstate.State
	header vaultcontainer.Header

	auditLog *audit.Log
	server   *ipc.Server
}

// Option configures a Controller.
type Option func(*Controller)

// WithSocketPath overrides the UNIX domain socket path the IPC server
// binds to on Unlock. Defaults to [ipc.SocketPath]. Hosts embedding
// multiple vaults, and tests, use this to avoid colliding on the
// well-known per-user socket.
func WithSocketPath(path string) Option {
	return func(c *Controller) { c.socketPath = path }
}

// New constructs a Controller rooted at paths. The vault starts locked.
func New(paths config.Paths, opts ...Option) *Controller {
	c := &Controller{
		paths:      paths,
		socketPath: ipc.SocketPath(),
		state:      vaultstate.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Create initializes a brand-new, empty vault container at the
// controller's vault path, deriving a fresh salt and key from password.
func (c *Controller) Create(password string) error {
	if password == "" {
		return vaulterrors.ErrEmptyPassword
	}

	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		return err
	}

	key := vaultcrypto.NewArgon2idKDF().Derive([]byte(password), salt)
	defer zeroize(key)

	header := vaultcontainer.Header{
		Version:   vaultcontainer.Version,
		Salt:      salt,
		CreatedAt: time.Now().UTC(),
	}

	return vaultcontainer.Create(c.paths.VaultPath, key, header)
}

// Unlock loads the vault container, derives the key from password using
// the header's stored salt, and — as proof the password is correct —
// decrypts the payload. On success it populates in-memory state and
// starts the IPC server.
func (c *Controller) Unlock(password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsUnlocked() {
		return vaulterrors.ErrAlreadyUnlocked
	}

	header, err := vaultcontainer.ReadHeader(c.paths.VaultPath)
	if err != nil {
		return err
	}

	key := vaultcrypto.NewArgon2idKDF().Derive([]byte(password), header.Salt)

	_, secrets, err := vaultcontainer.Open(c.paths.VaultPath, key)
	if err != nil {
		zeroize(key)
		return err
	}

	if err := c.state.Unlock(key, secrets); err != nil {
		zeroize(key)
		return err
	}

	zeroize(key)

	c.header = header
	c.state.InstallApiKeys(apikeystore.Load(c.paths.KeysPath, c.state.Key()))

	auditLog, err := audit.Open(c.paths.AuditDir)
	if err != nil {
		c.state.Lock()
		return err
	}

	c.auditLog = auditLog

	server := ipc.New(c.socketPath, dispatcherFunc(c.dispatch))
	if err := server.Start(); err != nil {
		c.auditLog.Close()
		c.state.Lock()

		return err
	}

	c.server = server

	return nil
}

// Lock stops the IPC server, flushes and closes the audit log, and
// zeroizes the derived key and secret plaintexts.
func (c *Controller) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server != nil {
		c.server.Stop()
		c.server = nil
	}

	if c.auditLog != nil {
		c.auditLog.Close()
		c.auditLog = nil
	}

	c.state.Lock()
}

// IsUnlocked reports whether the vault is currently unlocked.
func (c *Controller) IsUnlocked() bool {
	return c.state.IsUnlocked()
}

// persistSecrets rewrites the container, under the header read at
// unlock, with the current in-memory secret set. Must be called with mu
// held.
func (c *Controller) persistSecrets() error {
	key := c.state.Key()
	if key == nil {
		return vaulterrors.ErrLocked
	}
	defer zeroize(key)

	return vaultcontainer.Save(c.paths.VaultPath, key, c.header, c.state.Secrets())
}

// persistApiKeys rewrites the API-key store with the current in-memory
// key set. Must be called with mu held.
func (c *Controller) persistApiKeys(keys []vaultmodel.ApiKeyEntry) error {
	key := c.state.Key()
	if key == nil {
		return vaulterrors.ErrLocked
	}
	defer zeroize(key)

	return apikeystore.Save(c.paths.KeysPath, key, keys)
}

// AddSecret inserts a new secret. It is an error if the key already
// exists (case-insensitively).
func (c *Controller) AddSecret(key, value, description string) error {
	if key == "" {
		return vaulterrors.ErrEmptySecretKey
	}

	if value == "" {
		return vaulterrors.ErrEmptySecret
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.Get(key); ok {
		return vaulterrors.New(vaulterrors.KindDuplicate, fmt.Errorf("secret %q already exists", key))
	}

	now := time.Now().UTC()

	c.state.Put(vaultmodel.SecretEntry{
		ID:          uuid.New(),
		Key:         key,
		Value:       value,
		Description: description,
		CreatedAt:   now,
	})

	return c.persistSecrets()
}

// UpdateSecret overwrites the value/description of an existing secret.
func (c *Controller) UpdateSecret(key, value, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.state.Get(key)
	if !ok {
		return vaulterrors.New(vaulterrors.KindNotFound, fmt.Errorf("secret %q not found", key))
	}

	now := time.Now().UTC()
	entry.Value = value
	entry.Description = description
	entry.ModifiedAt = &now

	c.state.Put(entry)

	return c.persistSecrets()
}

// DeleteSecret removes a secret by key.
func (c *Controller) DeleteSecret(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Delete(key) {
		return vaulterrors.New(vaulterrors.KindNotFound, fmt.Errorf("secret %q not found", key))
	}

	return c.persistSecrets()
}

// GetSecret returns a secret by key.
func (c *Controller) GetSecret(key string) (vaultmodel.SecretEntry, bool) {
	return c.state.Get(key)
}

// ListSecrets returns secrets whose key contains the given
// case-insensitive substring filter (empty filter returns all).
func (c *Controller) ListSecrets(filter string) []vaultmodel.SecretEntry {
	return c.state.List(filter)
}

// GenerateApiKey creates and persists a new API key with the given
// permissions, returning the raw key (shown to the caller exactly
// once) and the stored entry.
func (c *Controller) GenerateApiKey(name, description string, perms vaultmodel.ApiKeyPermissions) (string, vaultmodel.ApiKeyEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := newApiKey()
	if err != nil {
		return "", vaultmodel.ApiKeyEntry{}, err
	}

	entry := vaultmodel.ApiKeyEntry{
		ID:          uuid.New(),
		Name:        name,
		KeyHash:     hashApiKey(raw),
		Description: description,
		CreatedAt:   time.Now().UTC(),
		IsActive:    true,
		Permissions: perms,
	}

	keys := c.currentApiKeys()
	keys = append(keys, entry)

	if err := c.persistApiKeys(keys); err != nil {
		return "", vaultmodel.ApiKeyEntry{}, err
	}

	c.state.InstallApiKeys(keys)

	return raw, entry, nil
}

// RevokeApiKey deactivates the API key with the given name.
func (c *Controller) RevokeApiKey(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.currentApiKeys()

	found := false

	for i := range keys {
		if keys[i].Name == name {
			keys[i].IsActive = false
			found = true
		}
	}

	if !found {
		return vaulterrors.New(vaulterrors.KindNotFound, fmt.Errorf("api key %q not found", name))
	}

	if err := c.persistApiKeys(keys); err != nil {
		return err
	}

	c.state.InstallApiKeys(keys)

	return nil
}

func (c *Controller) currentApiKeys() []vaultmodel.ApiKeyEntry {
	key := c.state.Key()
	if key == nil {
		return nil
	}
	defer zeroize(key)

	return apikeystore.Load(c.paths.KeysPath, key)
}

// Export writes an encrypted backup archive of the current vault
// contents to path, protected by its own independent password.
func (c *Controller) Export(path, archivePassword, hostIdentifier string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := backup.BuildPayload(c.state.Secrets(), c.currentApiKeys(), hostIdentifier, time.Now().UTC())

	return backup.Export(path, []byte(archivePassword), payload)
}

// ImportOptions controls how an import merges with the live vault.
type ImportOptions struct {
	OverwriteExisting bool
}

// Import decrypts the archive at path and merges its secrets and API
// keys into the live vault, persisting the result.
func (c *Controller) Import(path, archivePassword string, opts ImportOptions) (backup.ImportResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := backup.Import(path, []byte(archivePassword))
	if err != nil {
		return backup.ImportResult{}, err
	}

	mergedSecrets, secretResult := backup.MergeSecrets(c.state.Secrets(), payload.Secrets, opts.OverwriteExisting, nil)

	for _, s := range mergedSecrets {
		c.state.Put(s)
	}

	if err := c.persistSecrets(); err != nil {
		return backup.ImportResult{}, err
	}

	mergedKeys, keyResult := backup.MergeApiKeys(c.currentApiKeys(), payload.ApiKeys)
	if err := c.persistApiKeys(mergedKeys); err != nil {
		return backup.ImportResult{}, err
	}

	c.state.InstallApiKeys(mergedKeys)

	return backup.ImportResult{
		SecretsImported:    secretResult.SecretsImported,
		SecretsOverwritten: secretResult.SecretsOverwritten,
		SecretsSkipped:     secretResult.SecretsSkipped,
		KeysImported:       keyResult.KeysImported,
		KeysSkipped:        keyResult.KeysSkipped,
	}, nil
}

// AuditRecent returns the most recent audit entries, up to limit.
func (c *Controller) AuditRecent(limit int) []vaultmodel.AuditLogEntry {
	if c.auditLog == nil {
		return nil
	}

	return c.auditLog.Recent(limit)
}

// AuditStatistics returns aggregate statistics over the buffered audit
// window.
func (c *Controller) AuditStatistics() audit.Statistics {
	if c.auditLog == nil {
		return audit.Statistics{}
	}

	return c.auditLog.Statistics()
}

// dispatcherFunc adapts a plain function to the [ipc.Dispatcher]
// interface.
type dispatcherFunc func(string) string

func (f dispatcherFunc) Dispatch(line string) string { return f(line) }

// Dispatch answers a single IPC request line per the protocol's
// dispatcher semantics (spec §4.8). It is exported so it can also be
// exercised directly by hosts and tests without going through a live
// socket connection; the running IPC server calls it identically.
func (c *Controller) Dispatch(line string) string {
	return c.dispatch(line)
}

func (c *Controller) dispatch(line string) string {
	req := ipc.ParseRequest(line)

	requireAuth := c.state.ApiKeyCount() > 0

	switch req.Command {
	case "STATUS":
		authMode := "NO_AUTH"
		if requireAuth {
			authMode = "AUTH_REQUIRED"
		}

		return ipc.OK("UNLOCKED", fmt.Sprintf("%d", c.state.ApiKeyCount()), authMode)

	case "AUTH":
		rawKey := req.Field(0)

		if _, ok := c.authenticate(rawKey); !ok {
			const reasonAuthFailed = "Invalid API Key"

			c.recordAudit(invalidApiKeyAuditName, "", vaultmodel.ActionAuth, "", false, reasonAuthFailed)
			return ipc.Error(reasonAuthFailed)
		}

		return ipc.OK("AUTHENTICATED")

	case "GET", "EXISTS", "LIST", "KEYS":
		return c.dispatchAuthorized(req)

	default:
		return ipc.Error(ipc.ReasonUnknownCommand)
	}
}

func (c *Controller) dispatchAuthorized(req ipc.Request) string {
	requireAuth := c.state.ApiKeyCount() > 0

	var (
		entry vaultmodel.ApiKeyEntry
		ok    = true
	)

	if requireAuth {
		entry, ok = c.authenticate(req.Field(0))
		if !ok {
			c.recordAudit(invalidApiKeyAuditName, "", actionFor(req.Command), req.Field(1), false, ipc.ReasonInvalidApiKey)
			return ipc.Error(ipc.ReasonInvalidApiKey)
		}
	} else {
		entry = vaultmodel.ApiKeyEntry{
			Name:        vaultmodel.AnonymousKeyName,
			ID:          uuid.Nil,
			Permissions: vaultmodel.ApiKeyPermissions{Level: vaultmodel.Full},
		}
	}

	switch req.Command {
	case "GET":
		target := req.Field(1)

		decision := authz.Authorize(entry.Permissions, vaultmodel.ActionGet, target)
		if decision != authz.Allow {
			c.recordAudit(entry.Name, entry.ID.String(), vaultmodel.ActionGet, target, false, ipc.ReasonAccessDeniedSecret)
			return ipc.Error(ipc.ReasonAccessDeniedSecret)
		}

		secret, found := c.state.Get(target)
		if !found {
			c.recordAudit(entry.Name, entry.ID.String(), vaultmodel.ActionGet, target, true, "")
			return ipc.NotFound
		}

		c.recordAudit(entry.Name, entry.ID.String(), vaultmodel.ActionGet, target, true, "")

		return ipc.OK(secret.Value, secret.Description)

	case "EXISTS":
		target := req.Field(1)

		decision := authz.Authorize(entry.Permissions, vaultmodel.ActionExists, target)
		if decision != authz.Allow {
			c.recordAudit(entry.Name, entry.ID.String(), vaultmodel.ActionExists, target, false, "access denied")
			return ipc.False
		}

		_, found := c.state.Get(target)
		c.recordAudit(entry.Name, entry.ID.String(), vaultmodel.ActionExists, target, true, "")

		if found {
			return ipc.True
		}

		return ipc.False

	case "LIST", "KEYS":
		filter := req.Field(1)

		decision := authz.Authorize(entry.Permissions, vaultmodel.ActionList, "")
		if decision != authz.Allow {
			c.recordAudit(entry.Name, entry.ID.String(), vaultmodel.ActionList, "", false, ipc.ReasonAccessDeniedList)
			return ipc.Error(ipc.ReasonAccessDeniedList)
		}

		secrets := c.state.List(filter)

		names := make([]string, 0, len(secrets))
		for _, s := range secrets {
			if !visibleTo(entry.Permissions, s.Key) {
				continue
			}

			names = append(names, s.Key)
		}

		c.recordAudit(entry.Name, entry.ID.String(), vaultmodel.ActionList, "", true, "")

		return ipc.OK(joinCSV(names))

	default:
		return ipc.Error(ipc.ReasonUnknownCommand)
	}
}

// visibleTo reports whether key is one LIST should surface to the
// presented permissions, mirroring the per-secret GET authorization.
func visibleTo(perms vaultmodel.ApiKeyPermissions, key string) bool {
	return authz.Authorize(perms, vaultmodel.ActionGet, key) == authz.Allow
}

func (c *Controller) authenticate(rawKey string) (vaultmodel.ApiKeyEntry, bool) {
	if rawKey == "" {
		return vaultmodel.ApiKeyEntry{}, false
	}

	entry, ok := c.state.LookupApiKey(hashApiKey(rawKey))
	if !ok {
		return vaultmodel.ApiKeyEntry{}, false
	}

	return entry, true
}

func (c *Controller) recordAudit(apiKeyName, apiKeyID string, action vaultmodel.Action, secretKey string, success bool, reason string) {
	if c.auditLog == nil {
		return
	}

	if apiKeyID == "" || apiKeyID == uuid.Nil.String() {
		apiKeyID = vaultmodel.AnonymousKeyID
	}

	c.auditLog.Record(vaultmodel.AuditLogEntry{
		ApiKeyName:   apiKeyName,
		ApiKeyID:     apiKeyID,
		Action:       action,
		SecretKey:    secretKey,
		Success:      success,
		ErrorMessage: reason,
	})
}

func actionFor(command string) vaultmodel.Action {
	switch command {
	case "GET":
		return vaultmodel.ActionGet
	case "EXISTS":
		return vaultmodel.ActionExists
	case "LIST", "KEYS":
		return vaultmodel.ActionList
	default:
		return vaultmodel.ActionUnknown
	}
}

func joinCSV(values []string) string {
	out := ""

	for i, v := range values {
		if i > 0 {
			out += ","
		}

		out += v
	}

	return out
}

// newApiKey returns a new API key string: the "arca_" prefix followed
// by the URL-safe, unpadded base64 encoding of 32 random bytes.
func newApiKey() (string, error) {
	buf := make([]byte, apiKeyRandBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}

	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashApiKey returns the lowercase hexadecimal SHA-256 digest of the
// exact UTF-8 bytes of raw, prefix included.
func hashApiKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
