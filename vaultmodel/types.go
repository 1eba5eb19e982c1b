// Package vaultmodel defines the entity types shared across the vault
// container, the in-memory state, the authorization evaluator, the IPC
// server, and the audit log.
package vaultmodel

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SecretEntry is a single named secret value held in the vault.
type SecretEntry struct {
	ID          uuid.UUID  `json:"id"`
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
}

// NormalizedKey returns the case-insensitive lookup form of the secret's key.
func NormalizedKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// AccessLevel classifies the breadth of an API key's authorization.
type AccessLevel int

const (
	// Full grants unconditional access to every secret and to listing.
	Full AccessLevel = iota

	// Restricted grants access only to the secrets and prefixes named in
	// the key's permission set.
	Restricted

	// ReadOnly is retained for client-format compatibility with legacy
	// exports but is evaluated identically to Restricted (see
	// DESIGN.md's Open Questions decision).
	ReadOnly
)

func (l AccessLevel) String() string {
	switch l {
	case Full:
		return "Full"
	case Restricted:
		return "Restricted"
	case ReadOnly:
		return "ReadOnly"
	default:
		return "Unknown"
	}
}

// ParseAccessLevel parses the string form used by the backup codec.
func ParseAccessLevel(s string) (AccessLevel, bool) {
	switch s {
	case "Full":
		return Full, true
	case "Restricted":
		return Restricted, true
	case "ReadOnly":
		return ReadOnly, true
	default:
		return 0, false
	}
}

// ApiKeyPermissions is the permission set attached to an API key.
type ApiKeyPermissions struct {
	Level           AccessLevel `json:"level"`
	AllowedSecrets  []string    `json:"allowed_secrets"`
	AllowedPrefixes []string    `json:"allowed_prefixes"`
	CanList         bool        `json:"can_list"`
}

// IsEmpty reports whether a Restricted/ReadOnly permission set grants no
// secret access at all.
func (p ApiKeyPermissions) IsEmpty() bool {
	return len(p.AllowedSecrets) == 0 && len(p.AllowedPrefixes) == 0
}

// ApiKeyEntry is a stored, hashed API key and its permissions.
type ApiKeyEntry struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	KeyHash     string            `json:"key_hash"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUsedAt  *time.Time        `json:"last_used_at,omitempty"`
	IsActive    bool              `json:"is_active"`
	Permissions ApiKeyPermissions `json:"permissions"`
}

// Action is an IPC operation subject to authorization.
type Action int

const (
	ActionGet Action = iota
	ActionExists
	ActionList
	ActionAuth
	ActionStatus
	ActionUnknown
)

func (a Action) String() string {
	switch a {
	case ActionGet:
		return "GET"
	case ActionExists:
		return "EXISTS"
	case ActionList:
		return "LIST"
	case ActionAuth:
		return "AUTH"
	case ActionStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

// AuditLogEntry records the outcome of a single IPC request.
type AuditLogEntry struct {
	ID           uuid.UUID `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ApiKeyName   string    `json:"api_key_name"`
	ApiKeyID     string    `json:"api_key_id"`
	Action       Action    `json:"action"`
	SecretKey    string    `json:"secret_key,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// MarshalJSON renders Action using its wire name instead of its int value.
func (e AuditLogEntry) MarshalJSON() ([]byte, error) {
	type alias AuditLogEntry

	return json.Marshal(struct {
		alias
		Action string `json:"action"`
	}{alias(e), e.Action.String()})
}

// UnmarshalJSON parses Action from its wire name.
func (e *AuditLogEntry) UnmarshalJSON(data []byte) error {
	type alias AuditLogEntry

	aux := struct {
		alias
		Action string `json:"action"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*e = AuditLogEntry(aux.alias)
	e.Action = parseAction(aux.Action)

	return nil
}

func parseAction(s string) Action {
	switch s {
	case "GET":
		return ActionGet
	case "EXISTS":
		return ActionExists
	case "LIST":
		return ActionList
	case "AUTH":
		return ActionAuth
	case "STATUS":
		return ActionStatus
	default:
		return ActionUnknown
	}
}

// AnonymousKeyName and AnonymousKeyID represent the no-auth mode.
const (
	AnonymousKeyName = "Anonymous"
	AnonymousKeyID   = "N/A"
)
