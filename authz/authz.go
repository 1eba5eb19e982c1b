// Package authz implements the pure authorization evaluator consulted
// before every dispatched IPC request (spec §4.6). It holds no state of
// its own and performs no I/O: given a key's permissions, an action, and
// an optional target secret, it returns a [Decision].
package authz

import (
	"strings"

	"github.com/arca-vault/arca/vaultmodel"
)

// Decision is the outcome of evaluating a request against a key's
// permissions.
type Decision int

const (
	// Allow means the request may proceed to the store.
	Allow Decision = iota

	// DenyHidden means the request is refused but the refusal must not
	// disclose whether the target secret exists — callers must answer
	// as if the target is simply absent (EXISTS -> FALSE).
	DenyHidden

	// DenyExplicit means the request is refused and an explicit access
	// error may be returned to the caller (LIST, GET).
	DenyExplicit
)

// Authorize evaluates whether perms grants action on target (target is
// ignored for actions that do not name a secret).
func Authorize(perms vaultmodel.ApiKeyPermissions, action vaultmodel.Action, target string) Decision {
	switch action {
	case vaultmodel.ActionAuth, vaultmodel.ActionStatus:
		return Allow
	}

	if perms.Level == vaultmodel.Full {
		return Allow
	}

	// Restricted and ReadOnly are evaluated identically.
	switch action {
	case vaultmodel.ActionList:
		if perms.CanList {
			return Allow
		}

		return DenyExplicit

	case vaultmodel.ActionGet:
		if matches(perms, target) {
			return Allow
		}

		return DenyExplicit

	case vaultmodel.ActionExists:
		if matches(perms, target) {
			return Allow
		}

		return DenyHidden

	default:
		return DenyExplicit
	}
}

// matches reports whether target is covered by the key's allowed secret
// names or allowed prefixes, case-insensitively. A trailing "*" on a
// prefix entry is ignored for matching purposes.
func matches(perms vaultmodel.ApiKeyPermissions, target string) bool {
	normalizedTarget := vaultmodel.NormalizedKey(target)

	for _, secret := range perms.AllowedSecrets {
		if vaultmodel.NormalizedKey(secret) == normalizedTarget {
			return true
		}
	}

	for _, prefix := range perms.AllowedPrefixes {
		prefix = strings.TrimSuffix(prefix, "*")
		if strings.HasPrefix(normalizedTarget, vaultmodel.NormalizedKey(prefix)) {
			return true
		}
	}

	return false
}
