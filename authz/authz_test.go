package authz_test

import (
	"testing"

	"github.com/arca-vault/arca/authz"
	"github.com/arca-vault/arca/vaultmodel"
)

func TestAuthorize_FullAllowsEverything(t *testing.T) {
	perms := vaultmodel.ApiKeyPermissions{Level: vaultmodel.Full}

	for _, action := range []vaultmodel.Action{
		vaultmodel.ActionGet, vaultmodel.ActionExists, vaultmodel.ActionList,
		vaultmodel.ActionAuth, vaultmodel.ActionStatus,
	} {
		if got := authz.Authorize(perms, action, "anything"); got != authz.Allow {
			t.Errorf("action %v: got %v, want Allow", action, got)
		}
	}
}

func TestAuthorize_EmptyRestrictedDeniesAllGetExists(t *testing.T) {
	perms := vaultmodel.ApiKeyPermissions{Level: vaultmodel.Restricted}

	if got := authz.Authorize(perms, vaultmodel.ActionGet, "db"); got != authz.DenyExplicit {
		t.Errorf("GET: got %v, want DenyExplicit", got)
	}

	if got := authz.Authorize(perms, vaultmodel.ActionExists, "db"); got != authz.DenyHidden {
		t.Errorf("EXISTS: got %v, want DenyHidden", got)
	}
}

func TestAuthorize_CanListFalseDeniesList(t *testing.T) {
	perms := vaultmodel.ApiKeyPermissions{Level: vaultmodel.Restricted, CanList: false}

	if got := authz.Authorize(perms, vaultmodel.ActionList, ""); got != authz.DenyExplicit {
		t.Errorf("got %v, want DenyExplicit", got)
	}

	perms.CanList = true
	if got := authz.Authorize(perms, vaultmodel.ActionList, ""); got != authz.Allow {
		t.Errorf("got %v, want Allow", got)
	}
}

func TestAuthorize_AllowedSecretsCaseInsensitive(t *testing.T) {
	perms := vaultmodel.ApiKeyPermissions{
		Level:          vaultmodel.Restricted,
		AllowedSecrets: []string{"DB-Password"},
	}

	if got := authz.Authorize(perms, vaultmodel.ActionGet, "db-password"); got != authz.Allow {
		t.Errorf("got %v, want Allow", got)
	}

	if got := authz.Authorize(perms, vaultmodel.ActionGet, "other"); got != authz.DenyExplicit {
		t.Errorf("got %v, want DenyExplicit", got)
	}
}

func TestAuthorize_AllowedPrefixMatch(t *testing.T) {
	perms := vaultmodel.ApiKeyPermissions{
		Level:           vaultmodel.Restricted,
		AllowedPrefixes: []string{"ci-*"},
	}

	if got := authz.Authorize(perms, vaultmodel.ActionGet, "ci-token"); got != authz.Allow {
		t.Errorf("got %v, want Allow", got)
	}

	if got := authz.Authorize(perms, vaultmodel.ActionGet, "other"); got != authz.DenyExplicit {
		t.Errorf("got %v, want DenyExplicit", got)
	}
}

func TestAuthorize_ReadOnlyTreatedAsRestricted(t *testing.T) {
	perms := vaultmodel.ApiKeyPermissions{
		Level:          vaultmodel.ReadOnly,
		AllowedSecrets: []string{"db"},
		CanList:        true,
	}

	if got := authz.Authorize(perms, vaultmodel.ActionGet, "db"); got != authz.Allow {
		t.Errorf("got %v, want Allow", got)
	}

	if got := authz.Authorize(perms, vaultmodel.ActionGet, "other"); got != authz.DenyExplicit {
		t.Errorf("got %v, want DenyExplicit", got)
	}

	if got := authz.Authorize(perms, vaultmodel.ActionList, ""); got != authz.Allow {
		t.Errorf("got %v, want Allow", got)
	}
}

func TestAuthorize_ExistsNonDisclosure(t *testing.T) {
	perms := vaultmodel.ApiKeyPermissions{Level: vaultmodel.Restricted}

	// Whether "db" exists in the vault or not is irrelevant to this
	// evaluator — it only ever sees the key's permissions and the
	// requested name, so a denial is always DenyHidden here regardless
	// of the caller's actual store contents.
	if got := authz.Authorize(perms, vaultmodel.ActionExists, "db"); got != authz.DenyHidden {
		t.Errorf("got %v, want DenyHidden", got)
	}
}
