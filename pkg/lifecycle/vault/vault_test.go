package vault

import "testing"

func TestErrNotFoundMessage(t *testing.T) {
	if ErrNotFound.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestVaultKeyNamespacesByColon(t *testing.T) {
	if got := vaultKey("profiles", "p1"); got != "profiles:p1" {
		t.Fatalf("expected namespaced key, got %q", got)
	}
}
