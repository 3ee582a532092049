package app

import (
	"testing"

	_ "github.com/aegis-platform/aegis/internal/testing/guard"
)

func TestGuardEnablesTestMode(t *testing.T) {
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("guard import should enable test mode")
	}
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv("AEGIS_TEST_MODE", "0")
	RefreshTestMode()
	if InTestMode() {
		t.Fatal("expected test mode off after refresh")
	}
	t.Setenv("AEGIS_TEST_MODE", "1")
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("expected test mode on after refresh")
	}
}
