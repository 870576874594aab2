//go:build !integration

package i18n

import (
	"testing"
)

func TestTranslator(t *testing.T) {
	// --- Arrange ---
	contentBytes := []byte("greeting: Welcome\nwelcome_user: Welcome %s\n")
	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	// --- Assert ---
	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Welcome" {
			t.Errorf("wanted 'Welcome', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Ada"); got != "Welcome Ada" {
			t.Errorf("wanted 'Welcome Ada', got '%s'", got)
		}
	})
}

func TestEmbeddedCatalog(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	for _, key := range []string{"error.verify_vin", "error.initiate_payment", "error.verify_payment", "callback.missing"} {
		if !tr.Has(key) {
			t.Errorf("catalog is missing %q", key)
		}
	}
	if _, err := NewTranslator(LocalesFS, "xx"); err == nil {
		t.Error("expected an error for an unknown language")
	}
}

func TestNewTranslator_RejectsNestedYAML(t *testing.T) {
	if _, err := newTranslatorFromBytes([]byte("a:\n  b: c\n")); err == nil {
		t.Error("expected nested keys to be rejected")
	}
}
