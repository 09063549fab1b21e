package diagnostic

import (
	"context"
	"testing"
)

func TestNewGeminiExpertClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiExpertClient(context.Background(), "  ", "gemini-1.5-flash-8b"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestGenaiRoleMapping(t *testing.T) {
	if genaiRole(RoleExpert) != "model" {
		t.Error("expert role should map to model")
	}
	if genaiRole(RoleUser) != "user" {
		t.Error("user role should map to user")
	}
	if genaiRole("") != "user" {
		t.Error("unknown roles should default to user")
	}
}
