package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
)

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"admin": RoleAdmin, " USER ": RoleUser, "Admin": RoleAdmin} {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRole("root"); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestPrincipal_CanAccess(t *testing.T) {
	admin := Principal{UserID: "a", Role: RoleAdmin}
	user := Principal{UserID: "u", Role: RoleUser}
	anon := Principal{Role: RoleUser}

	if !admin.CanAccess("someone") {
		t.Fatal("admin must access any record")
	}
	if !user.CanAccess("u") {
		t.Fatal("owner must access own record")
	}
	if user.CanAccess("other") {
		t.Fatal("user must not access foreign record")
	}
	if anon.CanAccess("") {
		t.Fatal("empty identity must not match empty owner")
	}
}
