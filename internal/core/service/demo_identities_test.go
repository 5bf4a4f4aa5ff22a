package service

import (
	"testing"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

func TestDemoIdentities_Lookup(t *testing.T) {
	d := NewDemoIdentities()

	cases := []struct {
		email, password string
		wantRole        domain.Role
		wantOK          bool
	}{
		{"patient@example.com", "password123", domain.RolePatient, true},
		{"admin@example.com", "password123", domain.RoleAdmin, true},
		{"provider@example.com", "password123", domain.RoleProvider, true},
		{"patient@example.com", "wrong", "", false},
		{"Patient@example.com", "password123", "", false},
		{"nobody@example.com", "password123", "", false},
	}
	for _, tc := range cases {
		u, ok := d.Lookup(tc.email, tc.password)
		if ok != tc.wantOK {
			t.Errorf("Lookup(%q, %q) ok = %v, want %v", tc.email, tc.password, ok, tc.wantOK)
			continue
		}
		if ok && (u.Role != tc.wantRole || u.Source != domain.SourceDemo || !u.Authenticated()) {
			t.Errorf("Lookup(%q) returned %+v", tc.email, u)
		}
	}
}

func TestDemoIdentities_LookupReturnsCopy(t *testing.T) {
	d := NewDemoIdentities()

	u, _ := d.Lookup("patient@example.com", "password123")
	u.FirstName = "Mutated"
	u.Address.City = "Nowhere"

	again, _ := d.Lookup("patient@example.com", "password123")
	if again.FirstName != "John" || again.Address.City != "Boston" {
		t.Fatalf("demo table was mutated through a returned record: %+v", again)
	}
}

func TestDemoIdentities_NilTable(t *testing.T) {
	var d *DemoIdentities
	if _, ok := d.Lookup("patient@example.com", "password123"); ok {
		t.Fatal("nil table must not resolve")
	}
}
