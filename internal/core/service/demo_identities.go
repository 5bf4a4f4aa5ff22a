package service

import (
	"time"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// DemoIdentities is the fixed last-resort login table used when the
// credential store is unreachable or rejects the credentials. It keeps a
// disconnected demo deployment usable. Passwords are compared in plain text
// with no lockout or audit: never enable it where real credentials or real
// health data are handled.
type DemoIdentities struct {
	entries map[string]demoEntry
}

type demoEntry struct {
	password string
	user     domain.UserRecord
}

var demoCreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewDemoIdentities returns the built-in patient, admin and provider accounts.
func NewDemoIdentities() *DemoIdentities {
	return &DemoIdentities{entries: map[string]demoEntry{
		"patient@example.com": {
			password: "password123",
			user: domain.UserRecord{
				ID:          "demo-patient-1",
				Email:       "patient@example.com",
				FirstName:   "John",
				LastName:    "Doe",
				Role:        domain.RolePatient,
				IsActive:    true,
				PhoneNumber: "+1-555-0123",
				DateOfBirth: "1990-01-15",
				Address: &domain.Address{
					Street:  "123 Main St",
					City:    "Boston",
					State:   "MA",
					ZipCode: "02101",
				},
				Insurance: &domain.Insurance{
					Provider:    "Blue Cross Blue Shield",
					MemberID:    "BC123456789",
					GroupNumber: "GRP001",
				},
				CreatedAt: demoCreatedAt,
				Source:    domain.SourceDemo,
			},
		},
		"admin@example.com": {
			password: "password123",
			user: domain.UserRecord{
				ID:          "demo-admin-1",
				Email:       "admin@example.com",
				FirstName:   "Sarah",
				LastName:    "Admin",
				Role:        domain.RoleAdmin,
				IsActive:    true,
				PhoneNumber: "+1-555-0124",
				CreatedAt:   demoCreatedAt,
				Source:      domain.SourceDemo,
			},
		},
		"provider@example.com": {
			password: "password123",
			user: domain.UserRecord{
				ID:          "demo-provider-1",
				Email:       "provider@example.com",
				FirstName:   "Dr. Sarah",
				LastName:    "Johnson",
				Role:        domain.RoleProvider,
				IsActive:    true,
				PhoneNumber: "+1-555-0125",
				CreatedAt:   demoCreatedAt,
				Source:      domain.SourceDemo,
			},
		},
	}}
}

// Lookup returns a copy of the demo user for an exact, case-sensitive match
// on email and password.
func (d *DemoIdentities) Lookup(email, password string) (*domain.UserRecord, bool) {
	if d == nil {
		return nil, false
	}
	e, ok := d.entries[email]
	if !ok || e.password != password {
		return nil, false
	}
	return e.user.Clone(), true
}
