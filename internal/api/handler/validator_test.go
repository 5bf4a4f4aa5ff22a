package handler

import (
	"errors"
	"strings"
	"testing"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	cases := []struct {
		name string
		req  any
		want []string
	}{
		{
			name: "missing credentials",
			req:  &credentialsRequest{},
			want: []string{"email is required", "password is required"},
		},
		{
			name: "short password",
			req:  &credentialsRequest{Email: "jane@example.com", Password: "123"},
			want: []string{"password must be at least 6 characters"},
		},
		{
			name: "bad role and date",
			req:  &createProfileRequest{ID: "u-1", Email: "jane@example.com", Role: "superuser", DateOfBirth: "15/01/1990"},
			want: []string{"role must be one of", "date_of_birth must be a date in YYYY-MM-DD form"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.req)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestValidator_Accepts(t *testing.T) {
	v := NewValidator()
	req := &createProfileRequest{ID: "u-1", Email: "jane@example.com", Role: "provider", DateOfBirth: "1990-01-15"}
	if err := v.Validate(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Validate(&createProfileRequest{ID: "u-2", Email: "kim@example.com", Role: "patient"}); err != nil {
		t.Fatalf("empty date_of_birth must be accepted: %v", err)
	}
}
