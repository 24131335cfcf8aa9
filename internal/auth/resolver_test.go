package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase scheme", "bearer abc", "abc", false},
		{"uppercase scheme", "BEARER abc", "abc", false},
		{"missing", "", "", true},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", true},
		{"no token", "Bearer", "", true},
		{"blank token", "Bearer   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BearerToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("BearerToken() error = %v, want ErrUnauthenticated", err)
			}
			if got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	clock := newFakeClock()
	c := testCodec(t, clock)
	r := NewResolver(c)

	token, _, err := c.Issue(testClaims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	p, err := r.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := Principal{SubjectID: testClaims.Subject, DisplayName: testClaims.Name, Role: testClaims.Role}
	if p != want {
		t.Errorf("Resolve() = %+v, want %+v", p, want)
	}

	clock.Advance(DefaultTokenTTL + time.Second)
	_, err = r.Resolve(token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Resolve() expired error = %v, want ErrUnauthenticated", err)
	}
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Resolve() expired error = %v, should wrap ErrTokenExpired", err)
	}
}

func TestResolver_ResolveRequest(t *testing.T) {
	c := testCodec(t, newFakeClock())
	r := NewResolver(c)

	token, _, err := c.Issue(testClaims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	if _, err := r.ResolveRequest(req); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("ResolveRequest() without header error = %v, want ErrUnauthenticated", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	p, err := r.ResolveRequest(req)
	if err != nil {
		t.Fatalf("ResolveRequest() error = %v", err)
	}
	if p.SubjectID != testClaims.Subject {
		t.Errorf("SubjectID = %q, want %q", p.SubjectID, testClaims.Subject)
	}

	req.Header.Set("Authorization", "Bearer "+flipMiddle(token, 2))
	if _, err := r.ResolveRequest(req); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("ResolveRequest() tampered error = %v, want ErrUnauthenticated", err)
	}
}
