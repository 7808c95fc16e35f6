package ocpi

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeCountryCode(t *testing.T) {
	cc, err := NormalizeCountryCode(" nl ")
	if err != nil {
		t.Fatalf("expected valid country code: %v", err)
	}
	if cc != "NL" {
		t.Fatalf("expected upper-cased code, got %q", cc)
	}

	for _, bad := range []string{"", "NLD", "N1"} {
		if _, err := NormalizeCountryCode(bad); !errors.Is(err, ErrInvalidCountryCode) {
			t.Fatalf("expected ErrInvalidCountryCode for %q, got %v", bad, err)
		}
	}
}

func TestNormalizePartyID(t *testing.T) {
	id, err := NormalizePartyID("tnm")
	if err != nil {
		t.Fatalf("expected valid party id: %v", err)
	}
	if id != "TNM" {
		t.Fatalf("expected TNM, got %q", id)
	}

	if _, err := NormalizePartyID("TN"); !errors.Is(err, ErrInvalidPartyID) {
		t.Fatalf("expected ErrInvalidPartyID, got %v", err)
	}
}

func TestValidateIdentifier(t *testing.T) {
	if _, err := ValidateIdentifier("location_id", "LOC1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ValidateIdentifier("location_id", strings.Repeat("a", MaxIdentifierLength+1)); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier for long id, got %v", err)
	}
	if _, err := ValidateIdentifier("location_id", "a/b"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier for slash, got %v", err)
	}
	if _, err := ValidateIdentifier("location_id", "  "); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier for blank id, got %v", err)
	}
}

func TestValidateHTTPURL(t *testing.T) {
	if _, err := ValidateHTTPURL("https://emsp.example.com/ocpi/2.2.1/commands/START_SESSION/42"); err != nil {
		t.Fatalf("expected valid url: %v", err)
	}
	if _, err := ValidateHTTPURL("ftp://example.com"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL for unsupported scheme, got %v", err)
	}
	if _, err := ValidateHTTPURL("https://"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL for missing host, got %v", err)
	}
}

func TestEnsureMaxBytes(t *testing.T) {
	if err := EnsureMaxBytes("payload", []byte("abc"), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnsureMaxBytes("payload", []byte("abcd"), 3); err == nil {
		t.Fatalf("expected size error")
	}
	if err := EnsureMaxBytes("payload", []byte("abcd"), 0); err != nil {
		t.Fatalf("zero limit must disable the check: %v", err)
	}
}
