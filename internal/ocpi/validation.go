package ocpi

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidCountryCode is returned for country codes that are not ISO 3166-1 alpha-2.
	ErrInvalidCountryCode = errors.New("invalid country code")
	// ErrInvalidPartyID is returned for party ids that are not three alphanumerics.
	ErrInvalidPartyID = errors.New("invalid party id")
	// ErrInvalidIdentifier is returned for object ids violating CiString(36).
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidURL indicates that a URL failed validation.
	ErrInvalidURL = errors.New("invalid url")
)

// MaxIdentifierLength is the CiString length of OCPI object identifiers.
const MaxIdentifierLength = 36

var (
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	partyIDPattern     = regexp.MustCompile(`^[A-Z0-9]{3}$`)
)

// NormalizeCountryCode upper-cases and validates an ISO 3166-1 alpha-2 code.
func NormalizeCountryCode(value string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidCountryCode)
	}
	if !countryCodePattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountryCode, value)
	}
	return trimmed, nil
}

// NormalizePartyID upper-cases and validates a three character party id.
func NormalizePartyID(value string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidPartyID)
	}
	if !partyIDPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPartyID, value)
	}
	return trimmed, nil
}

// ValidateIdentifier checks an object id: non-empty, printable ASCII, at most
// MaxIdentifierLength characters and free of path separators.
func ValidateIdentifier(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidIdentifier, field)
	}
	if utf8.RuneCountInString(trimmed) > MaxIdentifierLength {
		return "", fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrInvalidIdentifier, field, MaxIdentifierLength)
	}
	for _, r := range trimmed {
		if r < 0x20 || r > 0x7e || r == '/' {
			return "", fmt.Errorf("%w: %s contains %q", ErrInvalidIdentifier, field, r)
		}
	}
	return trimmed, nil
}

// ValidateHTTPURL ensures the provided string is a valid HTTP or HTTPS URL.
func ValidateHTTPURL(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidURL)
	}

	return trimmed, nil
}

// EnsureMaxBytes checks that a byte slice does not exceed the specified size.
func EnsureMaxBytes(field string, b []byte, max int) error {
	if max <= 0 {
		return nil
	}
	if len(b) > max {
		return fmt.Errorf("%s exceeds maximum size of %d bytes", field, max)
	}
	return nil
}
