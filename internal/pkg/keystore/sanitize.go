package keystore

import (
	"fmt"
	"strings"

	"github.com/pagflow/pagflow/internal/pkg/env"
)

// AccessTokenPrefix is the format marker carried by gateway credentials.
// The leading "$" is part of the credential and must survive sanitizing.
const AccessTokenPrefix = "$aact_"

// MinKeyLength rejects obviously truncated paste artifacts.
const MinKeyLength = 32

// ValidationPolicy decides whether a malformed credential aborts the
// orchestration (strict) or is only logged (permissive).
type ValidationPolicy string

const (
	PolicyStrict     ValidationPolicy = "strict"
	PolicyPermissive ValidationPolicy = "permissive"
)

// PolicyFromEnv resolves the single configurable strictness switch.
func PolicyFromEnv() ValidationPolicy {
	if strings.EqualFold(env.GetEnv("VALIDATION_POLICY", "strict"), string(PolicyPermissive)) {
		return PolicyPermissive
	}
	return PolicyStrict
}

// ValidationResult carries a structured reason so callers can present
// actionable diagnostics instead of a bare boolean.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Sanitize strips surrounding whitespace and all zero-width/invisible Unicode
// characters from a raw credential. The "$" format marker is not touched.
// Sanitize is idempotent.
func Sanitize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', // zero width space
			'\u200c', // zero width non-joiner
			'\u200d', // zero width joiner
			'\u2060', // word joiner
			'\ufeff', // BOM / zero width no-break space
			'\u00ad', // soft hyphen
			'\u180e': // mongolian vowel separator
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(cleaned)
}

// Validate format-checks an already sanitized credential.
func Validate(cleaned string) ValidationResult {
	if cleaned == "" {
		return ValidationResult{Valid: false, Reason: "credential is empty"}
	}
	if !strings.HasPrefix(cleaned, AccessTokenPrefix) {
		return ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("credential is missing the %q prefix", AccessTokenPrefix),
		}
	}
	if len(cleaned) < MinKeyLength {
		return ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("credential is shorter than %d characters, likely truncated", MinKeyLength),
		}
	}
	return ValidationResult{Valid: true}
}
