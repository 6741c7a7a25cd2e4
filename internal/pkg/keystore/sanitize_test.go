package keystore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "$aact_YTU5YTRlNTYtZjc1Zi00ODg2LWE3MmItYzFkZDI2ZGE"

func TestSanitizeStripsWhitespaceAndInvisibleRunes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", validKey, validKey},
		{"surrounding whitespace", "  " + validKey + "\n\t", validKey},
		{"zero width space", "\u200b" + validKey + "\u200b", validKey},
		{"zero width non-joiner inside", "$aact_abc\u200cdef", "$aact_abcdef"},
		{"zero width joiner", "$aact_abc\u200ddef", "$aact_abcdef"},
		{"word joiner", "\u2060" + validKey, validKey},
		{"byte order mark", "\ufeff" + validKey, validKey},
		{"soft hyphen", "$aact_ab\u00adcd", "$aact_abcd"},
		{"mongolian vowel separator", "\u180e" + validKey, validKey},
		{"mixed paste artifact", " \ufeff\u200b" + validKey + "\u200b \n", validKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.raw))
		})
	}
}

func TestSanitizePreservesDollarMarker(t *testing.T) {
	got := Sanitize("  " + validKey + "  ")
	assert.True(t, strings.HasPrefix(got, "$aact_"))
}

func TestSanitizeIsIdempotent(t *testing.T) {
	raw := " \u200b" + validKey + "\u200d\t"
	once := Sanitize(raw)
	twice := Sanitize(once)
	assert.Equal(t, once, twice)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		cleaned    string
		wantValid  bool
		wantReason string
	}{
		{"valid key", validKey, true, ""},
		{"empty", "", false, "empty"},
		{"missing prefix", strings.Repeat("a", 40), false, "prefix"},
		{"wrong prefix", "aact_" + strings.Repeat("a", 40), false, "prefix"},
		{"truncated", "$aact_short", false, "truncated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.cleaned)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantReason != "" {
				assert.Contains(t, got.Reason, tt.wantReason)
			} else {
				assert.Empty(t, got.Reason)
			}
		})
	}
}

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("VALIDATION_POLICY", "permissive")
	require.Equal(t, PolicyPermissive, PolicyFromEnv())

	t.Setenv("VALIDATION_POLICY", "PERMISSIVE")
	require.Equal(t, PolicyPermissive, PolicyFromEnv())

	t.Setenv("VALIDATION_POLICY", "strict")
	require.Equal(t, PolicyStrict, PolicyFromEnv())

	t.Setenv("VALIDATION_POLICY", "whatever")
	require.Equal(t, PolicyStrict, PolicyFromEnv())
}
