package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/peltran/giftwise/internal/config"
	"github.com/stretchr/testify/assert"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
// This prevents accidental deletion of keys required for runtime logic.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"AppID", config.AppID},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"KeyringService", config.KeyringService},
		{"DefaultGenAIBaseURL", config.DefaultGenAIBaseURL},
		{"DefaultGenAIModel", config.DefaultGenAIModel},
		{"GenAIKeyHeader", config.GenAIKeyHeader},
		{"ICalVersion", config.ICalVersion},
		{"ICalProdid", config.ICalProdid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.name)
		})
	}
}

// TestDefaults_Sanity checks that default values make sense logically.
func TestDefaults_Sanity(t *testing.T) {
	assert.Equal(t, 2000, config.DefaultLeapYear, "Default leap year must be 2000 for consistency")
	assert.Equal(t, 30*time.Second, config.HTTPTimeout)

	// The badge window must be a subset of the prompt window.
	assert.Less(t, config.UpcomingWindowBadgeDays, config.UpcomingWindowPromptDays)
	assert.Greater(t, config.UpcomingWindowBadgeDays, 0)

	assert.Greater(t, config.RecommendationCount, 0)
	assert.Contains(t, config.BudgetTiers, config.DefaultBudget,
		"The default budget must be one of the offered tiers")
	for _, tier := range config.BudgetTiers {
		assert.Greater(t, tier, 0)
	}
}

// TestUserAgent_Format ensures the UA string follows the standard format.
func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, "Giftwise/"), "UserAgent must start with AppName/")
}

// TestTimeoutsAndLimits ensures that operational constraints are reasonable.
func TestTimeoutsAndLimits(t *testing.T) {
	t.Parallel()

	assert.Greater(t, config.HTTPTimeout, 0*time.Second, "HTTPTimeout must be positive")
	assert.Greater(t, config.ShutdownTimeout, 0*time.Second, "ShutdownTimeout must be positive")
	assert.GreaterOrEqual(t, config.ServerWriteTimeout, config.GenAITimeout,
		"The write timeout must outlast an in-handler model round trip")

	assert.Greater(t, int64(config.MaxHTTPResponseSize), int64(0))
	assert.Greater(t, config.MaxImageBytes, 0)
	assert.GreaterOrEqual(t, int64(config.MaxRequestBodySize), int64(config.MaxImageBytes),
		"A still that fits the image cap must fit in a request body")
}

// TestTokens_Distinct guards the closed token sets against collisions.
func TestTokens_Distinct(t *testing.T) {
	tokens := []string{
		config.RelationshipBusiness,
		config.RelationshipFriend,
		config.RelationshipFamily,
		config.FilterAll,
		config.FilterUpcoming,
	}

	seen := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		assert.NotEmpty(t, token)
		assert.False(t, seen[token], "Token %q is duplicated", token)
		seen[token] = true
	}
}
