package genai

import (
	"log/slog"
	"os"

	"github.com/peltran/giftwise/internal/config"
	"github.com/zalando/go-keyring"
)

// ResolveAPIKey returns the Gemini API key from the first available source:
// the explicit value (CLI flag), the GEMINI_API_KEY environment variable, or
// the OS keyring entry for this application. Empty means "not configured";
// the client then rejects calls with ErrAPIKeyMissing instead of failing the
// whole application at startup.
func ResolveAPIKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if key := os.Getenv(config.EnvAPIKey); key != "" {
		return key
	}

	key, err := keyring.Get(config.KeyringService, config.KeyringAPIKeyUser)
	if err != nil {
		// Absence is the normal case on first run; log and move on.
		slog.Debug(config.MsgKeyringMiss,
			config.LogKeyComponent, config.CompGenAI,
			config.LogKeyError, err,
		)
		return ""
	}
	return key
}

// StoreAPIKey persists the key in the OS keyring for later sessions.
func StoreAPIKey(key string) error {
	return keyring.Set(config.KeyringService, config.KeyringAPIKeyUser, key)
}
