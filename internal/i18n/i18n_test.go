package i18n

import (
	"encoding/json"
	"testing"

	"github.com/peltran/giftwise/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allMessageKeys lists every translation key the application resolves.
// The integrity test below keeps the locale files honest.
var allMessageKeys = []string{
	config.TKeyRelBusiness,
	config.TKeyRelFriend,
	config.TKeyRelFamily,
	config.TKeyEventBirthday,
	config.TKeyEventPromotion,
	config.TKeyEventWedding,
	config.TKeyEvtSummary,
	config.TKeyErrCamera,
	config.TKeyErrExtraction,
	config.TKeyErrRecommend,
	config.TKeyErrRequired,
	config.TKeyHistoryNone,
}

// TestLocales_Integrity verifies that every supported locale defines every
// key the code can ask for. A missing key silently falls back to the raw
// token, which is exactly the bug this test exists to catch.
func TestLocales_Integrity(t *testing.T) {
	for _, lang := range config.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			raw, err := localeFS.ReadFile("locales/active." + lang + ".json")
			require.NoError(t, err, "Locale file for %s must exist", lang)

			var messages map[string]string
			require.NoError(t, json.Unmarshal(raw, &messages))

			for _, key := range allMessageKeys {
				assert.Contains(t, messages, key, "Locale %s is missing key %s", lang, key)
				assert.NotEmpty(t, messages[key], "Locale %s has an empty value for %s", lang, key)
			}
		})
	}
}

func TestNew_DetectsSupportedLanguages(t *testing.T) {
	tr := New(config.DefaultLanguage)

	for _, lang := range config.SupportedLanguages {
		assert.Contains(t, tr.Supported, lang)
	}
}

func TestMsg_ResolvesPerLanguage(t *testing.T) {
	en := New("en")
	assert.Equal(t, "Business", en.Msg(config.TKeyRelBusiness))

	ko := New("ko")
	assert.Equal(t, "비즈니스", ko.Msg(config.TKeyRelBusiness))
	assert.Equal(t, "없음", ko.Msg(config.TKeyHistoryNone))
}

func TestMsg_UnknownLanguageFallsBackToDefault(t *testing.T) {
	tr := New("fr")
	assert.Equal(t, "Business", tr.Msg(config.TKeyRelBusiness))
}

func TestMsg_MissingKeyReturnsKey(t *testing.T) {
	tr := New("en")
	assert.Equal(t, "no_such_key", tr.Msg("no_such_key"),
		"A missing translation must stay displayable")
}

func TestMsgData_TemplateInterpolation(t *testing.T) {
	tr := New("ko")
	got := tr.MsgData(config.TKeyEvtSummary, map[string]any{
		"Kind": "생일",
		"Name": "김민준",
	})
	assert.Equal(t, "생일: 김민준", got)
}
