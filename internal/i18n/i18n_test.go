package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		want   string
	}{
		{name: "russian prefix", userID: "79991234567", want: LangRU},
		{name: "russian with plus", userID: "+79991234567", want: LangRU},
		{name: "german prefix", userID: "4915112345678", want: LangDE},
		{name: "us number", userID: "14155551234", want: LangEN},
		{name: "uk number", userID: "447911123456", want: LangEN},
		{name: "empty", userID: "", want: LangEN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.userID))
		})
	}
}

func TestTranslationLookup(t *testing.T) {
	assert.Equal(t, "Пополнить", T(LangRU, "refill_button"))
	assert.Equal(t, "Credits aufladen", T(LangDE, "refill_button"))
	assert.Equal(t, "Refill credits", T(LangEN, "refill_button"))
}

func TestTranslationFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, T(LangEN, "no_credits"), T("fr", "no_credits"))
}

func TestUnknownKeyIsEmpty(t *testing.T) {
	assert.Empty(t, T(LangEN, "does_not_exist"))
}

func TestAllLanguagesCoverAllKeys(t *testing.T) {
	for lang, table := range tables {
		for key := range tables[LangEN] {
			_, ok := table[key]
			assert.True(t, ok, "language %s missing key %s", lang, key)
		}
	}
}
