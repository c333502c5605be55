// Package i18n holds the user-facing string tables and the phone
// prefix language heuristic.
package i18n

import "strings"

// Supported languages.
const (
	LangEN = "en"
	LangRU = "ru"
	LangDE = "de"
)

// DetectLanguage guesses the user's language from their phone-derived
// channel identity. Country code 7 maps to Russian, 49 to German,
// everything else to English.
func DetectLanguage(userID string) string {
	id := strings.TrimPrefix(userID, "+")
	switch {
	case strings.HasPrefix(id, "7"):
		return LangRU
	case strings.HasPrefix(id, "49"):
		return LangDE
	default:
		return LangEN
	}
}

var tables = map[string]map[string]string{
	LangEN: {
		"no_credits":      "You've run out of credits. Top up to keep chatting with me!",
		"buy_prompt":      "Choose a credit package:",
		"refill_button":   "Refill credits",
		"not_now_button":  "Not now",
		"payment_thanks":  "Thank you! Your credits have been added. Current balance: %d.",
		"payment_failed":  "Something went wrong with your payment. You have not been charged.",
		"checkout_button": "Buy now",
	},
	LangRU: {
		"no_credits":      "У вас закончились кредиты. Пополните баланс, чтобы продолжить общение!",
		"buy_prompt":      "Выберите пакет кредитов:",
		"refill_button":   "Пополнить",
		"not_now_button":  "Не сейчас",
		"payment_thanks":  "Спасибо! Кредиты зачислены. Текущий баланс: %d.",
		"payment_failed":  "С оплатой что-то пошло не так. Деньги не списаны.",
		"checkout_button": "Купить",
	},
	LangDE: {
		"no_credits":      "Deine Credits sind aufgebraucht. Lade auf, um weiter mit mir zu chatten!",
		"buy_prompt":      "Wähle ein Credit-Paket:",
		"refill_button":   "Credits aufladen",
		"not_now_button":  "Jetzt nicht",
		"payment_thanks":  "Danke! Deine Credits wurden gutgeschrieben. Aktueller Stand: %d.",
		"payment_failed":  "Bei deiner Zahlung ist etwas schiefgelaufen. Es wurde nichts abgebucht.",
		"checkout_button": "Jetzt kaufen",
	},
}

// T looks up key in the language's table, falling back to English.
func T(lang, key string) string {
	if table, ok := tables[lang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	return tables[LangEN][key]
}
