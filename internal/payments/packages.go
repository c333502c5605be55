package payments

import "github.com/anisalabs/anisa-platform/internal/i18n"

// Package is a purchasable credit bundle. Amounts are in the
// currency's minor unit (cents, kopecks).
type Package struct {
	ID       string
	Name     string
	Credits  int
	Amount   int64
	Currency string
}

var packagesEUR = []Package{
	{ID: "basic", Name: "Basic", Credits: 200, Amount: 299, Currency: "eur"},
	{ID: "standard", Name: "Standard", Credits: 500, Amount: 499, Currency: "eur"},
	{ID: "premium", Name: "Premium", Credits: 1200, Amount: 999, Currency: "eur"},
}

var packagesRUB = []Package{
	{ID: "basic", Name: "Базовый", Credits: 200, Amount: 29900, Currency: "rub"},
	{ID: "standard", Name: "Стандарт", Credits: 500, Amount: 49900, Currency: "rub"},
	{ID: "premium", Name: "Премиум", Credits: 1200, Amount: 99900, Currency: "rub"},
}

// Packages returns the credit bundles priced for the user's language
// region. Russian users are billed in rubles, everyone else in euros.
func Packages(language string) []Package {
	if language == i18n.LangRU {
		return packagesRUB
	}
	return packagesEUR
}

// Lookup finds a package by id for the language region.
func Lookup(language, id string) (Package, bool) {
	for _, p := range Packages(language) {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
