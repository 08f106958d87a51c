package silver

import (
	"strings"

	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/stream"
)

// currencySymbols maps symbols and shorthand seen in retailer feeds to ISO 4217 codes.
var currencySymbols = map[string]string{
	"$":   "USD",
	"US$": "USD",
	"£":   "GBP",
	"€":   "EUR",
	"C$":  "CAD",
	"CA$": "CAD",
	"A$":  "AUD",
	"AU$": "AUD",
	"¥":   "JPY",
	"₹":   "INR",
	"₩":   "KRW",
	"₽":   "RUB",
	"HK$": "HKD",
	"NT$": "TWD",
	"₫":   "VND",
	"R$":  "BRL",
	"₱":   "PHP",
	"₦":   "NGN",
	"CHF": "CHF",
	"MX$": "MXN",
	"MXN": "MXN",
}

// NormalizeCurrencyCode maps a symbol to its code and uppercases anything else. Blank gives USD.
func NormalizeCurrencyCode(v interface{}) string {
	s := strings.TrimSpace(h.GetStringFromInterface(v))
	if s == "" {
		return constants.DefaultCurrency
	}
	if code, ok := currencySymbols[strings.ToUpper(s)]; ok {
		return code
	}
	return strings.ToUpper(s)
}

// NormalizeCurrency rewrites the currency column, adding it when absent.
func NormalizeCurrency(in stream.Table) stream.Table {
	t := in.Clone()
	t.AddColumn(constants.ColCurrency)
	for _, r := range t.Rows {
		r.SetData(constants.ColCurrency, NormalizeCurrencyCode(r.GetData(constants.ColCurrency)))
	}
	return t
}
