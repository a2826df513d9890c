package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts leave the API as JSON numbers (25, not "25").
	decimal.MarshalJSONWithoutQuotes = true
}
