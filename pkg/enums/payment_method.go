package enums

import "strings"

// PaymentMethod describes how a buyer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodMobileMoney    PaymentMethod = "mobile_money"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
)

var knownPaymentMethods = []PaymentMethod{
	PaymentMethodCashOnDelivery,
	PaymentMethodMobileMoney,
	PaymentMethodCard,
	PaymentMethodBankTransfer,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsKnown reports whether the value is one of the storefront's advertised methods.
func (p PaymentMethod) IsKnown() bool {
	for _, candidate := range knownPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// NormalizePaymentMethod trims the raw value and falls back to cash on delivery
// when nothing was submitted. Unrecognised methods are kept verbatim; checkout
// front ends are allowed to introduce new ones.
func NormalizePaymentMethod(value string) PaymentMethod {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return PaymentMethodCashOnDelivery
	}
	return PaymentMethod(trimmed)
}
