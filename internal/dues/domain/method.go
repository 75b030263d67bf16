package domain

import "strings"

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodMobileWallet PaymentMethod = "mobile_wallet"
	MethodCard         PaymentMethod = "card"
)

// DefaultPaymentMethods is the recognized method set when no config overrides it.
var DefaultPaymentMethods = []PaymentMethod{MethodCash, MethodBankTransfer, MethodMobileWallet, MethodCard}

var methodWire = map[PaymentMethod]string{
	MethodCash:         "EFECTIVO",
	MethodBankTransfer: "TRANSFERENCIA",
	MethodMobileWallet: "BILLETERA_MOVIL",
	MethodCard:         "TARJETA",
}

func (m PaymentMethod) Wire() string {
	if v, ok := methodWire[m]; ok {
		return v
	}
	return strings.ToUpper(string(m))
}

// ParsePaymentMethod maps wire or internal spellings onto a method. Unknown
// values are kept as a lower-cased method so the set stays open.
func ParsePaymentMethod(raw string) PaymentMethod {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	upper := strings.ToUpper(value)
	for method, wire := range methodWire {
		if upper == wire {
			return method
		}
	}
	return PaymentMethod(strings.ToLower(value))
}
