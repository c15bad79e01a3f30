package square

import (
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
)

// maxKeyLen is the longest idempotency key CreatePayment accepts.
const maxKeyLen = 45

// Charge is one attempt to collect an order total from a card nonce.
type Charge struct {
	OrderID    string
	Centavos   int64
	Currency   string
	SourceID   string
	AttemptKey string
	BuyerEmail string
	Note       string
}

// AttemptKey returns a fresh idempotency key for one checkout attempt. The
// order id leads so Square's dashboard groups attempts by order.
func AttemptKey(orderID string) string {
	key := strings.TrimSpace(orderID) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(key) > maxKeyLen {
		key = key[len(key)-maxKeyLen:]
	}
	return key
}

func (ch Charge) request(locationID string) *sq.CreatePaymentRequest {
	currency := sq.Currency(strings.ToUpper(strings.TrimSpace(ch.Currency)))
	if currency == "" {
		currency = sq.CurrencyMxn
	}
	amount := ch.Centavos
	return &sq.CreatePaymentRequest{
		IdempotencyKey:    ch.AttemptKey,
		SourceID:          ch.SourceID,
		AmountMoney:       &sq.Money{Amount: &amount, Currency: &currency},
		ReferenceID:       optional(ch.OrderID),
		LocationID:        optional(locationID),
		BuyerEmailAddress: optional(ch.BuyerEmail),
		Note:              optional(ch.Note),
	}
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
