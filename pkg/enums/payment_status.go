package enums

// PaymentStatus is the charge outcome stored on an order. An order is
// reserved as pending and moves at most once, to paid or to failed.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (p PaymentStatus) String() string { return string(p) }

// IsFinal reports whether the charge has settled either way.
func (p PaymentStatus) IsFinal() bool {
	switch p {
	case PaymentStatusPaid, PaymentStatusFailed:
		return true
	default:
		return false
	}
}
