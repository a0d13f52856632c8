package enums

// GatewayPaymentStatus mirrors the payment gateway's notification statuses.
type GatewayPaymentStatus string

const (
	GatewayStatusAuthorized      GatewayPaymentStatus = "AUTHORIZED"
	GatewayStatusConfirmed       GatewayPaymentStatus = "CONFIRMED"
	GatewayStatusPartialReversed GatewayPaymentStatus = "PARTIAL_REVERSED"
	GatewayStatusReversed        GatewayPaymentStatus = "REVERSED"
	GatewayStatusPartialRefunded GatewayPaymentStatus = "PARTIAL_REFUNDED"
	GatewayStatusRefunded        GatewayPaymentStatus = "REFUNDED"
	GatewayStatusRejected        GatewayPaymentStatus = "REJECTED"
)

// String implements fmt.Stringer.
func (g GatewayPaymentStatus) String() string {
	return string(g)
}
