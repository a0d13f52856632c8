package payments

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/avoronkov/laptopshop-backend/pkg/enums"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
)

// Notification is one decoded gateway webhook. The raw field map is kept so
// the signature covers every field the gateway sent, including ones this
// service does not otherwise read.
type Notification struct {
	fields map[string]any
}

// ParseNotification decodes a webhook body. Numbers are kept as json.Number
// so their signature representation matches the gateway's exactly.
func ParseNotification(body []byte) (*Notification, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	return &Notification{fields: fields}, nil
}

// VerifyToken checks the payload signature: SHA-256 over the values of every
// field except Token, plus the terminal password, concatenated in alphabetical
// key order with booleans rendered lowercase.
func (n *Notification) VerifyToken(terminalPassword string) bool {
	provided, _ := n.fields["Token"].(string)
	if provided == "" {
		return false
	}
	expected := computeToken(n.fields, terminalPassword)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// Token returns the signature the gateway attached.
func (n *Notification) Token() string {
	token, _ := n.fields["Token"].(string)
	return token
}

// Success reports the gateway's outcome flag.
func (n *Notification) Success() bool {
	success, _ := n.fields["Success"].(bool)
	return success
}

// Status returns the gateway payment status, e.g. CONFIRMED.
func (n *Notification) Status() enums.GatewayPaymentStatus {
	status, _ := n.fields["Status"].(string)
	return enums.GatewayPaymentStatus(status)
}

// PaymentID returns the gateway's payment identifier as a string key.
func (n *Notification) PaymentID() string {
	switch v := n.fields["PaymentId"].(type) {
	case json.Number:
		return v.String()
	case string:
		return v
	default:
		return ""
	}
}

// OrderID parses the merchant order reference echoed back by the gateway.
func (n *Notification) OrderID() (int64, error) {
	var raw string
	switch v := n.fields["OrderId"].(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unparsable order id in webhook")
	}
	return id, nil
}

// Amount returns the gateway-reported amount in minor units.
func (n *Notification) Amount() (int64, bool) {
	switch v := n.fields["Amount"].(type) {
	case json.Number:
		amount, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return amount, true
	default:
		return 0, false
	}
}

func computeToken(fields map[string]any, terminalPassword string) string {
	keys := make([]string, 0, len(fields)+1)
	for key := range fields {
		if key == "Token" {
			continue
		}
		keys = append(keys, key)
	}
	keys = append(keys, "Password")
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		if key == "Password" {
			buf.WriteString(terminalPassword)
			continue
		}
		buf.WriteString(stringifyField(fields[key]))
	}

	digest := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(digest[:])
}

func stringifyField(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
