package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret, paymentRef, orderNumber string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paymentRef + "|" + orderNumber))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	p := NewProvider("topsecret")

	good := sign("topsecret", "pay_abc", "YUM-000042")
	if !p.VerifySignature("pay_abc", "YUM-000042", good) {
		t.Fatal("expected valid signature to verify")
	}
	if p.VerifySignature("pay_abc", "YUM-000042", "forged") {
		t.Fatal("expected forged signature to fail")
	}
	if p.VerifySignature("pay_other", "YUM-000042", good) {
		t.Fatal("signature must be bound to the payment reference")
	}

	wrongSecret := sign("other", "pay_abc", "YUM-000042")
	if p.VerifySignature("pay_abc", "YUM-000042", wrongSecret) {
		t.Fatal("signature under the wrong secret must fail")
	}
}

func TestCreateIntentPending(t *testing.T) {
	p := NewProvider("topsecret")
	intent, err := p.CreateIntent("YUM-000042", 470)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Status != "PENDING" || intent.Reference == "" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}
