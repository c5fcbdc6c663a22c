package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"merchant_reference":"REF-1-AAAAAA","result_code":0}`)
	secret := "topsecret"

	t.Run("correct signature accepted", func(t *testing.T) {
		if !ValidSignature(body, sign(body, secret), secret) {
			t.Error("expected valid signature to pass")
		}
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		if ValidSignature(body, "", secret) {
			t.Error("expected empty signature to fail")
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		tampered := []byte(`{"merchant_reference":"REF-1-AAAAAA","result_code":1}`)
		if ValidSignature(tampered, sign(body, secret), secret) {
			t.Error("expected signature over different body to fail")
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		if ValidSignature(body, sign(body, "othersecret"), secret) {
			t.Error("expected signature with wrong secret to fail")
		}
	})
}
