package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/gofiber/fiber/v2"
	config "github.com/kamaundungu/soko_events/configs"
)

const signatureHeader = "X-Payd-Signature"

// VerifyWebhookSignature rejects Payd callbacks whose HMAC-SHA256 of
// the raw body does not match the shared secret, before any state or
// parsing is touched. Rejections are logged as security events.
func VerifyWebhookSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := config.Config("PAYD_WEBHOOK_SECRET")
		if secret == "" {
			log.Println("⚠️ PAYD_WEBHOOK_SECRET is not set, webhook signatures are not being verified")
			return c.Next()
		}

		signature := c.Get(signatureHeader)
		if !ValidSignature(c.Body(), signature, secret) {
			log.Printf("🔥 SECURITY: rejected webhook with bad signature from %s on %s", c.IP(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid signature"})
		}
		return c.Next()
	}
}

// ValidSignature checks a hex-encoded HMAC-SHA256 of body against the
// shared secret using a constant-time comparison.
func ValidSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
