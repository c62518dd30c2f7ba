package commerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/truthsource/backend/internal/domain/integration"
)

// ErrInvalidSignature is returned for any verification failure. Callers must
// not distinguish which check failed in their response.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// netsuiteTimestampWindow is how far a signed timestamp may drift before the
// delivery is treated as a replay
const netsuiteTimestampWindow = 5 * time.Minute

// WebhookVerifier checks platform webhook signatures against the
// integration's webhook secret
type WebhookVerifier struct {
	now func() time.Time
}

// NewWebhookVerifier creates a verifier using the wall clock
func NewWebhookVerifier() *WebhookVerifier {
	return &WebhookVerifier{now: time.Now}
}

// Verify checks the delivery signature for the platform. All failures return
// ErrInvalidSignature.
func (v *WebhookVerifier) Verify(platform integration.Platform, secret string, header http.Header, body []byte) error {
	if secret == "" {
		return ErrInvalidSignature
	}

	switch platform {
	case integration.PlatformShopify:
		return verifyBase64HMAC(secret, header.Get("X-Shopify-Hmac-Sha256"), body)
	case integration.PlatformWooCommerce:
		return verifyBase64HMAC(secret, header.Get("X-WC-Webhook-Signature"), body)
	case integration.PlatformNetSuite:
		return v.verifyNetSuite(secret, header, body)
	}
	return ErrInvalidSignature
}

// verifyBase64HMAC checks sig == base64(HMAC-SHA256(secret, body))
func verifyBase64HMAC(secret, signature string, body []byte) error {
	if signature == "" {
		return ErrInvalidSignature
	}
	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// verifyNetSuite checks sig == hex(HMAC-SHA256(secret, timestamp + "." +
// body)) and rejects timestamps outside the freshness window
func (v *WebhookVerifier) verifyNetSuite(secret string, header http.Header, body []byte) error {
	signature := header.Get("X-NS-Signature")
	rawTimestamp := header.Get("X-NS-Timestamp")
	if signature == "" || rawTimestamp == "" {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(rawTimestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	drift := v.now().Sub(time.Unix(unix, 0))
	if drift > netsuiteTimestampWindow || drift < -netsuiteTimestampWindow {
		return ErrInvalidSignature
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(rawTimestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
