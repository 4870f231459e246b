package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// SignHMAC returns the hex HMAC-SHA256 of canonical keyed by secret.
func SignHMAC(secret string, canonical []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC recomputes the signature and compares it in constant time.
// An empty secret or signature never verifies.
func VerifyHMAC(secret string, canonical []byte, supplied string) bool {
	if secret == "" || supplied == "" {
		return false
	}
	expected := SignHMAC(secret, canonical)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(supplied)))
}

// razorpayPaymentCanonical is order_id + "|" + payment_id.
func razorpayPaymentCanonical(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

// stripeCanonical is the unix timestamp, a dot, and the raw body.
func stripeCanonical(timestamp string, body []byte) []byte {
	buf := make([]byte, 0, len(timestamp)+1+len(body))
	buf = append(buf, timestamp...)
	buf = append(buf, '.')
	return append(buf, body...)
}

type stripeSignatureHeader struct {
	timestamp  string
	issuedAt   time.Time
	signatures []string
}

// parseStripeSignature parses "t=<unix>,v1=<hex>[,v1=<hex>...]".
func parseStripeSignature(header string) (stripeSignatureHeader, bool) {
	var out stripeSignatureHeader
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			secs, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return out, false
			}
			out.timestamp = value
			out.issuedAt = time.Unix(secs, 0)
		case "v1":
			out.signatures = append(out.signatures, value)
		}
	}
	return out, out.timestamp != "" && len(out.signatures) > 0
}

// StripeSignatureHeader builds a header value for body signed at ts.
func StripeSignatureHeader(secret string, body []byte, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + SignHMAC(secret, stripeCanonical(t, body))
}
