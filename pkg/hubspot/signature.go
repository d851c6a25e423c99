package hubspot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"
)

// Webhook signature headers.
const (
	HeaderSignatureV3 = "X-HubSpot-Signature-v3"
	HeaderTimestamp   = "X-HubSpot-Request-Timestamp"
)

// DefaultMaxSignatureAge is the replay window HubSpot recommends.
const DefaultMaxSignatureAge = 5 * time.Minute

var (
	ErrSignatureMissing = errors.New("hubspot signature headers missing")
	ErrSignatureStale   = errors.New("hubspot signature timestamp outside allowed window")
	ErrSignatureInvalid = errors.New("hubspot signature mismatch")
)

// SignatureRequest holds the parts of an inbound request covered by the v3 signature.
// URI is the full request URL HubSpot called, including scheme, host and query.
type SignatureRequest struct {
	Method    string
	URI       string
	Body      []byte
	Timestamp string
	Signature string
}

// SignV3 computes the v3 signature for the request parts.
func SignV3(secret string, req SignatureRequest) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(req.Method))
	mac.Write([]byte(req.URI))
	mac.Write(req.Body)
	mac.Write([]byte(req.Timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignatureV3 checks X-HubSpot-Signature-v3 and rejects timestamps older than maxAge.
func VerifySignatureV3(secret string, req SignatureRequest, now time.Time, maxAge time.Duration) error {
	if req.Signature == "" || req.Timestamp == "" {
		return ErrSignatureMissing
	}
	millis, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return ErrSignatureMissing
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxSignatureAge
	}
	if age := now.Sub(time.UnixMilli(millis)); age > maxAge || age < -maxAge {
		return ErrSignatureStale
	}

	expected := SignV3(secret, req)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return ErrSignatureInvalid
	}
	return nil
}
