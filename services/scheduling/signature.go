package scheduling

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature is returned when the webhook signature check fails.
// The handler maps it to a 401 with no state change.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// signatureTolerance bounds how old a signed timestamp may be, guarding
// against replayed captures.
const signatureTolerance = 5 * time.Minute

// VerifySignature checks the provider's signature header against the raw
// body. The header format is "t=<unix>,v1=<hex>", where v1 is
// HMAC-SHA256(key, "<unix>.<body>").
func VerifySignature(body []byte, header, signingKey string) error {
	return verifySignatureAt(body, header, signingKey, time.Now())
}

func verifySignatureAt(body []byte, header, signingKey string, now time.Time) error {
	if header == "" || signingKey == "" {
		return ErrInvalidSignature
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sig = kv[1]
		}
	}
	if ts == "" || sig == "" {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	issued := time.Unix(unix, 0)
	if now.Sub(issued) > signatureTolerance || issued.Sub(now) > signatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignPayload produces a signature header for a body. Used by tests and by
// local tooling that replays captured webhooks.
func SignPayload(body []byte, signingKey string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
