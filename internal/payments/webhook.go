// Package payments parses and verifies signed events from the payment
// processor. Verification fails closed: any malformed or stale signature
// rejects the event.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// DefaultTolerance is how far the signed timestamp may drift before the
// event is rejected as a replay.
const DefaultTolerance = 5 * time.Minute

const checkoutCompletedEvent = "checkout.session.completed"

// Event is the signed webhook envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the payload of a checkout.session.completed event.
// ClientReferenceID carries the paying user's id, set by the frontend when
// the checkout was created. AmountTotal is in the currency's minor unit.
type CheckoutSession struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	AmountTotal       int    `json:"amount_total"`
	Mode              string `json:"mode"` // "payment" or "subscription"
}

// IsCheckoutCompleted reports whether this event should trigger a credit
// top-up and plan change.
func (e *Event) IsCheckoutCompleted() bool {
	return e.Type == checkoutCompletedEvent
}

// Subscription reports whether the checkout was a recurring purchase.
func (s *CheckoutSession) Subscription() bool {
	return s.Mode == "subscription"
}

// ConstructEvent verifies the signature header against the raw payload and
// returns the parsed event. The header format is "t=<unix>,v1=<hex>" where
// v1 is HMAC-SHA256(secret, "<unix>.<payload>").
func ConstructEvent(payload []byte, sigHeader, secret string, tolerance time.Duration) (*Event, error) {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return nil, ErrInvalidSignature
		}
	}

	expected := computeSignature(timestamp, payload, secret)
	valid := false
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	if header == "" {
		return 0, nil, ErrInvalidSignature
	}

	var timestamp int64 = -1
	var signatures [][]byte

	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			t, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
			timestamp = t
		case "v1":
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

func computeSignature(timestamp int64, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return mac.Sum(nil)
}

// SignPayload produces a valid signature header for the given payload. Used
// by tests and local tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	sig := computeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(sig))
}
