// Package outcome reports finished contact-form sends to the delivery log
// and the event bus.
package outcome

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"contactrelay/internal/contact"
)

// Record is the stored and published form of a contact.Outcome. The sender
// address only appears hashed.
type Record struct {
	AttemptID   string    `json:"attempt_id"`
	FormID      string    `json:"form_id"`
	Outcome     string    `json:"outcome"`
	Banner      string    `json:"banner"`
	ErrorClass  string    `json:"error_class,omitempty"`
	RelayStatus int       `json:"relay_status,omitempty"`
	SenderHash  string    `json:"sender_hash"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoutingKey is the event-bus routing key of the record.
func (r Record) RoutingKey() string {
	return "contact.submission." + r.Outcome
}

// NewRecord converts o, hashing the sender address.
func NewRecord(o contact.Outcome) Record {
	return Record{
		AttemptID:   o.AttemptID,
		FormID:      o.FormID,
		Outcome:     o.Result,
		Banner:      string(o.Banner),
		ErrorClass:  o.ErrorClass,
		RelayStatus: o.RelayStatus,
		SenderHash:  HashAddress(o.SenderEmail),
		DurationMS:  o.Duration.Milliseconds(),
		CreatedAt:   o.FinishedAt.UTC(),
	}
}

// HashAddress is the hex blake2b-256 of the lower-cased address, so repeat
// senders can be counted without storing who they are.
func HashAddress(addr string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(addr))))
	return hex.EncodeToString(sum[:])
}
