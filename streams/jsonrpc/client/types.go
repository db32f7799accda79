package client

import (
	"encoding/json"

	"github.com/gagliardetto/solana-go"
)

// SubscriptionEvent is the wrapper object received from the server.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// streamError mirrors the payload of an "error" event.
type streamError struct {
	Registry solana.PublicKey `json:"registry"`
	Code     int              `json:"code"`
	Message  string           `json:"message"`
}
