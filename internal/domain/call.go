package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CallKind string

const (
	CallOffer  CallKind = "offer"
	CallAnswer CallKind = "answer"
	CallReject CallKind = "reject"
	CallICE    CallKind = "ice"
	CallEnd    CallKind = "end"
)

// CallSignal is an opaque signaling payload on its way to a peer.
type CallSignal struct {
	Kind     CallKind
	From     uuid.UUID
	FromName string
	Payload  json.RawMessage
}

type Availability struct {
	TargetUserID uuid.UUID `json:"targetUserId"`
	Available    bool      `json:"isAvailable"`
	Message      string    `json:"message,omitempty"`
}
