package event

import (
	"encoding/json"
	"strings"
)

type InboundKind int

const (
	InboundUnknown InboundKind = iota
	InboundPing
	InboundSubscribe
)

const (
	PingText = "ping"
	PongText = "pong"
)

// Inbound is a control message received from a client.
type Inbound struct {
	Kind   InboundKind
	Events []string
}

type inboundFrame struct {
	Type   string          `json:"type"`
	Events json.RawMessage `json:"events"`
}

// ParseInbound never fails: anything it does not recognise is InboundUnknown.
func ParseInbound(text string) Inbound {
	if text == PingText {
		return Inbound{Kind: InboundPing}
	}
	if !strings.HasPrefix(strings.TrimSpace(text), "{") {
		return Inbound{Kind: InboundUnknown}
	}

	var frame inboundFrame
	if err := json.Unmarshal([]byte(text), &frame); err != nil {
		return Inbound{Kind: InboundUnknown}
	}
	if frame.Type != "subscribe" {
		return Inbound{Kind: InboundUnknown}
	}

	var events []string
	if len(frame.Events) > 0 {
		_ = json.Unmarshal(frame.Events, &events)
	}
	return Inbound{Kind: InboundSubscribe, Events: events}
}
