package gateway

import "tilekeep/pkg/room"

// wireMessage is the JSON envelope sent to clients. Its shape mirrors
// room.OutboundMessage directly; the gateway's only job here is picking a
// wire-friendly "type" tag per OutboundKind.
type wireMessage struct {
	Type             string       `json:"type"`
	Patches          []room.Patch `json:"patches,omitempty"`
	SecondsRemaining int          `json:"secondsRemaining,omitempty"`
	Reason           string       `json:"reason,omitempty"`
}

func toWire(msg room.OutboundMessage) wireMessage {
	w := wireMessage{
		SecondsRemaining: msg.SecondsRemaining,
		Reason:           msg.Reason,
	}
	switch msg.Kind {
	case room.OutboundPatches:
		w.Type = "patches"
		w.Patches = msg.Patches
	case room.OutboundIdleWarning:
		w.Type = "idleWarning"
	case room.OutboundIdleKick:
		w.Type = "idleKick"
	default:
		w.Type = string(msg.Kind)
	}
	return w
}
