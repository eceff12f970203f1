package log

import (
	"time"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Event is a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the client session or bridge connection (UUID).
	SessionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// LocalRole is client for the binding layer and server for the bridge.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port) for bridge sessions.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Simulator is the simulator reported by the server, once known.
	Simulator string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Bridge messages
	Area        *AreaEvent        `cbor:"12,keyasint,omitempty"` // Processed request areas
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates incoming data.
	DirectionIn Direction = 0
	// DirectionOut indicates outgoing data.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the byte level: bridge frames and IPC exchanges.
	LayerTransport Layer = 0
	// LayerWire is the decoded bridge message level.
	LayerWire Layer = 1
	// LayerClient is the binding layer: links and request areas.
	LayerClient Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer parses a layer name as printed by String.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range []Layer{LayerTransport, LayerWire, LayerClient} {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates exchanged data: frames, messages, areas.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as printed by String.
func ParseCategory(s string) (Category, bool) {
	for _, c := range []Category{CategoryMessage, CategoryState, CategoryError} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Role indicates which side of a link logged the event.
type Role uint8

const (
	// RoleClient is an FSUIPC client.
	RoleClient Role = 0
	// RoleServer is a bridge server.
	RoleServer Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded bridge message.
type MessageEvent struct {
	Type      MessageType `cbor:"1,keyasint"`
	MessageID uint32      `cbor:"2,keyasint"`

	// For requests: the operation being performed.
	Operation *wire.Operation `cbor:"3,keyasint,omitempty"`

	// For responses: the result code.
	Status *wire.Status `cbor:"4,keyasint,omitempty"`

	// AreaSize is the size of the carried request area, if any.
	AreaSize int `cbor:"5,keyasint,omitempty"`

	// ProcessingTime is the duration from request receipt to response send
	// (response only). Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"6,keyasint,omitempty"`
}

// MessageType distinguishes requests from responses.
type MessageType uint8

const (
	MessageTypeRequest  MessageType = 0
	MessageTypeResponse MessageType = 1
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// AreaEvent summarizes one processed request area.
type AreaEvent struct {
	// Size is the area length, terminator included.
	Size int `cbor:"1,keyasint"`

	// Records lists the records in area order.
	Records []RecordSummary `cbor:"2,keyasint,omitempty"`

	// Status is the outcome of processing.
	Status wire.Status `cbor:"3,keyasint"`

	// Duration is the processing time in nanoseconds.
	Duration time.Duration `cbor:"4,keyasint,omitempty"`
}

// Reads returns the number of read records.
func (a *AreaEvent) Reads() int {
	return a.count(wire.RecordRead)
}

// Writes returns the number of write records.
func (a *AreaEvent) Writes() int {
	return a.count(wire.RecordWrite)
}

func (a *AreaEvent) count(id uint32) int {
	n := 0
	for _, r := range a.Records {
		if r.ID == id {
			n++
		}
	}
	return n
}

// RecordSummary describes one record of a request area.
type RecordSummary struct {
	ID     uint32 `cbor:"1,keyasint"`
	Offset uint32 `cbor:"2,keyasint"`
	Size   int    `cbor:"3,keyasint"`
}

// SummarizeArea lists the records of a terminated request area.
// Malformed areas yield the records up to the first bad one.
func SummarizeArea(layout wire.Layout, area []byte) []RecordSummary {
	var out []RecordSummary
	_ = wire.WalkArea(layout, area, func(rec wire.Record) error {
		out = append(out, RecordSummary{ID: rec.ID, Offset: rec.Offset, Size: len(rec.Data)})
		return nil
	})
	return out
}

// StateChangeEvent captures link and session lifecycle events.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink is a client's link to an FSUIPC server.
	StateEntityLink StateEntity = 0
	// StateEntityConnection is a bridge TCP connection.
	StateEntityConnection StateEntity = 1
	// StateEntityUpstream is a bridge's link to its upstream server.
	StateEntityUpstream StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityUpstream:
		return "UPSTREAM"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Code is the FSUIPC result code, if the error carried one.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// NewErrorEvent builds an error event from err, recording its result code.
func NewErrorEvent(sessionID string, layer Layer, context string, err error) Event {
	code := int(wire.StatusOf(err))
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Layer:     layer,
		Category:  CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Code:    &code,
			Context: context,
		},
	}
}
