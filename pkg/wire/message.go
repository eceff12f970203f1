package wire

import (
	"fmt"
)

// CBOR map keys for bridge messages.
const (
	KeyMessageID  = 1
	KeyOpOrStatus = 2 // Operation (request) or Status (response)
	KeyArea       = 3
)

// Request is a bridge message from client to server.
//
// CBOR encoding:
//
//	{
//	  1: messageId,   // uint32, nonzero
//	  2: operation,   // uint8: 1=Open, 2=Process, 3=Close, 4=Ping
//	  3: area,        // bytes: request area (Process only)
//	  4: client       // string: client name (Open only)
//	}
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
	Area      []byte    `cbor:"3,keyasint,omitempty"`
	Client    string    `cbor:"4,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("messageId 0 is reserved")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	if r.Operation == OpProcess {
		if len(r.Area) == 0 {
			return fmt.Errorf("process request without area")
		}
		if len(r.Area) > MaxAreaSize {
			return fmt.Errorf("area of %d bytes exceeds %d", len(r.Area), MaxAreaSize)
		}
	}
	return nil
}

// Response is a bridge message from server to client.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint32: FSUIPC result code
//	  3: area,         // bytes: processed area (Process only)
//	  4: pointerSize,  // uint8: upstream layout (Open only)
//	  5: message,      // string: error detail
//	  6: server        // string: server name (Open only)
//	}
type Response struct {
	MessageID   uint32 `cbor:"1,keyasint"`
	Status      Status `cbor:"2,keyasint"`
	Area        []byte `cbor:"3,keyasint,omitempty"`
	PointerSize uint8  `cbor:"4,keyasint,omitempty"`
	Message     string `cbor:"5,keyasint,omitempty"`
	Server      string `cbor:"6,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Err converts a failed response into an *Error. Returns nil on success.
func (r *Response) Err() error {
	if r.Status.IsSuccess() {
		return nil
	}
	return &Error{Status: r.Status, Message: r.Message}
}

// ErrorResponse builds a failed response for a request from err.
func ErrorResponse(messageID uint32, err error) *Response {
	resp := &Response{
		MessageID: messageID,
		Status:    StatusOf(err),
	}
	if err != nil {
		resp.Message = err.Error()
	}
	return resp
}
