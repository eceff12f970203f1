package wire

import (
	"bytes"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "open request",
			req: Request{
				MessageID: 1,
				Operation: OpOpen,
				Client:    "fsuipc-cli",
			},
		},
		{
			name: "process request",
			req: Request{
				MessageID: 2,
				Operation: OpProcess,
				Area:      []byte{1, 0, 0, 0, 0x04, 0x33, 0, 0, 4, 0, 0, 0},
			},
		},
		{
			name: "close request",
			req:  Request{MessageID: 3, Operation: OpClose},
		},
		{
			name: "ping request",
			req:  Request{MessageID: 4, Operation: OpPing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeRequest(&tt.req)
			if err != nil {
				t.Fatalf("EncodeRequest failed: %v", err)
			}

			decoded, err := DecodeRequest(data)
			if err != nil {
				t.Fatalf("DecodeRequest failed: %v", err)
			}

			if decoded.MessageID != tt.req.MessageID {
				t.Errorf("MessageID: got %d, want %d", decoded.MessageID, tt.req.MessageID)
			}
			if decoded.Operation != tt.req.Operation {
				t.Errorf("Operation: got %v, want %v", decoded.Operation, tt.req.Operation)
			}
			if !bytes.Equal(decoded.Area, tt.req.Area) {
				t.Errorf("Area: got %x, want %x", decoded.Area, tt.req.Area)
			}
			if decoded.Client != tt.req.Client {
				t.Errorf("Client: got %q, want %q", decoded.Client, tt.req.Client)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Response{
		MessageID:   7,
		Status:      StatusOK,
		Area:        []byte{0xAA, 0xBB},
		PointerSize: 8,
		Server:      "bridge-1",
	}

	data, err := EncodeResponse(&resp)
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	decoded, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}

	if decoded.MessageID != 7 || decoded.PointerSize != 8 || decoded.Server != "bridge-1" {
		t.Errorf("unexpected response: %+v", decoded)
	}
	if !decoded.IsSuccess() {
		t.Error("expected success")
	}
	if decoded.Err() != nil {
		t.Errorf("Err() = %v, want nil", decoded.Err())
	}
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(9, NewError(StatusNoFS, "upstream"))

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	decoded, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}

	if decoded.Status != StatusNoFS {
		t.Errorf("Status: got %v, want NOFS", decoded.Status)
	}
	if StatusOf(decoded.Err()) != StatusNoFS {
		t.Errorf("Err() status: got %v", StatusOf(decoded.Err()))
	}
	if decoded.Message == "" {
		t.Error("expected message")
	}
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid ping", Request{MessageID: 1, Operation: OpPing}, false},
		{"zero message id", Request{MessageID: 0, Operation: OpPing}, true},
		{"zero operation", Request{MessageID: 1}, true},
		{"unknown operation", Request{MessageID: 1, Operation: 9}, true},
		{"process without area", Request{MessageID: 1, Operation: OpProcess}, true},
		{"oversized area", Request{MessageID: 1, Operation: OpProcess, Area: make([]byte, MaxAreaSize+1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCBORCompactness(t *testing.T) {
	req := Request{MessageID: 1, Operation: OpPing}

	data, err := EncodeRequest(&req)
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	// {1: 1, 2: 4} is a 5-byte map with integer keys.
	if len(data) != 5 {
		t.Errorf("ping request: got %d bytes (%x), want 5", len(data), data)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	extended := struct {
		MessageID uint32 `cbor:"1,keyasint"`
		Operation uint8  `cbor:"2,keyasint"`
		Future    string `cbor:"99,keyasint"`
	}{1, uint8(OpPing), "later"}

	data, err := Marshal(extended)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	req, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}
	if req.Operation != OpPing {
		t.Errorf("Operation: got %v, want Ping", req.Operation)
	}
}
