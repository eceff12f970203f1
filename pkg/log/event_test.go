package log

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerTransport.String(), "TRANSPORT"},
		{LayerWire.String(), "WIRE"},
		{LayerClient.String(), "CLIENT"},
		{CategoryMessage.String(), "MESSAGE"},
		{CategoryState.String(), "STATE"},
		{CategoryError.String(), "ERROR"},
		{RoleClient.String(), "CLIENT"},
		{RoleServer.String(), "SERVER"},
		{MessageTypeRequest.String(), "REQUEST"},
		{MessageTypeResponse.String(), "RESPONSE"},
		{StateEntityLink.String(), "LINK"},
		{StateEntityConnection.String(), "CONNECTION"},
		{StateEntityUpstream.String(), "UPSTREAM"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseLayerAndCategory(t *testing.T) {
	if l, ok := ParseLayer("WIRE"); !ok || l != LayerWire {
		t.Errorf("ParseLayer(WIRE) = %v, %v", l, ok)
	}
	if _, ok := ParseLayer("SERVICE"); ok {
		t.Error("ParseLayer(SERVICE) should fail")
	}
	if c, ok := ParseCategory("ERROR"); !ok || c != CategoryError {
		t.Errorf("ParseCategory(ERROR) = %v, %v", c, ok)
	}
}

func TestSummarizeArea(t *testing.T) {
	w := wire.NewAreaWriter(wire.Layout32)
	if _, err := w.AppendRead(0x3304, 4, 0); err != nil {
		t.Fatal(err)
	}
	if err := w.AppendWrite(0x0BC8, []byte{0, 0}); err != nil {
		t.Fatal(err)
	}

	records := SummarizeArea(wire.Layout32, w.Bytes())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0] != (RecordSummary{ID: wire.RecordRead, Offset: 0x3304, Size: 4}) {
		t.Errorf("record 0: %+v", records[0])
	}
	if records[1] != (RecordSummary{ID: wire.RecordWrite, Offset: 0x0BC8, Size: 2}) {
		t.Errorf("record 1: %+v", records[1])
	}

	area := &AreaEvent{Records: records}
	if area.Reads() != 1 || area.Writes() != 1 {
		t.Errorf("Reads/Writes: %d/%d", area.Reads(), area.Writes())
	}
}

func TestAreaEventEncoding(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	event := Event{
		Timestamp: ts,
		SessionID: "s-1",
		Direction: DirectionOut,
		Layer:     LayerClient,
		Category:  CategoryMessage,
		Simulator: "MSFS",
		Area: &AreaEvent{
			Size:     40,
			Records:  []RecordSummary{{ID: wire.RecordRead, Offset: 0x0560, Size: 8}},
			Status:   wire.StatusTimeout,
			Duration: 3 * time.Millisecond,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.Area == nil {
		t.Fatal("Area is nil")
	}
	if decoded.Area.Status != wire.StatusTimeout {
		t.Errorf("Status: got %v", decoded.Area.Status)
	}
	if decoded.Area.Duration != 3*time.Millisecond {
		t.Errorf("Duration: got %v", decoded.Area.Duration)
	}
	if len(decoded.Area.Records) != 1 || decoded.Area.Records[0].Offset != 0x0560 {
		t.Errorf("Records: got %+v", decoded.Area.Records)
	}
}

func TestEventEncodingIsCanonical(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 5, time.UTC),
		SessionID: "s-2",
		Layer:     LayerWire,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityLink,
			OldState: "CLOSED",
			NewState: "OPEN",
		},
	}
	first, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	second, _ := EncodeEvent(event)
	if !bytes.Equal(first, second) {
		t.Error("same event encoded to different bytes")
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for range 2 {
		if err := enc.Encode(event); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}
	if !bytes.Equal(buf.Bytes(), append(first, second...)) {
		t.Error("stream is not the concatenation of records")
	}

	dec := NewDecoder(&buf)
	n := 0
	for {
		var got Event
		if err := dec.Decode(&got); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("Decode failed: %v", err)
			}
			break
		}
		if got.StateChange == nil || got.StateChange.NewState != "OPEN" {
			t.Errorf("record %d: got %+v", n, got.StateChange)
		}
		n++
	}
	if n != 2 {
		t.Errorf("decoded %d records, want 2", n)
	}
}

func TestNewErrorEvent(t *testing.T) {
	event := NewErrorEvent("s-2", LayerClient, "open", wire.NewError(wire.StatusVersion, "handshake"))

	if event.Category != CategoryError {
		t.Errorf("Category: got %v", event.Category)
	}
	if event.Error == nil || event.Error.Code == nil {
		t.Fatal("expected error code")
	}
	if *event.Error.Code != int(wire.StatusVersion) {
		t.Errorf("Code: got %d", *event.Error.Code)
	}

	plain := NewErrorEvent("s-2", LayerWire, "decode", errors.New("bad cbor"))
	if *plain.Error.Code != int(wire.StatusData) {
		t.Errorf("plain error code: got %d", *plain.Error.Code)
	}
}
