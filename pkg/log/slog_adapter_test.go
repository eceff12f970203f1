package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

func logJSON(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterLogsAreaEvent(t *testing.T) {
	entry := logJSON(t, Event{
		Timestamp: time.Now(),
		SessionID: "sess-1",
		Direction: DirectionOut,
		Layer:     LayerClient,
		Simulator: "P3D64",
		Area: &AreaEvent{
			Size: 44,
			Records: []RecordSummary{
				{ID: wire.RecordRead, Offset: 0x3304, Size: 4},
				{ID: wire.RecordRead, Offset: 0x3308, Size: 4},
			},
			Status: wire.StatusOK,
		},
	})

	if entry["msg"] != "protocol" {
		t.Errorf("msg: got %v", entry["msg"])
	}
	if entry["session"] != "sess-1" {
		t.Errorf("session: got %v", entry["session"])
	}
	if entry["layer"] != "CLIENT" {
		t.Errorf("layer: got %v", entry["layer"])
	}
	if entry["sim"] != "P3D64" {
		t.Errorf("sim: got %v", entry["sim"])
	}
	if entry["reads"] != float64(2) {
		t.Errorf("reads: got %v", entry["reads"])
	}
	if entry["status"] != "OK" {
		t.Errorf("status: got %v", entry["status"])
	}
}

func TestSlogAdapterLogsMessageEvent(t *testing.T) {
	op := wire.OpProcess
	entry := logJSON(t, Event{
		SessionID:  "conn-9",
		Layer:      LayerWire,
		RemoteAddr: "10.0.0.2:51000",
		Message:    &MessageEvent{Type: MessageTypeRequest, MessageID: 42, Operation: &op, AreaSize: 28},
	})

	if entry["operation"] != "Process" {
		t.Errorf("operation: got %v", entry["operation"])
	}
	if entry["msg_id"] != float64(42) {
		t.Errorf("msg_id: got %v", entry["msg_id"])
	}
	if entry["remote"] != "10.0.0.2:51000" {
		t.Errorf("remote: got %v", entry["remote"])
	}
}

func TestSlogAdapterLogsErrorEvent(t *testing.T) {
	entry := logJSON(t, NewErrorEvent("s", LayerClient, "process", wire.NewError(wire.StatusSendMsg, "ipc")))

	if entry["category"] != "ERROR" {
		t.Errorf("category: got %v", entry["category"])
	}
	if entry["error_code"] != "12" {
		t.Errorf("error_code: got %v", entry["error_code"])
	}
	if entry["error_context"] != "process" {
		t.Errorf("error_context: got %v", entry["error_context"])
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{SessionID: "quiet"})

	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got %q", buf.String())
	}
}
