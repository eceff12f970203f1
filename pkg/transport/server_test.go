package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voneiden/gofsuipc/pkg/log"
)

func startEchoServer(t *testing.T, logger log.Logger) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		Logger:  logger,
		OnMessage: func(conn *ServerConn, msg []byte) {
			conn.Send(append([]byte("echo:"), msg...))
		},
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func TestNewServerRequiresAddress(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("expected error for missing address")
	}
}

func TestServerClientExchange(t *testing.T) {
	logger := &capturingLogger{}
	srv := startEchoServer(t, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, srv.Addr().String(), ClientConfig{})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	for _, msg := range []string{"one", "two"} {
		if err := conn.Send([]byte(msg)); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		got, err := conn.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if string(got) != "echo:"+msg {
			t.Errorf("got %q", got)
		}
	}

	if n := srv.ConnectionCount(); n != 1 {
		t.Errorf("ConnectionCount = %d, want 1", n)
	}

	var connected bool
	for _, e := range logger.Events() {
		if e.StateChange != nil && e.StateChange.NewState == "CONNECTED" && e.SessionID != "" {
			connected = true
		}
	}
	if !connected {
		t.Error("expected CONNECTED state event with session id")
	}
}

func TestServerDisconnectCallback(t *testing.T) {
	var mu sync.Mutex
	disconnected := make(chan string, 1)

	srv, err := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		OnDisconnect: func(conn *ServerConn) {
			mu.Lock()
			defer mu.Unlock()
			disconnected <- conn.SessionID()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	conn, err := Dial(context.Background(), srv.Addr().String(), ClientConfig{})
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()

	select {
	case id := <-disconnected:
		if id == "" {
			t.Error("empty session id")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnDisconnect not called")
	}
}

func TestClientReceiveHonorsContext(t *testing.T) {
	srv, err := NewServer(ServerConfig{Address: "127.0.0.1:0"})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	conn, err := Dial(context.Background(), srv.Addr().String(), ClientConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := conn.Receive(ctx); err == nil {
		t.Fatal("expected error from silent server")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Receive ignored the deadline")
	}
}

func TestClientSendAfterClose(t *testing.T) {
	srv := startEchoServer(t, nil)
	conn, err := Dial(context.Background(), srv.Addr().String(), ClientConfig{})
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()

	if err := conn.Send([]byte("x")); err != ErrConnectionClosed {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestServerStopIdempotent(t *testing.T) {
	srv := startEchoServer(t, nil)
	if err := srv.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatal(err)
	}
}
