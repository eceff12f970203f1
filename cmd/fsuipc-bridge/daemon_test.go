package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/internal/config"
	"github.com/voneiden/gofsuipc/pkg/bridge"
	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/sim"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Upstream = config.BackendSim
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.Name = "test-bridge"
	cfg.Sim.Tick = 0
	return cfg
}

func startDaemon(t *testing.T, cfg *config.Config) (*daemon, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	d, err := newDaemon(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, d.Start(ctx))

	done := make(chan error, 1)
	go func() { done <- d.Wait() }()
	return d, cancel, done
}

func TestDaemonServesSimUpstream(t *testing.T) {
	d, cancel, done := startDaemon(t, testConfig())

	c := fsuipc.NewClient(bridge.Connector(d.server.Addr().String(), bridge.ClientConfig{Name: "test"}))
	require.NoError(t, c.Open(context.Background(), wire.SimAny))
	raw, err := c.Read(context.Background(), sim.OffsetTitle, 6)
	require.NoError(t, err)
	assert.Equal(t, "Cessna", string(raw))
	require.NoError(t, c.Close())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestDaemonMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Metrics = "127.0.0.1:0"
	d, cancel, done := startDaemon(t, cfg)
	defer func() {
		cancel()
		<-done
	}()

	c := fsuipc.NewClient(bridge.Connector(d.server.Addr().String(), bridge.ClientConfig{Name: "test"}))
	require.NoError(t, c.Open(context.Background(), wire.SimAny))
	defer c.Close()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + d.metricsLn.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, body, "fsuipc_bridge_connections")
	assert.Contains(t, body, "go_goroutines")
}

func TestDaemonRejectsBadUpstream(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Upstream = "serial"
	_, err := newDaemon(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "upstream")
}
