package server

import (
	"context"
	"testing"
	"time"

	"PortfolioDash/internal/domain/models"
	"PortfolioDash/internal/usecase"
	"PortfolioDash/pkg/cache"
	"PortfolioDash/pkg/config"
	xhttp "PortfolioDash/pkg/http"
)

type closeOrder struct {
	calls []string
}

type recordingSink struct{ order *closeOrder }

func (s recordingSink) Record(context.Context, models.ActivityEvent) error { return nil }

func (s recordingSink) Close() error {
	s.order.calls = append(s.order.calls, "activity")
	return nil
}

type recordingCache struct {
	cache.Service
	order *closeOrder
}

func (c recordingCache) Close() error {
	c.order.calls = append(c.order.calls, "cache")
	return c.Service.Close()
}

func TestRunContextShutsDownInOrder(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Session.Store = "memory"

	order := &closeOrder{}
	srv := xhttp.NewServer(nil, nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	rec := usecase.NewActivityRecorder(recordingSink{order: order}, "test", nil, nil)
	app := New(cfg, nil, srv, rec, recordingCache{Service: cache.NewMemoryCache(), order: order})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("app did not stop")
	}

	if len(order.calls) != 2 || order.calls[0] != "activity" || order.calls[1] != "cache" {
		t.Fatalf("unexpected close order %v", order.calls)
	}
}
