package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"PortfolioDash/internal/domain/models"
	"PortfolioDash/internal/domain/repository"
	"PortfolioDash/pkg/cache"
)

func TestCacheSessionStoreRoundTrip(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, time.Hour, time.Minute)
	ctx := context.Background()

	sess := models.NewSession(time.Now())
	sess.LoggedIn = true
	sess.AppendExchange("hola", "**hola**")
	sharpe := 1.5
	sess.OptimizationResult = &models.AnalysisResult{
		Success:     true,
		Weights:     models.Weights{{Ticker: "TSLA", Weight: 0.6}, {Ticker: "AAPL", Weight: 0.4}},
		SharpeRatio: &sharpe,
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.LoggedIn || len(got.ChatHistory) != 2 || got.ChatHistory[1].Role != models.RoleAssistant {
		t.Fatalf("unexpected session %+v", got)
	}
	if w := got.OptimizationResult.Weights; len(w) != 2 || w[0].Ticker != "TSLA" {
		t.Fatalf("weight order lost: %+v", w)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, sess.ID); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCacheSessionStoreLock(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, time.Hour, time.Minute)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "s1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := store.Lock(ctx, "s1"); !errors.Is(err, repository.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
	if _, err := store.Lock(ctx, "s2"); err != nil {
		t.Fatalf("other session should lock independently: %v", err)
	}
	unlock()
	if _, err := store.Lock(ctx, "s1"); err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
}

func TestCacheSessionStoreDeleteEndsID(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, time.Hour, time.Minute)
	ctx := context.Background()

	sess := models.NewSession(time.Now())
	sess.LoggedIn = true
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// A request that loaded the session before Delete writes it back.
	if err := store.Save(ctx, sess); !errors.Is(err, repository.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded on save, got %v", err)
	}
	_, err := store.Load(ctx, sess.ID)
	if !errors.Is(err, repository.ErrSessionEnded) || !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ended id to load as not found, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, sessionKey(sess.ID)); ok {
		t.Fatalf("stale copy left in the cache")
	}
}

func TestCacheSessionStoreLoadIgnoresCopyWrittenAfterDelete(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, time.Hour, time.Minute)
	ctx := context.Background()

	sess := models.NewSession(time.Now())
	sess.LoggedIn = true
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Raw write that skips the store, as a racing Save would before its check.
	if err := mc.Set(ctx, sessionKey(sess.ID), sess, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := store.Load(ctx, sess.ID); !errors.Is(err, repository.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}

type recordingProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (r *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	r.topic, r.key, r.value = topic, key, value
	return nil
}

func (r *recordingProducer) Close() error { return nil }

func TestKafkaActivityPublisherKeysBySession(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaActivityPublisher(prod, "dashboard.activity")

	sess := models.NewSession(time.Now())
	ev := models.NewActivityEvent(models.ActivityLogout, sess, time.Now())
	if err := pub.Record(context.Background(), ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if prod.topic != "dashboard.activity" || string(prod.key) != sess.ID {
		t.Fatalf("topic=%q key=%q", prod.topic, prod.key)
	}
	b, _ := json.Marshal(prod.value)
	if !strings.Contains(string(b), `"kind":"logout"`) {
		t.Fatalf("payload %s", b)
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("portfoliodash")
	if len(stmts) != 2 || !strings.Contains(stmts[1], "portfoliodash.dashboard_events") {
		t.Fatalf("unexpected DDL %v", stmts)
	}
}
