package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"PortfolioDash/internal/domain/models"
	drepo "PortfolioDash/internal/domain/repository"
	domsvc "PortfolioDash/internal/domain/service"
	"PortfolioDash/internal/repository"
	"PortfolioDash/internal/service/ratelimit"
	"PortfolioDash/internal/services/auth"
	"PortfolioDash/pkg/cache"
)

type fakeBackend struct {
	mu           sync.Mutex
	chatCalls    int
	analyzeCalls int
	searchCalls  int
	lastTickers  []string
	reply        models.ChatReply
	result       models.AnalysisResult
	entered      chan struct{}
	block        chan struct{}
}

func (f *fakeBackend) SendMessage(_ context.Context, message string) models.ChatReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	return f.reply
}

func (f *fakeBackend) Suggestions(context.Context) []string { return models.DefaultSuggestions() }

func (f *fakeBackend) SearchCompanies(_ context.Context, query string) []models.CompanyMatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return []models.CompanyMatch{{Name: "Apple Inc.", Ticker: "AAPL"}}
}

func (f *fakeBackend) AnalyzePortfolio(_ context.Context, tickers []string) models.AnalysisResult {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	f.lastTickers = tickers
	return f.result
}

type memSink struct {
	mu     sync.Mutex
	events []models.ActivityEvent
	err    error
}

func (m *memSink) Record(_ context.Context, ev models.ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *memSink) Close() error { return nil }

func (m *memSink) kinds() []models.ActivityKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ActivityKind, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Kind
	}
	return out
}

type testEnv struct {
	d       *Dashboard
	backend *fakeBackend
	sink    *memSink
	store   drepo.SessionStore
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	store := repository.NewCacheSessionStore(mc, time.Hour, time.Minute)
	backend := &fakeBackend{reply: models.ChatReply{Response: "respuesta", Category: "conceptos"}}
	sink := &memSink{}
	d := NewDashboard(
		store,
		auth.NewStaticAuthenticator("admin", "admin"),
		backend, backend, backend,
		NewActivityRecorder(sink, "memory", nil, nil),
		ratelimit.New(),
		LoginRate{Capacity: 5, RefillPerSec: 0.01},
		nil, nil,
	)
	return &testEnv{d: d, backend: backend, sink: sink, store: store}
}

func (e *testEnv) loggedIn(t *testing.T) *models.Session {
	t.Helper()
	ctx := context.Background()
	s, err := e.d.Session(ctx, "")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	s, err = e.d.Login(ctx, s.ID, "127.0.0.1", models.Credentials{Username: "admin", Password: "admin"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return s
}

func TestSessionCreatesFreshState(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	s, err := env.d.Session(ctx, "")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if s.ID == "" || s.LoggedIn || s.View != models.ViewChatbot || s.TickerInput != "AAPL, MSFT, TSLA" {
		t.Fatalf("unexpected fresh session %+v", s)
	}

	s, err = env.d.Session(ctx, "expired-id")
	if err != nil || s.ID != "expired-id" || s.LoggedIn {
		t.Fatalf("unknown id should get fresh state under the same id: %v %+v", err, s)
	}
	if _, err := env.store.Load(ctx, s.ID); !errors.Is(err, drepo.ErrSessionNotFound) {
		t.Fatalf("fresh session should not be stored before its first event: %v", err)
	}

	if _, err := env.d.Login(ctx, s.ID, "ip", models.Credentials{Username: "admin", Password: "admin"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.store.Load(ctx, s.ID); err != nil {
		t.Fatalf("session not stored after login: %v", err)
	}
}

func TestLogin(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	s, _ := env.d.Session(ctx, "")

	s, err := env.d.Login(ctx, s.ID, "ip", models.Credentials{Username: "admin", Password: "wrong"})
	if !errors.Is(err, domsvc.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if s.LoggedIn {
		t.Fatalf("session logged in after bad password")
	}

	s, err = env.d.Login(ctx, s.ID, "ip", models.Credentials{Username: "admin", Password: "admin"})
	if err != nil || !s.LoggedIn || s.Username != "admin" {
		t.Fatalf("login failed: %v %+v", err, s)
	}

	kinds := env.sink.kinds()
	if len(kinds) != 2 || kinds[0] != models.ActivityLoginFailed || kinds[1] != models.ActivityLoginOK {
		t.Fatalf("unexpected activity %v", kinds)
	}
}

func TestLoginThrottled(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	s, _ := env.d.Session(ctx, "")

	bad := models.Credentials{Username: "admin", Password: "x"}
	for i := 0; i < 5; i++ {
		_, _ = env.d.Login(ctx, s.ID, "10.0.0.1", bad)
	}
	_, err := env.d.Login(ctx, s.ID, "10.0.0.1", models.Credentials{Username: "admin", Password: "admin"})
	if !errors.Is(err, domsvc.ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if _, err := env.d.Login(ctx, s.ID, "10.0.0.2", models.Credentials{Username: "admin", Password: "admin"}); err != nil {
		t.Fatalf("other client should not be throttled: %v", err)
	}
}

func TestSendChatAppendsTwoEntries(t *testing.T) {
	env := newEnv(t)
	s := env.loggedIn(t)

	s, err := env.d.SendChat(context.Background(), s.ID, "¿Qué es el riesgo?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(s.ChatHistory) != 2 {
		t.Fatalf("history len = %d", len(s.ChatHistory))
	}
	if s.ChatHistory[0].Role != models.RoleUser || s.ChatHistory[0].Content != "¿Qué es el riesgo?" {
		t.Fatalf("user entry %+v", s.ChatHistory[0])
	}
	if s.ChatHistory[1].Role != models.RoleAssistant || s.ChatHistory[1].Content != "respuesta" {
		t.Fatalf("assistant entry %+v", s.ChatHistory[1])
	}

	env.backend.reply = models.ChatReply{Response: "Error de conexión: timeout", Category: "error"}
	s, _ = env.d.AskSuggestion(context.Background(), s.ID, "¿Qué es invertir?")
	if len(s.ChatHistory) != 4 || !strings.HasPrefix(s.ChatHistory[3].Content, "Error de conexión") {
		t.Fatalf("degraded reply not appended: %+v", s.ChatHistory)
	}
}

func TestSendChatIgnoresEmptyMessage(t *testing.T) {
	env := newEnv(t)
	s := env.loggedIn(t)

	s, err := env.d.SendChat(context.Background(), s.ID, "")
	if err != nil || len(s.ChatHistory) != 0 || env.backend.chatCalls != 0 {
		t.Fatalf("empty message should be a no-op: err=%v history=%d calls=%d", err, len(s.ChatHistory), env.backend.chatCalls)
	}
}

func TestEventsRequireLogin(t *testing.T) {
	env := newEnv(t)
	s, _ := env.d.Session(context.Background(), "")

	if _, err := env.d.SendChat(context.Background(), s.ID, "hola"); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
	if env.backend.chatCalls != 0 {
		t.Fatalf("backend called for logged-out session")
	}
}

func TestAnalyzeRejectsFewerThanTwoTickers(t *testing.T) {
	env := newEnv(t)
	s := env.loggedIn(t)

	for _, raw := range []string{"", "AAPL", " , aapl , ", ",,,"} {
		s2, err := env.d.Analyze(context.Background(), s.ID, raw)
		if !errors.Is(err, ErrTooFewTickers) {
			t.Fatalf("%q: expected ErrTooFewTickers, got %v", raw, err)
		}
		if s2.TickerInput != raw {
			t.Fatalf("ticker input not remembered: %q", s2.TickerInput)
		}
	}
	if env.backend.analyzeCalls != 0 {
		t.Fatalf("analyzer called %d times", env.backend.analyzeCalls)
	}
}

func TestAnalyzeStoresResult(t *testing.T) {
	env := newEnv(t)
	s := env.loggedIn(t)
	sharpe := 1.1
	env.backend.result = models.AnalysisResult{Success: true, SharpeRatio: &sharpe}

	s, err := env.d.Analyze(context.Background(), s.ID, "aapl, msft, tsla")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	want := []string{"AAPL", "MSFT", "TSLA"}
	if strings.Join(env.backend.lastTickers, ",") != strings.Join(want, ",") {
		t.Fatalf("tickers = %v", env.backend.lastTickers)
	}
	if s.OptimizationResult == nil || !s.OptimizationResult.Success {
		t.Fatalf("result not stored")
	}

	// An unrelated event keeps the result.
	s, _ = env.d.SendChat(context.Background(), s.ID, "hola")
	if s.OptimizationResult == nil {
		t.Fatalf("result lost after chat")
	}
}

func TestAnalyzeBusySession(t *testing.T) {
	env := newEnv(t)
	s := env.loggedIn(t)
	env.backend.block = make(chan struct{})
	env.backend.result = models.AnalysisResult{Success: true}

	done := make(chan error, 1)
	go func() {
		_, err := env.d.Analyze(context.Background(), s.ID, "AAPL, MSFT")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		_, err = env.d.SendChat(context.Background(), s.ID, "hola")
		if errors.Is(err, drepo.ErrSessionBusy) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(env.backend.block)
	if !errors.Is(err, drepo.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy while analysis runs, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("analyze: %v", err)
	}
}

func TestLogoutResetsSession(t *testing.T) {
	env := newEnv(t)
	s := env.loggedIn(t)
	s, _ = env.d.SendChat(context.Background(), s.ID, "hola")

	fresh, err := env.d.Logout(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if fresh.ID == s.ID || fresh.LoggedIn || len(fresh.ChatHistory) != 0 {
		t.Fatalf("logout did not reset: %+v", fresh)
	}
	if _, err := env.store.Load(context.Background(), s.ID); !errors.Is(err, drepo.ErrSessionNotFound) {
		t.Fatalf("old session still stored: %v", err)
	}
	again, err := env.d.Session(context.Background(), s.ID)
	if err != nil || again.ID == s.ID {
		t.Fatalf("an ended id must not be reused: %v %+v", err, again)
	}
}

func TestLogoutDuringAnalysisStaysLoggedOut(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	s := env.loggedIn(t)
	s, _ = env.d.SendChat(ctx, s.ID, "hola")
	env.backend.entered = make(chan struct{}, 1)
	env.backend.block = make(chan struct{})
	env.backend.result = models.AnalysisResult{Success: true}

	done := make(chan error, 1)
	go func() {
		_, err := env.d.Analyze(ctx, s.ID, "AAPL, MSFT")
		done <- err
	}()

	select {
	case <-env.backend.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("analysis never started")
	}
	if _, err := env.d.Logout(ctx, s.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	close(env.backend.block)

	if err := <-done; !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired for the analysis, got %v", err)
	}
	if _, err := env.store.Load(ctx, s.ID); !errors.Is(err, drepo.ErrSessionNotFound) {
		t.Fatalf("logged-out session written back: %v", err)
	}
	reloaded, err := env.d.Session(ctx, s.ID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if reloaded.ID == s.ID || reloaded.LoggedIn || len(reloaded.ChatHistory) != 0 {
		t.Fatalf("old cookie reached a live session: %+v", reloaded)
	}
}

func TestSearchThreshold(t *testing.T) {
	env := newEnv(t)
	s := env.loggedIn(t)

	if _, ran := env.d.Search(context.Background(), s, "a"); ran {
		t.Fatalf("single character should not search")
	}
	if _, ran := env.d.Search(context.Background(), s, "é"); ran {
		t.Fatalf("single multibyte rune should not search")
	}
	matches, ran := env.d.Search(context.Background(), s, "ap")
	if !ran || len(matches) != 1 {
		t.Fatalf("two characters should search: ran=%v matches=%v", ran, matches)
	}
	env.d.Search(context.Background(), s, "ap")
	if env.backend.searchCalls != 2 {
		t.Fatalf("every render past the threshold should call the backend, got %d", env.backend.searchCalls)
	}
}

func TestActivitySinkFailureIsSwallowed(t *testing.T) {
	env := newEnv(t)
	env.sink.err = errors.New("broker down")
	s := env.loggedIn(t)
	if !s.LoggedIn {
		t.Fatalf("login should succeed even when activity recording fails")
	}
}
