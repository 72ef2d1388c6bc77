package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"PortfolioDash/internal/domain/models"
	drepo "PortfolioDash/internal/domain/repository"
	domsvc "PortfolioDash/internal/domain/service"
	"PortfolioDash/internal/service/ratelimit"
	"PortfolioDash/pkg/logger"
)

var (
	ErrTooFewTickers = errors.New("at least 2 tickers are required")
	ErrLoginRequired = errors.New("login required")
)

// MinSearchRunes is the query length at which company search runs.
const MinSearchRunes = 2

// LoginRate configures per-client login throttling.
type LoginRate struct {
	Capacity     float64
	RefillPerSec float64
}

// Dashboard holds the event handlers. Each handler loads the session, mutates
// it under the session lock and saves it back.
type Dashboard struct {
	sessions drepo.SessionStore
	auth     domsvc.Authenticator
	chatbot  domsvc.Chatbot
	search   domsvc.CompanySearcher
	analyzer domsvc.PortfolioAnalyzer
	activity *ActivityRecorder
	limiter  *ratelimit.Limiter
	rate     LoginRate
	metrics  drepo.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewDashboard(
	sessions drepo.SessionStore,
	auth domsvc.Authenticator,
	chatbot domsvc.Chatbot,
	search domsvc.CompanySearcher,
	analyzer domsvc.PortfolioAnalyzer,
	activity *ActivityRecorder,
	limiter *ratelimit.Limiter,
	rate LoginRate,
	metrics drepo.Metrics,
	l *logger.Logger,
) *Dashboard {
	if l == nil {
		l = logger.Nop()
	}
	if activity == nil {
		activity = NewActivityRecorder(nil, "none", metrics, l)
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Dashboard{
		sessions: sessions,
		auth:     auth,
		chatbot:  chatbot,
		search:   search,
		analyzer: analyzer,
		activity: activity,
		limiter:  limiter,
		rate:     rate,
		metrics:  metrics,
		log:      l.With(logger.String("component", "dashboard")),
		now:      time.Now,
	}
}

// Session returns the session for id. An unknown or expired id gets fresh
// state under the same id, an ended or empty one gets a new id. Fresh
// sessions are not stored until their first event.
func (d *Dashboard) Session(ctx context.Context, id string) (*models.Session, error) {
	sess, err := d.sessions.Load(ctx, id)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, drepo.ErrSessionEnded):
		id = ""
	case !errors.Is(err, drepo.ErrSessionNotFound):
		d.storeError(err)
		return nil, err
	}

	sess = models.NewSession(d.now())
	if id != "" {
		sess.ID = id
	}
	return sess, nil
}

// update runs fn on the session under its lock and saves the result. The
// session is saved even when fn returns an error so partial state (the
// typed ticker input, for instance) survives.
func (d *Dashboard) update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	sess, err := d.Session(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := d.sessions.Lock(ctx, sess.ID)
	if err != nil {
		if !errors.Is(err, drepo.ErrSessionBusy) {
			d.storeError(err)
		}
		return sess, err
	}
	defer unlock()

	// Reload under the lock: a concurrent event may have saved in between.
	fresh, err := d.sessions.Load(ctx, sess.ID)
	switch {
	case err == nil:
		sess = fresh
	case errors.Is(err, drepo.ErrSessionEnded):
		return nil, ErrLoginRequired
	}

	fnErr := fn(sess)
	sess.Touch(d.now())
	if err := d.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, drepo.ErrSessionEnded) {
			d.log.Info("dropped event for a session ended meanwhile", logger.String("session", sess.ID))
			return nil, ErrLoginRequired
		}
		d.storeError(err)
		return sess, err
	}
	return sess, fnErr
}

func (d *Dashboard) storeError(err error) {
	if d.metrics != nil {
		d.metrics.RecordError("session_store")
	}
	d.log.Error("session store failure", logger.Error(err))
}

func requireLogin(s *models.Session) error {
	if !s.LoggedIn {
		return ErrLoginRequired
	}
	return nil
}

// Login flips the session to logged in when the credentials match.
// clientKey identifies the caller for throttling (usually the remote IP).
func (d *Dashboard) Login(ctx context.Context, id, clientKey string, creds models.Credentials) (*models.Session, error) {
	return d.update(ctx, id, func(s *models.Session) error {
		if !d.limiter.Allow("login:"+clientKey, d.rate.Capacity, d.rate.RefillPerSec) {
			ev := models.NewActivityEvent(models.ActivityLoginFailed, s, d.now())
			ev.Success = false
			ev.Detail = "throttled"
			d.activity.Record(ctx, ev)
			return domsvc.ErrThrottled
		}

		p, err := d.auth.Authenticate(ctx, creds)
		if err != nil {
			ev := models.NewActivityEvent(models.ActivityLoginFailed, s, d.now())
			ev.Success = false
			ev.Username = creds.Username
			d.activity.Record(ctx, ev)
			if errors.Is(err, domsvc.ErrRejected) {
				return err
			}
			return fmt.Errorf("authenticate: %w", err)
		}

		s.LoggedIn = true
		s.Username = p.Username
		d.activity.Record(ctx, models.NewActivityEvent(models.ActivityLoginOK, s, d.now()))
		return nil
	})
}

// Logout ends id and returns a fresh, logged-out session. An event still
// running on the old id cannot save it back.
func (d *Dashboard) Logout(ctx context.Context, id string) (*models.Session, error) {
	old, err := d.sessions.Load(ctx, id)
	switch {
	case err == nil:
		if old.LoggedIn {
			d.activity.Record(ctx, models.NewActivityEvent(models.ActivityLogout, old, d.now()))
		}
	case !errors.Is(err, drepo.ErrSessionNotFound):
		d.storeError(err)
		return nil, err
	}

	if id != "" {
		if err := d.sessions.Delete(ctx, id); err != nil {
			d.storeError(err)
			return nil, err
		}
	}
	return models.NewSession(d.now()), nil
}

// SelectView records the navigation choice. A busy session still gets the
// view it asked for, the choice is just not persisted.
func (d *Dashboard) SelectView(ctx context.Context, id string, view models.View) (*models.Session, error) {
	sess, err := d.update(ctx, id, func(s *models.Session) error {
		if err := requireLogin(s); err != nil {
			return err
		}
		s.View = view
		return nil
	})
	if errors.Is(err, drepo.ErrSessionBusy) && sess != nil {
		if err := requireLogin(sess); err != nil {
			return sess, err
		}
		sess.View = view
		return sess, nil
	}
	return sess, err
}

// SendChat appends the message and the assistant reply. An empty message is
// ignored.
func (d *Dashboard) SendChat(ctx context.Context, id, message string) (*models.Session, error) {
	return d.update(ctx, id, func(s *models.Session) error {
		if err := requireLogin(s); err != nil {
			return err
		}
		s.View = models.ViewChatbot
		if message == "" {
			return nil
		}
		d.exchange(ctx, s, message)
		return nil
	})
}

// AskSuggestion runs the same sequence as SendChat with a canned question.
func (d *Dashboard) AskSuggestion(ctx context.Context, id, question string) (*models.Session, error) {
	return d.SendChat(ctx, id, question)
}

func (d *Dashboard) exchange(ctx context.Context, s *models.Session, message string) {
	start := d.now()
	reply := d.chatbot.SendMessage(ctx, message)
	s.AppendExchange(message, reply.Response)

	ev := models.NewActivityEvent(models.ActivityChatMessage, s, d.now())
	ev.Detail = reply.Category
	ev.Success = reply.Category != models.ChatCategoryError
	ev.DurationMs = d.now().Sub(start).Milliseconds()
	d.activity.Record(ctx, ev)
}

// Health reports whether the activity store answers.
func (d *Dashboard) Health(ctx context.Context) error {
	return d.activity.Health(ctx)
}

// Suggestions returns the suggestion buttons for the chatbot view.
func (d *Dashboard) Suggestions(ctx context.Context) []string {
	return d.chatbot.Suggestions(ctx)
}

// Analyze parses raw into tickers and runs the optimizer. The raw input is
// remembered either way. Fewer than two tickers returns ErrTooFewTickers
// without calling the backend and keeps the previous result.
func (d *Dashboard) Analyze(ctx context.Context, id, raw string) (*models.Session, error) {
	return d.update(ctx, id, func(s *models.Session) error {
		if err := requireLogin(s); err != nil {
			return err
		}
		s.View = models.ViewOptimizer
		s.TickerInput = raw

		tickers := models.ParseTickers(raw)
		if len(tickers) < models.MinTickers {
			return ErrTooFewTickers
		}

		start := d.now()
		res := d.analyzer.AnalyzePortfolio(ctx, tickers)
		s.OptimizationResult = &res

		ev := models.NewActivityEvent(models.ActivityAnalysisCompleted, s, d.now())
		ev.Tickers = tickers
		ev.Success = res.Success
		if !res.Success {
			ev.Detail = res.FailureMessage()
		}
		ev.DurationMs = d.now().Sub(start).Milliseconds()
		d.activity.Record(ctx, ev)
		return nil
	})
}

// Search runs a company search when query has at least MinSearchRunes
// characters. ran reports whether the backend was queried.
func (d *Dashboard) Search(ctx context.Context, s *models.Session, query string) (matches []models.CompanyMatch, ran bool) {
	if utf8.RuneCountInString(query) < MinSearchRunes {
		return nil, false
	}
	matches = d.search.SearchCompanies(ctx, query)

	ev := models.NewActivityEvent(models.ActivityCompanySearch, s, d.now())
	ev.Detail = strings.TrimSpace(query)
	ev.Success = len(matches) > 0
	d.activity.Record(ctx, ev)
	return matches, true
}
