package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"PortfolioDash/internal/domain/models"
	drepo "PortfolioDash/internal/domain/repository"
	domsvc "PortfolioDash/internal/domain/service"
	"PortfolioDash/internal/usecase"
	xhttp "PortfolioDash/pkg/http"
	"PortfolioDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	pageTitle = "Portfolio Optimizer"

	rejectedText  = "Usuario o contraseña incorrectos"
	throttledText = "Demasiados intentos. Espera un momento antes de volver a intentarlo."
	busyText      = "Hay una operación en curso para esta sesión. Espera a que termine."

	ctxSession   = "dashboard.session"
	ctxCookieID  = "dashboard.cookie_id"
	ctxCookieExp = "dashboard.cookie_exp"

	healthTimeout = 2 * time.Second
)

// Options configures the session cookie and the login page.
type Options struct {
	CookieName     string
	CookieTTL      time.Duration
	SecureCookie   bool
	CredentialHint bool
}

// DashboardHandler serves the login gate and the three dashboard views.
type DashboardHandler struct {
	dash     *usecase.Dashboard
	tokens   domsvc.SessionTokens
	renderer *Renderer
	opts     Options
	logger   *logger.Logger
}

func NewDashboardHandler(dash *usecase.Dashboard, tokens domsvc.SessionTokens, opts Options, l *logger.Logger) (*DashboardHandler, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "pd_session"
	}
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = 12 * time.Hour
	}
	if l == nil {
		l = logger.Nop()
	}
	return &DashboardHandler{
		dash:     dash,
		tokens:   tokens,
		renderer: r,
		opts:     opts,
		logger:   l.With(logger.String("component", "web")),
	}, nil
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.Renderer = h.renderer
	e.HTTPErrorHandler = h.handleError

	e.GET("/healthz", h.Healthz)
	e.GET("/", h.Index, h.loadSession)
	e.GET("/login", h.LoginPage, h.loadSession)
	e.POST("/login", h.Login, h.loadSession)
	e.POST("/logout", h.Logout, h.loadSession)

	g := e.Group("/app", h.loadSession, h.requireLogin)
	g.GET("", h.App)
	g.POST("/chat", h.Chat)
	g.POST("/chat/suggestion", h.Suggestion)
	g.POST("/optimizer/analyze", h.Analyze)
}

// --- session plumbing ---

func (h *DashboardHandler) loadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, exp := h.cookieSession(c)
		c.Set(ctxCookieID, id)
		c.Set(ctxCookieExp, exp)

		sess, err := h.dash.Session(c.Request().Context(), id)
		if err != nil {
			return xhttp.InternalError("No se pudo cargar la sesión").WithError(err)
		}
		if err := h.bind(c, sess); err != nil {
			return err
		}
		return next(c)
	}
}

func (h *DashboardHandler) requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !current(c).LoggedIn {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return next(c)
	}
}

func (h *DashboardHandler) cookieSession(c echo.Context) (string, time.Time) {
	ck, err := c.Cookie(h.opts.CookieName)
	if err != nil || ck.Value == "" {
		return "", time.Time{}
	}
	id, exp, err := h.tokens.Parse(ck.Value)
	if err != nil {
		h.logger.Debug("discarding session cookie", logger.Error(err))
		return "", time.Time{}
	}
	return id, exp
}

// bind makes sess the request's session. The cookie is re-issued when the
// browser holds a different id or its token is past half its lifetime.
func (h *DashboardHandler) bind(c echo.Context, sess *models.Session) error {
	c.Set(ctxSession, sess)
	id, _ := c.Get(ctxCookieID).(string)
	exp, _ := c.Get(ctxCookieExp).(time.Time)
	if id == sess.ID && time.Until(exp) > h.opts.CookieTTL/2 {
		return nil
	}

	token, err := h.tokens.Issue(sess.ID)
	if err != nil {
		return xhttp.InternalError("No se pudo emitir la sesión").WithError(err)
	}
	c.SetCookie(&http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.opts.CookieTTL.Seconds()),
	})
	c.Set(ctxCookieID, sess.ID)
	c.Set(ctxCookieExp, time.Now().Add(h.opts.CookieTTL))
	return nil
}

func current(c echo.Context) *models.Session {
	sess, _ := c.Get(ctxSession).(*models.Session)
	return sess
}

// --- routes ---

// Healthz reports ok, or 503 when the activity store does not answer.
func (h *DashboardHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if err := h.dash.Health(ctx); err != nil {
		h.logger.Warn("health check failed", logger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"activity": err.Error(),
		})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) Index(c echo.Context) error {
	if current(c).LoggedIn {
		return c.Redirect(http.StatusSeeOther, "/app")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *DashboardHandler) LoginPage(c echo.Context) error {
	if current(c).LoggedIn {
		return c.Redirect(http.StatusSeeOther, "/app")
	}
	return h.renderLogin(c, nil)
}

func (h *DashboardHandler) Login(c echo.Context) error {
	var req models.LoginForm
	if verrs := xhttp.ReadAndValidateRequest(c, &req); len(verrs) > 0 {
		return h.renderLogin(c, xhttp.UnprocessableError(verrs[0].Field, verrs.First()))
	}

	sess, err := h.dash.Login(c.Request().Context(), current(c).ID, c.RealIP(), models.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if sess != nil {
		if berr := h.bind(c, sess); berr != nil {
			return berr
		}
	}

	switch {
	case err == nil:
		return c.Redirect(http.StatusSeeOther, "/app")
	case errors.Is(err, domsvc.ErrRejected):
		return h.renderLogin(c, xhttp.UnauthorizedError(rejectedText))
	case errors.Is(err, domsvc.ErrThrottled):
		return h.renderLogin(c, xhttp.TooManyRequestsError(throttledText))
	case errors.Is(err, drepo.ErrSessionBusy):
		return h.renderLogin(c, xhttp.ConflictError(busyText))
	case errors.Is(err, usecase.ErrLoginRequired):
		return c.Redirect(http.StatusSeeOther, "/login")
	default:
		return xhttp.InternalError("No se pudo iniciar sesión").WithError(err)
	}
}

func (h *DashboardHandler) Logout(c echo.Context) error {
	sess, err := h.dash.Logout(c.Request().Context(), current(c).ID)
	if err != nil {
		return xhttp.InternalError("No se pudo cerrar la sesión").WithError(err)
	}
	if err := h.bind(c, sess); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// App is the view router: it persists the selected view and renders it.
func (h *DashboardHandler) App(c echo.Context) error {
	var q models.ViewQuery
	if verrs := xhttp.ReadAndValidateRequest(c, &q); len(verrs) > 0 {
		return xhttp.BadRequestError(verrs.First())
	}

	cur := current(c)
	sess, err := h.dash.SelectView(c.Request().Context(), cur.ID, models.ParseView(q.View, cur.View))
	if err != nil {
		return h.eventError(c, sess, err, cur.View)
	}
	return h.renderApp(c, sess, q.Query, nil)
}

func (h *DashboardHandler) Chat(c echo.Context) error {
	var req models.ChatForm
	if verrs := xhttp.ReadAndValidateRequest(c, &req); len(verrs) > 0 {
		return h.invalid(c, models.ViewChatbot, verrs)
	}
	sess, err := h.dash.SendChat(c.Request().Context(), current(c).ID, req.Message)
	if err != nil {
		return h.eventError(c, sess, err, models.ViewChatbot)
	}
	return c.Redirect(http.StatusSeeOther, "/app?view=chatbot")
}

func (h *DashboardHandler) Suggestion(c echo.Context) error {
	var req models.SuggestionForm
	if verrs := xhttp.ReadAndValidateRequest(c, &req); len(verrs) > 0 {
		return h.invalid(c, models.ViewChatbot, verrs)
	}
	sess, err := h.dash.AskSuggestion(c.Request().Context(), current(c).ID, req.Question)
	if err != nil {
		return h.eventError(c, sess, err, models.ViewChatbot)
	}
	return c.Redirect(http.StatusSeeOther, "/app?view=chatbot")
}

func (h *DashboardHandler) Analyze(c echo.Context) error {
	var req models.AnalyzeForm
	if verrs := xhttp.ReadAndValidateRequest(c, &req); len(verrs) > 0 {
		return h.invalid(c, models.ViewOptimizer, verrs)
	}
	sess, err := h.dash.Analyze(c.Request().Context(), current(c).ID, req.Tickers)
	if err != nil {
		return h.eventError(c, sess, err, models.ViewOptimizer)
	}
	return c.Redirect(http.StatusSeeOther, "/app?view=optimizer")
}

// --- rendering ---

func (h *DashboardHandler) invalid(c echo.Context, view models.View, verrs xhttp.ValidationErrors) error {
	sess := *current(c)
	sess.View = view
	return h.renderApp(c, &sess, "", xhttp.UnprocessableError(verrs[0].Field, verrs.First()))
}

// eventError maps a dashboard error onto a response. view is the view the
// event targeted, shown again with the notice.
func (h *DashboardHandler) eventError(c echo.Context, sess *models.Session, err error, view models.View) error {
	if sess == nil {
		sess = current(c)
	}
	switch {
	case errors.Is(err, usecase.ErrLoginRequired):
		return c.Redirect(http.StatusSeeOther, "/login")
	case errors.Is(err, usecase.ErrTooFewTickers):
		return h.renderApp(c, sess, "", xhttp.UnprocessableError("tickers", models.TooFewTickersText))
	case errors.Is(err, drepo.ErrSessionBusy):
		shown := *sess
		shown.View = view
		return h.renderApp(c, &shown, "", xhttp.ConflictError(busyText))
	default:
		return xhttp.InternalError("No se pudo completar la operación").WithError(err)
	}
}

// renderLogin shows the login form, with fault as the message when set.
func (h *DashboardHandler) renderLogin(c echo.Context, fault *xhttp.AppError) error {
	data := PageData{
		Title:          pageTitle,
		CredentialHint: h.opts.CredentialHint,
		Status:         http.StatusOK,
	}
	if fault != nil {
		data.Status = fault.Status
		data.Error = fault.Message
	}
	return c.Render(data.Status, "login", data)
}

// renderApp renders the session's view. A conflict fault is shown as a
// notice, any other fault as an error.
func (h *DashboardHandler) renderApp(c echo.Context, sess *models.Session, query string, fault *xhttp.AppError) error {
	ctx := c.Request().Context()
	data := PageData{
		Title:    pageTitle,
		Username: sess.Username,
		View:     sess.View,
		Status:   http.StatusOK,
	}
	if fault != nil {
		data.Status = fault.Status
		if fault.Status == http.StatusConflict {
			data.Notice = fault.Message
		} else {
			data.Error = fault.Message
		}
	}

	switch sess.View {
	case models.ViewOptimizer:
		data.Optimizer = &OptimizerView{
			TickerInput: sess.TickerInput,
			Result:      resultView(sess.OptimizationResult),
		}
	case models.ViewSearch:
		matches, ran := h.dash.Search(ctx, sess, query)
		data.Search = &SearchView{Query: query, Ran: ran, Matches: matches}
	default:
		data.View = models.ViewChatbot
		data.Chat = chatView(sess.ChatHistory, h.dash.Suggestions(ctx))
	}
	return c.Render(data.Status, "app", data)
}

func (h *DashboardHandler) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(err, echo.ErrNotFound) {
		err = xhttp.NotFoundError("Página no encontrada").WithError(err)
	}

	status := xhttp.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			logger.String("method", c.Request().Method),
			logger.String("path", c.Request().URL.Path),
			logger.Error(err),
		)
	}

	var werr error
	switch {
	case c.Request().Method == http.MethodHead:
		werr = c.NoContent(status)
	case xhttp.WantsJSON(c):
		werr = xhttp.AppErrorResponse(c, err)
	default:
		werr = c.Render(status, "error", PageData{Title: pageTitle, Status: status, Error: errorText(status, err)})
	}
	if werr != nil {
		h.logger.Error("write error response", logger.Error(werr))
	}
}

func errorText(status int, err error) string {
	var appErr *xhttp.AppError
	if status < http.StatusInternalServerError && errors.As(err, &appErr) {
		return appErr.Message
	}
	switch status {
	case http.StatusMethodNotAllowed:
		return "Método no permitido"
	case http.StatusInternalServerError:
		return "Ocurrió un error inesperado. Intenta de nuevo."
	}
	return http.StatusText(status)
}

var _ xhttp.Handler = (*DashboardHandler)(nil)
