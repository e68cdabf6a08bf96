package backend

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/events"
	"github.com/spec-kit/storefront-web/internal/observability"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

// PublicParam is the query marker a call sets to skip the credential
// requirement. It never reaches the backend.
const PublicParam = "isPublic"

// InterceptorName is the registration name of the pipeline on a Transport.
const InterceptorName = "auth"

// DecisionKind is the terminal state of the pipeline for one call.
type DecisionKind int

const (
	// DecisionForward sends the call without credentials.
	DecisionForward DecisionKind = iota
	// DecisionAttach sends the call with the stored access token.
	DecisionAttach
	// DecisionRefreshed sends the call with a freshly issued access token.
	DecisionRefreshed
	// DecisionRedirect stops the call; the session must log in again.
	DecisionRedirect
	// DecisionCancelled stops the call because its context ended while it
	// waited for a refresh.
	DecisionCancelled
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionForward:
		return "forward"
	case DecisionAttach:
		return "attach"
	case DecisionRefreshed:
		return "refreshed"
	case DecisionRedirect:
		return "redirect"
	case DecisionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Authorize.
type Decision struct {
	Kind DecisionKind
	// Token is the bearer credential for Attach and Refreshed.
	Token string
	// Leader is set on Refreshed when this call led the refresh cycle.
	Leader bool
	Reason Reason
	Err    error
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Pipeline authorizes outbound calls: it attaches the stored credential,
// refreshes it once when it has expired and reports when the session has to log
// in again. Concurrent calls holding the same refresh token share one refresh.
type Pipeline struct {
	refresher Refresher
	logger    *zap.Logger
	metrics   *observability.Metrics
	events    events.Dispatcher
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]*refreshCycle
}

type refreshCycle struct {
	waiters []chan refreshOutcome
}

type refreshOutcome struct {
	token  string
	err    error
	reused bool
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithMetrics records refresh outcomes.
func WithMetrics(m *observability.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithEvents publishes refresh events.
func WithEvents(d events.Dispatcher) PipelineOption {
	return func(p *Pipeline) { p.events = d }
}

// NewPipeline builds a pipeline around refresher.
func NewPipeline(refresher Refresher, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		refresher: refresher,
		logger:    logger,
		events:    events.Nop{},
		now:       time.Now,
		inflight:  make(map[string]*refreshCycle),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authorize decides how req may be sent. It reads the store bound to the
// request context and may persist a refreshed access token into it.
func (p *Pipeline) Authorize(req *http.Request) Decision {
	ctx := req.Context()
	public := isPublic(req)

	store := StoreFrom(ctx)
	var creds tokenstore.Credentials
	var temporary string
	if store != nil {
		creds = store.ReadCredentials(ctx)
		temporary = store.ReadTemporaryToken(ctx)
	}

	if creds.AccessToken == "" && temporary == "" {
		if public {
			return Decision{Kind: DecisionForward}
		}
		return redirect(ReasonNoCredential, ErrNoCredential)
	}

	access := creds.AccessToken
	if access == "" {
		access = temporary
	}
	now := p.now()
	if auth.IsLive(access, now) {
		return Decision{Kind: DecisionAttach, Token: access}
	}

	if creds.RefreshToken == "" {
		return redirect(ReasonNoCredential, ErrNoCredential)
	}
	if !auth.IsLive(creds.RefreshToken, now) {
		p.metrics.RecordRefresh(string(ReasonExpiredRefresh))
		return redirect(ReasonExpiredRefresh, ErrExpiredRefresh)
	}

	token, leader, err := p.refresh(ctx, store, creds)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Decision{Kind: DecisionCancelled, Err: err}
		}
		return redirect(reasonOf(err), err)
	}
	return Decision{Kind: DecisionRefreshed, Token: token, Leader: leader}
}

// Intercept implements Interceptor on top of Authorize.
func (p *Pipeline) Intercept(req *http.Request) (*http.Request, error) {
	d := p.Authorize(req)
	switch d.Kind {
	case DecisionRedirect:
		return nil, &RedirectError{Reason: d.Reason, Err: d.Err}
	case DecisionCancelled:
		return nil, d.Err
	}

	out := req.Clone(req.Context())
	stripPublic(out)
	if d.Token != "" {
		out.Header.Set("Authorization", "Bearer "+d.Token)
	}
	return out, nil
}

// refresh joins the cycle of creds.RefreshToken, starting it when none is
// running. The leader persists a remembered token before releasing the cycle
// and always settles every follower, even if the refresher panics.
func (p *Pipeline) refresh(ctx context.Context, store tokenstore.Store, creds tokenstore.Credentials) (string, bool, error) {
	refreshToken := creds.RefreshToken
	p.mu.Lock()
	if cycle, ok := p.inflight[refreshToken]; ok {
		ch := make(chan refreshOutcome, 1)
		cycle.waiters = append(cycle.waiters, ch)
		p.mu.Unlock()

		select {
		case out := <-ch:
			return out.token, false, out.err
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	cycle := &refreshCycle{}
	p.inflight[refreshToken] = cycle
	p.mu.Unlock()

	out := refreshOutcome{err: ErrRefreshTransport}
	defer func() { p.settle(refreshToken, cycle, out) }()

	// The cycle outlives the leader's own caller so followers still get a token.
	detached := context.WithoutCancel(ctx)

	// A cycle that settled after creds were read may already have stored a live token.
	if creds.AccessToken != "" {
		current := store.ReadCredentials(detached)
		if current.RefreshToken == refreshToken && auth.IsLive(current.AccessToken, p.now()) {
			out = refreshOutcome{token: current.AccessToken, reused: true}
			return current.AccessToken, true, nil
		}
	}

	token, err := p.refresher.Refresh(detached, refreshToken)
	if err == nil && token == "" {
		err = ErrRefreshMalformed
	}
	if err == nil && creds.AccessToken != "" {
		store.WriteRemembered(detached, creds.UserData, token, refreshToken)
	}
	out = refreshOutcome{token: token, err: err}
	return token, true, err
}

func (p *Pipeline) settle(refreshToken string, cycle *refreshCycle, out refreshOutcome) {
	p.mu.Lock()
	if p.inflight[refreshToken] == cycle {
		delete(p.inflight, refreshToken)
	}
	waiters := cycle.waiters
	cycle.waiters = nil
	p.mu.Unlock()

	for _, ch := range waiters {
		ch <- out
	}

	ctx := context.Background()
	if out.err != nil {
		reason := reasonOf(out.err)
		p.logger.Warn("token refresh failed",
			zap.String("reason", string(reason)),
			zap.Int("followers", len(waiters)),
			zap.Error(out.err))
		p.metrics.RecordRefresh(string(reason))
		ev := events.New(events.EventTokenRefreshFailed)
		ev.Reason = string(reason)
		ev.Payload = events.RefreshPayload(len(waiters))
		p.publish(ctx, ev)
		return
	}
	if out.reused {
		p.logger.Debug("stored token reused", zap.Int("followers", len(waiters)))
		return
	}
	p.logger.Debug("token refreshed", zap.Int("followers", len(waiters)))
	p.metrics.RecordRefresh("success")
	ev := events.New(events.EventTokenRefreshed)
	ev.Payload = events.RefreshPayload(len(waiters))
	p.publish(ctx, ev)
}

func (p *Pipeline) publish(ctx context.Context, ev events.Event) {
	if err := p.events.Publish(ctx, ev); err != nil {
		p.logger.Warn("publish event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// InFlight reports how many refresh cycles are running.
func (p *Pipeline) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

// waiting reports the followers queued on the cycle of refreshToken.
func (p *Pipeline) waiting(refreshToken string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.inflight[refreshToken]; ok {
		return len(c.waiters)
	}
	return 0
}

func redirect(reason Reason, err error) Decision {
	return Decision{Kind: DecisionRedirect, Reason: reason, Err: err}
}

func isPublic(req *http.Request) bool {
	if req.URL == nil {
		return false
	}
	v := req.URL.Query().Get(PublicParam)
	return v == "true" || v == "1"
}

func stripPublic(req *http.Request) {
	if req.URL == nil || req.URL.RawQuery == "" {
		return
	}
	q := req.URL.Query()
	if _, ok := q[PublicParam]; !ok {
		return
	}
	q.Del(PublicParam)
	req.URL.RawQuery = q.Encode()
}
