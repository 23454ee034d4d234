// Package session owns the Mediative credential for the whole process.
//
// Jobs call EnsureAuthenticated before talking to the API. When no valid
// token is held, exactly one login runs at a time and every concurrent caller
// shares its outcome. A background renewer refreshes the token shortly
// before it expires.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/code19m/errx"
	"golang.org/x/sync/singleflight"

	"github.com/rise-and-shine/dropsync/mediative"
	"github.com/rise-and-shine/dropsync/observability/logger"
	"github.com/rise-and-shine/dropsync/observability/stats"
)

// Token is the session credential.
type Token = mediative.Token

// Authenticator performs the login and refresh exchanges.
type Authenticator interface {
	Login(ctx context.Context) (mediative.Token, error)
	Refresh(ctx context.Context, token string) (mediative.Token, error)
}

const loginKey = "login"

// Manager holds the current token. It is safe for concurrent use.
type Manager struct {
	api         Authenticator
	renewBefore time.Duration
	minRenew    time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	token   *Token
	changed chan struct{}

	group  singleflight.Group
	logger logger.Logger
}

// New creates a Manager with no credential.
func New(api Authenticator, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager{
		api:         api,
		renewBefore: o.renewBefore,
		minRenew:    o.minRenew,
		now:         o.now,
		changed:     make(chan struct{}, 1),
		logger:      logger.Named("session"),
	}
}

// Current returns the held token, if any, without checking its validity.
func (m *Manager) Current() (Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return Token{}, false
	}
	return *m.token, true
}

// EnsureAuthenticated returns a valid token, logging in if needed.
//
// Concurrent callers without a valid token share a single login. A caller
// whose ctx ends stops waiting; the shared login carries on for the others.
func (m *Manager) EnsureAuthenticated(ctx context.Context) (Token, error) {
	if t, ok := m.Current(); ok && t.Valid(m.now()) {
		return t, nil
	}

	ch := m.group.DoChan(loginKey, func() (any, error) {
		// a flight that finished after the check above already stored a token
		if t, ok := m.Current(); ok && t.Valid(m.now()) {
			return t, nil
		}
		return m.login(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return Token{}, errx.Wrap(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		t, _ := res.Val.(Token)
		return t, nil
	}
}

// Renew exchanges the held token for a fresh one. An unusable response
// drops the credential so the next caller logs in again.
func (m *Manager) Renew(ctx context.Context) error {
	cur, ok := m.Current()
	if !ok {
		return errx.New("[session]: no token to renew", errx.WithCode(CodeNoToken))
	}

	m.logger.Info("[session]: refreshing token")
	t, err := m.api.Refresh(ctx, cur.Token)
	if err != nil {
		m.Invalidate()
		return causedBy("[session]: token refresh failed", CodeRenewInvalid, err)
	}

	if t.Token == "" || t.ExpiresTime == 0 {
		m.Invalidate()
		return errx.New("[session]: refresh response has no token or expiresTime",
			errx.WithCode(CodeRenewInvalid),
			errx.WithDetails(errx.D{"has_token": t.Token != "", "expires_time": t.ExpiresTime}),
		)
	}

	m.set(&t)
	stats.Inc(stats.Renewals)
	m.logger.With("expires", t.ExpiresAt()).Info("[session]: token refreshed")
	return nil
}

// Invalidate drops the held token.
func (m *Manager) Invalidate() {
	m.set(nil)
}

// RunRenewer refreshes the token renewBefore ahead of its expiry until ctx
// is done. It idles while no token with a known expiry is held.
func (m *Manager) RunRenewer(ctx context.Context) {
	for {
		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		if t, ok := m.Current(); ok && t.ExpiresTime != 0 {
			timer = time.NewTimer(m.renewWait(t))
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-m.changed:
			stopTimer(timer)
		case <-fire:
			if err := m.Renew(ctx); err != nil {
				m.logger.Warnx(err)
			}
		}
	}
}

// renewWait is the time left until t enters the renew window. A renewal
// that is already due waits minRenew.
func (m *Manager) renewWait(t Token) time.Duration {
	wait := t.ExpiresAt().Add(-m.renewBefore).Sub(m.now())
	if wait <= 0 {
		return m.minRenew
	}
	return wait
}

func (m *Manager) login(ctx context.Context) (Token, error) {
	stats.Inc(stats.Logins)

	t, err := m.api.Login(ctx)
	if err != nil {
		stats.Inc(stats.LoginFailures)
		m.Invalidate()

		code := CodeAuthFailed
		if errx.IsCodeIn(err, mediative.CodeNoToken) {
			code = CodeNoToken
		}
		err = causedBy("[session]: cannot log into the Mediative API", code, err)
		m.logger.Errorx(err)
		return Token{}, err
	}

	m.set(&t)
	m.logger.With("expires", t.ExpiresAt()).Info("[session]: logged into the Mediative API")
	return t, nil
}

func (m *Manager) set(t *Token) {
	m.mu.Lock()
	m.token = t
	m.mu.Unlock()

	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func causedBy(msg, code string, cause error) error {
	details := errx.D{"cause": cause.Error()}
	if e := errx.AsErrorX(cause); e != nil {
		for k, v := range e.Details() {
			details[k] = v
		}
	}
	return errx.New(msg, errx.WithCode(code), errx.WithDetails(details))
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
