package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/hostelbites/jwt"
	"github.com/MrEthical07/hostelbites/storage"
)

// TokenKey is the storage key the bearer token is persisted under.
const TokenKey = "token"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver registers a callback for session transitions.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// Store owns the current Session and its persisted token.
//
// Store is safe for concurrent use.
type Store struct {
	blobs    storage.Store
	logger   *zap.Logger
	now      func() time.Time
	observer Observer

	mu     sync.RWMutex
	sess   Session
	closed bool
	// gen advances on every login or clear so an in-flight Restore can tell
	// its read is stale.
	gen uint64

	ready     chan struct{}
	readyOnce sync.Once
}

// NewStore returns an empty, not-yet-ready Store persisting into blobs.
func NewStore(blobs storage.Store, opts ...Option) *Store {
	s := &Store{
		blobs:  blobs,
		logger: zap.NewNop(),
		now:    time.Now,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted token. A missing, expired or undecodable token
// leaves the session empty; expired and undecodable tokens are deleted.
// Restore always marks the store ready, and storage failures are logged only.
func (s *Store) Restore(ctx context.Context) {
	defer s.markReady()

	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	raw, err := s.blobs.Get(ctx, TokenKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("session restore: read token failed", zap.Error(err))
		}
		return
	}

	token := string(raw)
	claims, err := jwt.Decode(token)
	if err != nil {
		s.logger.Warn("session restore: discarding malformed token", zap.Error(err))
		s.discardStale(ctx, gen)
		return
	}

	restored := Session{Token: token, Claims: claims}
	if restored.Role() == "" {
		s.logger.Warn("session restore: discarding token without a known role", zap.String("role", claims.Role))
		s.discardStale(ctx, gen)
		return
	}
	if claims.Expired(s.now()) {
		s.logger.Info("session restore: persisted token expired", zap.Time("expires_at", claims.ExpiresAt))
		if s.discardStale(ctx, gen) {
			s.notify(ChangeExpired, Session{})
		}
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("session restore: superseded by a newer session change")
		return
	}
	s.sess = restored
	s.mu.Unlock()

	s.logger.Debug("session restored",
		zap.Int64("user_id", claims.UserID),
		zap.Stringer("role", restored.Role()),
	)
	s.notify(ChangeRestored, restored.clone())
}

// discardStale deletes the persisted token unless the session changed since
// gen was read. It reports whether the token was deleted.
func (s *Store) discardStale(ctx context.Context, gen uint64) bool {
	s.mu.RLock()
	current := s.gen == gen
	s.mu.RUnlock()
	if !current {
		return false
	}
	s.deleteToken(ctx)
	return true
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready reports whether Restore has finished.
func (s *Store) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until Restore has finished or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login decodes token and, when it carries usable unexpired claims, persists
// it and replaces the session. It reports false and changes nothing otherwise.
func (s *Store) Login(ctx context.Context, token string) bool {
	claims, err := jwt.Decode(token)
	if err != nil {
		s.logger.Warn("login: token did not decode", zap.Error(err))
		return false
	}
	next := Session{Token: token, Claims: claims}
	if next.Role() == "" {
		s.logger.Warn("login: token carries no known role", zap.String("role", claims.Role))
		return false
	}
	if claims.Expired(s.now()) {
		s.logger.Warn("login: token already expired", zap.Time("expires_at", claims.ExpiresAt))
		return false
	}

	s.mu.Lock()
	s.sess = next
	s.gen++
	s.mu.Unlock()
	// a login also satisfies anyone waiting on restore
	s.markReady()

	if err := s.blobs.Set(ctx, TokenKey, []byte(token)); err != nil {
		s.logger.Warn("login: persisting token failed", zap.Error(err))
	}

	s.logger.Info("login",
		zap.Int64("user_id", claims.UserID),
		zap.Stringer("role", next.Role()),
	)
	s.notify(ChangeLogin, next.clone())
	return true
}

// Logout clears the session and the persisted token.
func (s *Store) Logout(ctx context.Context) {
	if s.clear(ctx) {
		s.logger.Info("logout")
		s.notify(ChangeLogout, Session{})
	}
}

// SessionInvalidated clears the session after the backend rejected the token.
// Calls arriving after Close are ignored.
func (s *Store) SessionInvalidated(ctx context.Context, reason string) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		s.logger.Debug("session invalidated after close; ignored", zap.String("reason", reason))
		return
	}

	if s.clear(ctx) {
		s.logger.Warn("session invalidated", zap.String("reason", reason))
		s.notify(ChangeInvalidated, Session{})
	}
}

// ExpireIfNeeded clears a held session whose token has expired. It reports
// whether anything was cleared.
func (s *Store) ExpireIfNeeded(ctx context.Context) bool {
	s.mu.RLock()
	expired := s.sess.Present() && s.sess.Claims.Expired(s.now())
	s.mu.RUnlock()
	if !expired {
		return false
	}
	if s.clear(ctx) {
		s.logger.Info("session expired")
		s.notify(ChangeExpired, Session{})
		return true
	}
	return false
}

func (s *Store) clear(ctx context.Context) bool {
	s.mu.Lock()
	had := s.sess.Present()
	s.sess = Session{}
	s.gen++
	s.mu.Unlock()

	s.deleteToken(ctx)
	return had
}

func (s *Store) deleteToken(ctx context.Context) {
	if err := s.blobs.Delete(ctx, TokenKey); err != nil {
		s.logger.Warn("deleting persisted token failed", zap.Error(err))
	}
}

// Close detaches the store from invalidation events. The session itself is
// kept in memory.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.clone()
}

// Token returns the held token, or "" when there is no valid session.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.sess.Valid(s.now()) {
		return ""
	}
	return s.sess.Token
}

// Authenticated reports whether a valid, unexpired session is held.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Valid(s.now())
}

// Authorize checks the session against the required roles. An empty required
// set admits any authenticated role.
func (s *Store) Authorize(required ...Role) Decision {
	s.mu.RLock()
	sess := s.sess
	s.mu.RUnlock()

	if !sess.Valid(s.now()) {
		return Unauthenticated
	}
	role := sess.Role()
	if role == "" {
		return Unauthenticated
	}
	if len(required) == 0 || slices.Contains(required, role) {
		return Allowed
	}
	return Forbidden
}

// TimeUntilExpiry returns the remaining token lifetime, 0 without a session.
func (s *Store) TimeUntilExpiry() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.sess.Present() {
		return 0
	}
	return s.sess.Claims.TimeUntilExpiry(s.now())
}

// FormattedTimeUntilExpiry renders TimeUntilExpiry as "1h 5m", "3m 12s",
// "42s" or "Expired".
func (s *Store) FormattedTimeUntilExpiry() string {
	return jwt.FormatRemaining(s.TimeUntilExpiry())
}

func (s *Store) notify(change Change, current Session) {
	if s.observer != nil {
		s.observer(change, current)
	}
}
