package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sente-labs/chatstore/internal/metrics"
	"github.com/sente-labs/chatstore/internal/store"
)

// Namespaces owned by the session layer.
const (
	nsSessions     = "sessions"
	nsUserSessions = "user_sessions"
)

// Options configures a session Store.
type Options struct {
	// ActivityTimeout is the logical expiration window: a session idle for
	// longer is considered stale even while its cache entry is still within
	// its physical TTL.
	ActivityTimeout time.Duration
	// MaxHistory bounds the conversation window; the oldest messages are
	// dropped first.
	MaxHistory int
	// EndedGrace is how long an ended session stays addressable before
	// cleanup removes it outright.
	EndedGrace time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

// Store owns the Session entity and the user→latest-session pointer table.
// It holds no state of its own; everything lives in the entry store, so there
// is a single synchronization domain underneath.
//
// Sessions expire on two independent schedules: the entry store's physical
// TTL, and the shorter activity timeout enforced here on every read.
type Store struct {
	entries         *store.Store
	activityTimeout time.Duration
	maxHistory      int
	endedGrace      time.Duration
	logger          *slog.Logger
	metrics         *metrics.Recorder
}

// NewStore builds the session layer on top of the entry store.
func NewStore(entries *store.Store, opts Options) *Store {
	if opts.ActivityTimeout <= 0 {
		opts.ActivityTimeout = 30 * time.Minute
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 50
	}
	if opts.EndedGrace <= 0 {
		opts.EndedGrace = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		entries:         entries,
		activityTimeout: opts.ActivityTimeout,
		maxHistory:      opts.MaxHistory,
		endedGrace:      opts.EndedGrace,
		logger:          opts.Logger.With(slog.String("subsystem", "session")),
		metrics:         opts.Metrics,
	}
}

func sessionKey(id string) store.Key {
	return store.Key{Namespace: nsSessions, Local: id}
}

func pointerKey(userID string) store.Key {
	return store.Key{Namespace: nsUserSessions, Local: userID}
}

// Create opens a new session for the user and repoints the user's
// latest-session pointer at it, regardless of any session already running.
func (s *Store) Create(userID string, ctx map[string]any) *Session {
	now := time.Now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
		Context:      ctx,
	}
	s.entries.Set(sessionKey(sess.ID), sess.clone(), 0)
	s.entries.Set(pointerKey(userID), sess.ID, 0)
	s.metrics.ObserveSession(metrics.SessionCreated)
	s.logger.Info("session created",
		slog.String("session_id", sess.ID),
		slog.String("user_id", userID))
	return sess.clone()
}

// load fetches the session and hands back a private clone, absorbing
// payload-type corruption into a miss the way every public method here
// absorbs unexpected failure. The stored value is never written after
// insertion; mutators work on the clone and publish it with Set.
func (s *Store) load(id string) (*Session, bool) {
	value, outcome := s.entries.Get(sessionKey(id))
	if outcome != store.OutcomeHit {
		return nil, false
	}
	sess, ok := value.(*Session)
	if !ok {
		s.logger.Error("session entry holds foreign payload",
			slog.String("session_id", id))
		return nil, false
	}
	return sess.clone(), true
}

// Get returns the session when it is within its activity window. A session
// idle past the activity timeout is proactively ended and reported as absent,
// even though the underlying cache entry may have hours of physical TTL left.
func (s *Store) Get(id string) (*Session, bool) {
	sess, ok := s.load(id)
	if !ok {
		return nil, false
	}
	if time.Since(sess.LastActivity) > s.activityTimeout {
		if sess.IsActive {
			s.end(sess)
			s.metrics.ObserveSession(metrics.SessionTimedOut)
			s.logger.Info("session ended by activity timeout",
				slog.String("session_id", id))
		}
		return nil, false
	}
	return sess, true
}

// Update merges the patch into the stored session, stamps LastActivity, and
// rewrites the entry. The rewrite restarts the physical TTL window, so every
// mutation extends the session's storage lifetime.
func (s *Store) Update(id string, patch Patch) bool {
	sess, ok := s.load(id)
	if !ok {
		return false
	}
	if patch.CurrentAgent != nil {
		sess.CurrentAgent = *patch.CurrentAgent
	}
	if len(patch.Context) > 0 {
		if sess.Context == nil {
			sess.Context = make(map[string]any, len(patch.Context))
		}
		for k, v := range patch.Context {
			sess.Context[k] = v
		}
	}
	sess.LastActivity = time.Now()
	s.entries.Set(sessionKey(id), sess, 0)
	return true
}

// AddMessage appends one conversation turn, trims the history to the sliding
// window, and persists through Update semantics.
func (s *Store) AddMessage(id, role, content string, meta map[string]any) bool {
	sess, ok := s.load(id)
	if !ok {
		return false
	}
	sess.History = append(sess.History, Message{
		Timestamp: time.Now(),
		Role:      role,
		Content:   content,
		Metadata:  meta,
	})
	if overflow := len(sess.History) - s.maxHistory; overflow > 0 {
		sess.History = append(sess.History[:0:0], sess.History[overflow:]...)
	}
	sess.LastActivity = time.Now()
	s.entries.Set(sessionKey(id), sess, 0)
	return true
}

// SetCurrentAgent records which agent is driving the conversation.
func (s *Store) SetCurrentAgent(id, name string) bool {
	return s.Update(id, Patch{CurrentAgent: &name})
}

// End soft-deletes the session: the active flag flips and the entry stays
// addressable until compaction or physical expiry removes it.
func (s *Store) End(id string) bool {
	sess, ok := s.load(id)
	if !ok {
		return false
	}
	if sess.IsActive {
		s.end(sess)
		s.metrics.ObserveSession(metrics.SessionEnded)
	}
	return true
}

// end flips the active flag on a clone obtained through load and publishes it.
func (s *Store) end(sess *Session) {
	sess.IsActive = false
	sess.EndedAt = time.Now()
	s.entries.Set(sessionKey(sess.ID), sess, 0)
}

// UserActiveSession resolves the user's latest-session pointer and returns the
// session only while it is active and inside its activity window. The pointer
// tracks the most recently created session, so a pointer to an ended session
// simply yields no result.
func (s *Store) UserActiveSession(userID string) (*Session, bool) {
	value, outcome := s.entries.Get(pointerKey(userID))
	if outcome != store.OutcomeHit {
		return nil, false
	}
	id, ok := value.(string)
	if !ok {
		s.logger.Error("user session pointer holds foreign payload",
			slog.String("user_id", userID))
		return nil, false
	}
	sess, ok := s.Get(id)
	if !ok || !sess.IsActive {
		return nil, false
	}
	return sess, true
}

// CleanupExpired is the logical-layer periodic pass, independent from the
// physical sweep: it ends sessions idle past the activity timeout and removes
// ended sessions whose grace period has elapsed. It returns the number of
// sessions timed out and the number compacted away.
func (s *Store) CleanupExpired() (timedOut, compacted int) {
	now := time.Now()
	var stale, ended []string
	s.entries.Range(nsSessions, func(local string, value any) bool {
		sess, ok := value.(*Session)
		if !ok {
			s.logger.Error("session entry holds foreign payload",
				slog.String("session_id", local))
			return true
		}
		switch {
		case sess.IsActive && now.Sub(sess.LastActivity) > s.activityTimeout:
			stale = append(stale, local)
		case !sess.IsActive && !sess.EndedAt.IsZero() && now.Sub(sess.EndedAt) > s.endedGrace:
			ended = append(ended, local)
		}
		return true
	})
	for _, id := range stale {
		sess, ok := s.load(id)
		if !ok || !sess.IsActive {
			continue
		}
		s.end(sess)
		s.metrics.ObserveSession(metrics.SessionTimedOut)
		timedOut++
	}
	for _, id := range ended {
		if s.entries.Delete(sessionKey(id)) {
			s.metrics.ObserveSession(metrics.SessionCompacted)
			compacted++
		}
	}
	if timedOut > 0 || compacted > 0 {
		s.logger.Info("session cleanup complete",
			slog.Int("timed_out", timedOut),
			slog.Int("compacted", compacted))
	}
	return timedOut, compacted
}
