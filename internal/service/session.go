package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/macfarley/dream-weaver-backend/internal"
	"github.com/macfarley/dream-weaver-backend/internal/storage"
)

// recentSessionWindow bounds the resolver's scan. Sessions close linearly
// before new ones start, so an open session is always among the newest few;
// the bound keeps the fetch cheap on long histories.
const recentSessionWindow = 5

// defaultBackToBed is synthesized onto an unfinished wake-up when the caller
// does not say when they went back to bed.
const defaultBackToBed = 30 * time.Minute

type BeginSessionRequest struct {
	BedroomID      string `json:"bedroom_id" validate:"required"`
	CuddleBuddy    string `json:"cuddle_buddy"`
	SleepyThoughts string `json:"sleepy_thoughts"`
}

type WakeUpRequest struct {
	SleepQuality     *int       `json:"sleep_quality"`
	DreamJournal     string     `json:"dream_journal"`
	AwakenAt         *time.Time `json:"awaken_at"`
	FinishedSleeping bool       `json:"finished_sleeping"`
	BackToBedAt      *time.Time `json:"back_to_bed_at"`
}

// ActiveSessionSummary is enough for a caller to route the user straight to
// the wake-up flow instead of retrying creation.
type ActiveSessionSummary struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	WakeUpCount int              `json:"wake_up_count"`
	LastWakeUp  *internal.WakeUp `json:"last_wake_up,omitempty"`
}

type ActiveSessionStatus struct {
	Active  bool                  `json:"active"`
	Session *ActiveSessionSummary `json:"session,omitempty"`
}

type RecordWakeUpResult struct {
	Session       *internal.SleepSession
	WakeUpCount   int
	SessionClosed bool
}

// SessionService owns the session lifecycle: begin, record wake-up, and the
// derived active-session resolution that gates both.
type SessionService struct {
	sessions storage.SessionRepository
	bedrooms storage.BedroomRepository
	locks    userLocks
	logger   internal.Logger
	now      func() time.Time
}

func NewSessionService(sessions storage.SessionRepository, bedrooms storage.BedroomRepository, logger internal.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		bedrooms: bedrooms,
		logger:   logger,
		now:      time.Now,
	}
}

// FindActiveSession resolves the user's currently open session, if any.
// Active-ness is derived from wake-up content, never stored: a session with no
// wake-ups has just begun, and one whose last wake-up did not finish sleeping
// is still open. Returns (nil, nil) when nothing is active.
func (s *SessionService) FindActiveSession(ctx context.Context, userID string) (*internal.SleepSession, error) {
	recent, err := s.sessions.FindRecentSessionsByUser(ctx, userID, recentSessionWindow)
	if err != nil {
		return nil, internal.NewSystemError("failed to fetch recent sessions", err)
	}
	for i := range recent {
		if recent[i].Active() {
			return &recent[i], nil
		}
	}
	return nil, nil
}

// BeginSession opens a new session for the user. The bedroom must exist and
// belong to the user, and no session may currently be active; an active one
// is surfaced in the conflict so the caller can redirect to the wake-up flow.
func (s *SessionService) BeginSession(ctx context.Context, userID string, req *BeginSessionRequest) (*internal.SleepSession, error) {
	if err := validate.Struct(req); err != nil {
		return nil, internal.NewValidationError("bedroom_id is required")
	}

	cuddle := internal.CuddleBuddy(req.CuddleBuddy)
	if cuddle == "" {
		cuddle = internal.CuddleNone
	}
	if !cuddle.Valid() {
		return nil, internal.NewValidationError(fmt.Sprintf("invalid cuddle_buddy %q", req.CuddleBuddy))
	}

	bedroom, err := s.bedrooms.GetBedroom(ctx, req.BedroomID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, internal.NewNotFoundError("bedroom not found")
		}
		return nil, internal.NewSystemError("failed to fetch bedroom", err)
	}
	// Not-owned reads the same as not-found; no leaking other users' rooms.
	if bedroom.OwnerID != userID {
		return nil, internal.NewNotFoundError("bedroom not found")
	}

	// Serialize check-then-create per user so two racing begins cannot both
	// observe "no active session".
	unlock := s.locks.lock(userID)
	defer unlock()

	if active, err := s.FindActiveSession(ctx, userID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, internal.NewConflictError("active session exists", summarize(active))
	}

	session := &internal.SleepSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		BedroomID:      bedroom.ID,
		CuddleBuddy:    cuddle,
		SleepyThoughts: req.SleepyThoughts,
		WakeUps:        []internal.WakeUp{},
		CreatedAt:      s.now(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, internal.NewSystemError("failed to create session", err)
	}
	s.logger.Infof("session %s begun for user %s in bedroom %s", session.ID, userID, bedroom.ID)
	return session, nil
}

// RecordWakeUp appends a wake-up to the user's active session. Validation is
// fail-fast: quality range first, then the finished/back-to-bed consistency
// rule. A wake-up that finishes sleeping closes the session permanently.
func (s *SessionService) RecordWakeUp(ctx context.Context, userID string, req *WakeUpRequest) (*RecordWakeUpResult, error) {
	if req.SleepQuality == nil {
		return nil, internal.NewValidationError("sleep_quality is required")
	}
	if *req.SleepQuality < 1 || *req.SleepQuality > 10 {
		return nil, internal.NewValidationError("sleep_quality must be between 1 and 10")
	}
	if req.FinishedSleeping && req.BackToBedAt != nil {
		return nil, internal.NewValidationError("cannot set back-to-bed time when finished sleeping")
	}

	wakeUp := internal.WakeUp{
		SleepQuality:     *req.SleepQuality,
		DreamJournal:     req.DreamJournal,
		FinishedSleeping: req.FinishedSleeping,
	}
	if req.AwakenAt != nil {
		wakeUp.AwakenAt = *req.AwakenAt
	} else {
		wakeUp.AwakenAt = s.now()
	}
	if !req.FinishedSleeping {
		if req.BackToBedAt != nil {
			wakeUp.BackToBedAt = req.BackToBedAt
		} else {
			// Policy: default rather than reject, for caller convenience.
			t := wakeUp.AwakenAt.Add(defaultBackToBed)
			wakeUp.BackToBedAt = &t
		}
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	active, err := s.FindActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, internal.NewNotFoundError("no active sleep session")
	}

	updated, err := s.sessions.AppendWakeUp(ctx, active.ID, wakeUp)
	if err != nil {
		return nil, internal.NewSystemError("failed to append wake-up", err)
	}
	closed := wakeUp.FinishedSleeping
	if closed {
		s.logger.Infof("session %s closed for user %s after %d wake-ups", updated.ID, userID, len(updated.WakeUps))
	}
	return &RecordWakeUpResult{
		Session:       updated,
		WakeUpCount:   len(updated.WakeUps),
		SessionClosed: closed,
	}, nil
}

// ActiveSession is the read-only convenience form of the resolver: a presence
// flag plus summary. Safe to poll.
func (s *SessionService) ActiveSession(ctx context.Context, userID string) (*ActiveSessionStatus, error) {
	active, err := s.FindActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return &ActiveSessionStatus{Active: false}, nil
	}
	return &ActiveSessionStatus{Active: true, Session: summarize(active)}, nil
}

// ListSessions returns the user's full history, newest first. Closed sessions
// stay queryable forever.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]internal.SleepSession, error) {
	sessions, err := s.sessions.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, internal.NewSystemError("failed to list sessions", err)
	}
	return sessions, nil
}

// GetSession fetches one session, enforcing ownership. Someone else's session
// reads as not found.
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (*internal.SleepSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, internal.NewNotFoundError("session not found")
		}
		return nil, internal.NewSystemError("failed to fetch session", err)
	}
	if session.UserID != userID {
		return nil, internal.NewNotFoundError("session not found")
	}
	return session, nil
}

func summarize(session *internal.SleepSession) *ActiveSessionSummary {
	return &ActiveSessionSummary{
		ID:          session.ID,
		CreatedAt:   session.CreatedAt,
		WakeUpCount: len(session.WakeUps),
		LastWakeUp:  session.LastWakeUp(),
	}
}

// userLocks serializes lifecycle mutations per user. Entries are never
// evicted; the map is bounded by the user count of a personal deployment.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
