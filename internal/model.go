package internal

import "time"

// Role values assigned to users. The API only ever acts on behalf of the
// authenticated user; the role travels in the token for boundary checks.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Identity is what the auth provider vouches for on each request.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CuddleBuddy is what (or who) the user falls asleep holding.
type CuddleBuddy string

const (
	CuddleNone          CuddleBuddy = "none"
	CuddlePillow        CuddleBuddy = "pillow"
	CuddleStuffedAnimal CuddleBuddy = "stuffed animal"
	CuddlePet           CuddleBuddy = "pet"
	CuddlePerson        CuddleBuddy = "person"
)

func (c CuddleBuddy) Valid() bool {
	switch c {
	case CuddleNone, CuddlePillow, CuddleStuffedAnimal, CuddlePet, CuddlePerson:
		return true
	}
	return false
}

// Bedroom is a sleep-environment profile. Sessions reference a bedroom but do
// not own it; only its owner may modify it.
type Bedroom struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	BedType     string    `json:"bed_type"`
	Temperature int       `json:"temperature"` // degrees Fahrenheit
	LightLevel  string    `json:"light_level"` // dark, dim, bright
	NoiseLevel  string    `json:"noise_level"` // silent, quiet, moderate, loud
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// WakeUp is one instant of waking during a session. It is embedded in its
// session and never addressable on its own.
type WakeUp struct {
	SleepQuality     int        `json:"sleep_quality"` // 1–10 scale
	DreamJournal     string     `json:"dream_journal,omitempty"`
	AwakenAt         time.Time  `json:"awaken_at"`
	FinishedSleeping bool       `json:"finished_sleeping"`
	BackToBedAt      *time.Time `json:"back_to_bed_at,omitempty"`
}

// SleepSession is one tracked night of sleep. WakeUps is append-only in
// chronological order; whether the session is still open is derived from the
// tail element rather than stored.
type SleepSession struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	BedroomID      string      `json:"bedroom_id"`
	CuddleBuddy    CuddleBuddy `json:"cuddle_buddy"`
	SleepyThoughts string      `json:"sleepy_thoughts,omitempty"`
	WakeUps        []WakeUp    `json:"wake_ups"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Active reports whether the session is still open: no wake-ups yet, or the
// most recent wake-up did not finish sleeping. Earlier wake-ups are never
// consulted; append discipline guarantees only the tail can be unfinished.
func (s *SleepSession) Active() bool {
	if len(s.WakeUps) == 0 {
		return true
	}
	return !s.WakeUps[len(s.WakeUps)-1].FinishedSleeping
}

// LastWakeUp returns the most recent wake-up, or nil for a fresh session.
func (s *SleepSession) LastWakeUp() *WakeUp {
	if len(s.WakeUps) == 0 {
		return nil
	}
	return &s.WakeUps[len(s.WakeUps)-1]
}
