package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/macfarley/dream-weaver-backend/internal"
)

// FileStorage keeps everything in memory and persists each collection to its
// own JSON file via a debounced background worker. Suited to the personal,
// single-instance deployment this tool targets.
type FileStorage struct {
	users            map[string]*internal.User
	usernameIndex    map[string]*internal.User
	bedrooms         map[string]*internal.Bedroom
	sessions         map[string]*internal.SleepSession
	userSessionIndex map[string][]*internal.SleepSession // userID -> sessions, newest first
	mu               sync.RWMutex

	usersFile    string
	bedroomsFile string
	sessionsFile string

	saveUsersChan    chan struct{}
	saveBedroomsChan chan struct{}
	saveSessionsChan chan struct{}
	shutdownChan     chan struct{}
	closeOnce        sync.Once
	saveDelay        time.Duration
	logger           internal.Logger
}

func NewFileStorage(usersFile, bedroomsFile, sessionsFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		users:            make(map[string]*internal.User),
		usernameIndex:    make(map[string]*internal.User),
		bedrooms:         make(map[string]*internal.Bedroom),
		sessions:         make(map[string]*internal.SleepSession),
		userSessionIndex: make(map[string][]*internal.SleepSession),
		usersFile:        usersFile,
		bedroomsFile:     bedroomsFile,
		sessionsFile:     sessionsFile,
		saveUsersChan:    make(chan struct{}, 1),
		saveBedroomsChan: make(chan struct{}, 1),
		saveSessionsChan: make(chan struct{}, 1),
		shutdownChan:     make(chan struct{}),
		saveDelay:        500 * time.Millisecond,
		logger:           logger,
	}

	if err := s.loadUsers(); err != nil {
		logger.Errorf("storage: failed to load users: %v", err)
		return nil, err
	}
	if err := s.loadBedrooms(); err != nil {
		logger.Errorf("storage: failed to load bedrooms: %v", err)
		return nil, err
	}
	if err := s.loadSessions(); err != nil {
		logger.Errorf("storage: failed to load sessions: %v", err)
		return nil, err
	}

	go s.saveWorker(s.saveUsersChan, s.saveUsers)
	go s.saveWorker(s.saveBedroomsChan, s.saveBedrooms)
	go s.saveWorker(s.saveSessionsChan, s.saveSessions)

	return s, nil
}

// Close flushes all collections and stops the save workers. Safe to call
// more than once.
func (s *FileStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
		var errs []error
		for _, save := range []func() error{s.saveUsers, s.saveBedrooms, s.saveSessions} {
			if saveErr := save(); saveErr != nil {
				errs = append(errs, saveErr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

func (s *FileStorage) saveWorker(signal chan struct{}, save func() error) {
	for {
		select {
		case <-signal:
			time.Sleep(s.saveDelay) // coalesce bursts
			if err := save(); err != nil {
				s.logger.Errorf("storage: save failed: %v", err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *FileStorage) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func decodeFile[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var items []T
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

// userRecord is the on-disk shape for users. The model hides PasswordHash
// from JSON so it never leaks into API responses; persistence needs it.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	JoinedAt     time.Time `json:"joined_at"`
}

func (s *FileStorage) loadUsers() error {
	records, err := decodeFile[userRecord](s.usersFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		u := &internal.User{
			ID:           r.ID,
			Username:     r.Username,
			PasswordHash: r.PasswordHash,
			Role:         r.Role,
			JoinedAt:     r.JoinedAt,
		}
		s.users[u.ID] = u
		s.usernameIndex[u.Username] = u
	}
	return nil
}

func (s *FileStorage) loadBedrooms() error {
	bedrooms, err := decodeFile[*internal.Bedroom](s.bedroomsFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bedrooms {
		s.bedrooms[b.ID] = b
	}
	return nil
}

func (s *FileStorage) loadSessions() error {
	sessions, err := decodeFile[*internal.SleepSession](s.sessionsFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
		s.userSessionIndex[sess.UserID] = append(s.userSessionIndex[sess.UserID], sess)
	}
	for userID := range s.userSessionIndex {
		sort.Slice(s.userSessionIndex[userID], func(i, j int) bool {
			return s.userSessionIndex[userID][i].CreatedAt.After(s.userSessionIndex[userID][j].CreatedAt)
		})
	}
	return nil
}

// writeFile persists via temp file + fsync + rename so a crash or full disk
// mid-save never truncates the live collection file.
func (s *FileStorage) writeFile(path string, items interface{}) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStorage) saveUsers() error {
	s.mu.RLock()
	records := make([]userRecord, 0, len(s.users))
	for _, u := range s.users {
		records = append(records, userRecord{
			ID:           u.ID,
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
			JoinedAt:     u.JoinedAt,
		})
	}
	s.mu.RUnlock()
	sort.Slice(records, func(i, j int) bool { return records[i].JoinedAt.Before(records[j].JoinedAt) })
	return s.writeFile(s.usersFile, records)
}

func (s *FileStorage) saveBedrooms() error {
	s.mu.RLock()
	bedrooms := make([]internal.Bedroom, 0, len(s.bedrooms))
	for _, b := range s.bedrooms {
		bedrooms = append(bedrooms, *b)
	}
	s.mu.RUnlock()
	sort.Slice(bedrooms, func(i, j int) bool { return bedrooms[i].CreatedAt.Before(bedrooms[j].CreatedAt) })
	return s.writeFile(s.bedroomsFile, bedrooms)
}

// saveSessions snapshots under the read lock before marshaling: AppendWakeUp
// mutates wake_ups in place, so serializing the shared pointers outside the
// lock would race with it.
func (s *FileStorage) saveSessions() error {
	s.mu.RLock()
	sessions := make([]*internal.SleepSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, copySession(sess))
	}
	s.mu.RUnlock()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return s.writeFile(s.sessionsFile, sessions)
}

// --- UserRepository ---

func (s *FileStorage) CreateUser(ctx context.Context, user *internal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usernameIndex[user.Username]; exists {
		return errors.New("storage: username already exists")
	}
	u := *user
	s.users[u.ID] = &u
	s.usernameIndex[u.Username] = &u
	s.signal(s.saveUsersChan)
	return nil
}

func (s *FileStorage) GetUserByID(ctx context.Context, id string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (s *FileStorage) GetUserByUsername(ctx context.Context, username string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usernameIndex[username]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (s *FileStorage) UpdateUser(ctx context.Context, user *internal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if user.Username != existing.Username {
		if _, taken := s.usernameIndex[user.Username]; taken {
			return errors.New("storage: username already exists")
		}
		delete(s.usernameIndex, existing.Username)
	}
	u := *user
	s.users[u.ID] = &u
	s.usernameIndex[u.Username] = &u
	s.signal(s.saveUsersChan)
	return nil
}

// --- BedroomRepository ---

func (s *FileStorage) CreateBedroom(ctx context.Context, bedroom *internal.Bedroom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := *bedroom
	s.bedrooms[b.ID] = &b
	s.signal(s.saveBedroomsChan)
	return nil
}

func (s *FileStorage) GetBedroom(ctx context.Context, id string) (*internal.Bedroom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bedrooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *b
	return &copy, nil
}

func (s *FileStorage) ListBedrooms(ctx context.Context, ownerID string) ([]internal.Bedroom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bedrooms []internal.Bedroom
	for _, b := range s.bedrooms {
		if b.OwnerID == ownerID {
			bedrooms = append(bedrooms, *b)
		}
	}
	sort.Slice(bedrooms, func(i, j int) bool { return bedrooms[i].CreatedAt.Before(bedrooms[j].CreatedAt) })
	return bedrooms, nil
}

func (s *FileStorage) UpdateBedroom(ctx context.Context, bedroom *internal.Bedroom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bedrooms[bedroom.ID]; !ok {
		return ErrNotFound
	}
	b := *bedroom
	s.bedrooms[b.ID] = &b
	s.signal(s.saveBedroomsChan)
	return nil
}

func (s *FileStorage) DeleteBedroom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bedrooms[id]; !ok {
		return ErrNotFound
	}
	delete(s.bedrooms, id)
	s.signal(s.saveBedroomsChan)
	return nil
}

// --- SessionRepository ---

func (s *FileStorage) CreateSession(ctx context.Context, session *internal.SleepSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := *session
	sess.WakeUps = append([]internal.WakeUp(nil), session.WakeUps...)
	s.sessions[sess.ID] = &sess
	// Keep the per-user index newest-first.
	idx := append([]*internal.SleepSession{&sess}, s.userSessionIndex[sess.UserID]...)
	sort.Slice(idx, func(i, j int) bool { return idx[i].CreatedAt.After(idx[j].CreatedAt) })
	s.userSessionIndex[sess.UserID] = idx
	s.signal(s.saveSessionsChan)
	return nil
}

func (s *FileStorage) GetSession(ctx context.Context, id string) (*internal.SleepSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

func (s *FileStorage) ListSessionsByUser(ctx context.Context, userID string) ([]internal.SleepSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.userSessionIndex[userID]
	sessions := make([]internal.SleepSession, 0, len(idx))
	for _, sess := range idx {
		sessions = append(sessions, *copySession(sess))
	}
	return sessions, nil
}

func (s *FileStorage) FindRecentSessionsByUser(ctx context.Context, userID string, limit int) ([]internal.SleepSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.userSessionIndex[userID]
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	sessions := make([]internal.SleepSession, 0, len(idx))
	for _, sess := range idx {
		sessions = append(sessions, *copySession(sess))
	}
	return sessions, nil
}

func (s *FileStorage) AppendWakeUp(ctx context.Context, sessionID string, wakeUp internal.WakeUp) (*internal.SleepSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	sess.WakeUps = append(sess.WakeUps, wakeUp)
	s.signal(s.saveSessionsChan)
	return copySession(sess), nil
}

func (s *FileStorage) CountSessionsByBedroom(ctx context.Context, bedroomID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, sess := range s.sessions {
		if sess.BedroomID == bedroomID {
			count++
		}
	}
	return count, nil
}

func copySession(sess *internal.SleepSession) *internal.SleepSession {
	out := *sess
	out.WakeUps = append([]internal.WakeUp(nil), sess.WakeUps...)
	return &out
}

// --- Compile-time assertions ---
var _ UserRepository = (*FileStorage)(nil)
var _ BedroomRepository = (*FileStorage)(nil)
var _ SessionRepository = (*FileStorage)(nil)
