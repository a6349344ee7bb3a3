package repair

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/violation"
)

// SessionStatus enumerates the repair session lifecycle.
type SessionStatus string

const (
	SessionActive     SessionStatus = "ACTIVE"
	SessionPreviewing SessionStatus = "PREVIEWING"
	SessionApplied    SessionStatus = "APPLIED"
	SessionAborted    SessionStatus = "ABORTED"
	SessionExpired    SessionStatus = "EXPIRED"
)

// DefaultSessionTTL bounds a session's lifetime.
const DefaultSessionTTL = 30 * time.Minute

// mutation is one draft change on the undo stack. It stores the full
// pre-mutation assignment set so undo is a straight restore.
type mutation struct {
	description string
	before      []model.Assignment
}

// Preview is the frozen diff returned to the caller before confirmation.
type Preview struct {
	SessionID   string             `json:"session_id"`
	Delta       Delta              `json:"delta_summary"`
	Violations  violation.List     `json:"violations,omitempty"`
	Coverage    float64            `json:"coverage"`
	Assignments []model.Assignment `json:"assignments"`
}

// Session is the bounded-lifetime mutable workspace for resolving one
// incident. All operations are serialized through the session mutex;
// cross-session ordering is irrelevant because the concurrency controller
// admits one session per plan version.
type Session struct {
	ID       string
	PlanID   string
	Incident model.IncidentSpec

	mu        sync.Mutex
	status    SessionStatus
	expiresAt time.Time
	working   []model.Assignment
	undo      []mutation
	preview   *Preview
	now       func() time.Time
}

func newSession(p *model.PlanVersion, inc model.IncidentSpec, ttl time.Duration, now func() time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		PlanID:    p.ID,
		Incident:  inc,
		status:    SessionActive,
		expiresAt: now().Add(ttl),
		working:   model.CloneAssignments(p.Assignments),
		now:       now,
	}
}

// Status returns the session status after applying expiry.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.status
}

// ExpiresAt returns the expiry deadline.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// expireLocked moves a stale ACTIVE/PREVIEWING session to EXPIRED.
func (s *Session) expireLocked() {
	if (s.status == SessionActive || s.status == SessionPreviewing) && s.now().After(s.expiresAt) {
		s.status = SessionExpired
	}
}

func (s *Session) guardLocked(want SessionStatus) error {
	s.expireLocked()
	if s.status == SessionExpired {
		return model.E(model.CodeSessionExpired, "session %s expired at %s", s.ID, s.expiresAt.Format(time.RFC3339))
	}
	if s.status != want {
		return model.E(model.CodeSessionState, "session %s is %s, operation requires %s", s.ID, s.status, want)
	}
	return nil
}

// Stage records a draft mutation replacing the working assignment set and
// pushes the previous state onto the undo stack. Only an ACTIVE session
// accepts mutations.
func (s *Session) Stage(description string, next []model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(SessionActive); err != nil {
		return err
	}
	s.undo = append(s.undo, mutation{description: description, before: s.working})
	s.working = model.CloneAssignments(next)
	return nil
}

// StageProposal stages a proposal's assignment set.
func (s *Session) StageProposal(p Proposal) error {
	return s.Stage(string(p.Strategy), p.Assignments)
}

// Undo pops the last draft mutation and restores the previous working set.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	switch s.status {
	case SessionExpired:
		return model.E(model.CodeSessionExpired, "session %s expired", s.ID)
	case SessionApplied:
		return model.E(model.CodeSnapshotPublished, "session %s is applied, its output is an immutable published artifact", s.ID)
	case SessionAborted:
		return model.E(model.CodeSessionState, "session %s is aborted", s.ID)
	}
	if len(s.undo) == 0 {
		return model.E(model.CodeNothingToUndo, "session %s has no draft mutations to undo", s.ID)
	}
	last := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.working = last.before
	s.status = SessionActive
	s.preview = nil
	return nil
}

// Working returns a copy of the current draft assignment set.
func (s *Session) Working() []model.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneAssignments(s.working)
}

// Depth returns the undo stack depth.
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo)
}

// Freeze moves ACTIVE -> PREVIEWING and records the frozen preview. No
// further mutation is accepted until the caller confirms or reopens.
func (s *Session) Freeze(p Preview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(SessionActive); err != nil {
		return err
	}
	p.SessionID = s.ID
	s.preview = &p
	s.status = SessionPreviewing
	return nil
}

// PreviewResult returns the frozen preview of a PREVIEWING session.
func (s *Session) PreviewResult() (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(SessionPreviewing); err != nil {
		return Preview{}, err
	}
	return *s.preview, nil
}

// Reopen returns a PREVIEWING session to ACTIVE for further edits.
func (s *Session) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(SessionPreviewing); err != nil {
		return err
	}
	s.status = SessionActive
	s.preview = nil
	return nil
}

// Abort discards the session. Terminal.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	if s.status == SessionApplied {
		return model.E(model.CodeSessionState, "session %s already applied", s.ID)
	}
	s.status = SessionAborted
	return nil
}

// markApplied finalizes the session after a successful apply. Terminal.
func (s *Session) markApplied() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(SessionPreviewing); err != nil {
		return err
	}
	s.status = SessionApplied
	return nil
}

// SessionManager admits at most one non-expired ACTIVE/PREVIEWING session per
// plan version.
type SessionManager struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	byPlan map[string]*Session
	byID   map[string]*Session
}

// NewSessionManager returns a manager; ttl <= 0 uses DefaultSessionTTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		ttl:    ttl,
		now:    time.Now,
		byPlan: make(map[string]*Session),
		byID:   make(map[string]*Session),
	}
}

// Open creates a session for the plan, refusing while another live session
// exists for it.
func (m *SessionManager) Open(p *model.PlanVersion, inc model.IncidentSpec) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byPlan[p.ID]; ok {
		switch existing.Status() {
		case SessionActive, SessionPreviewing:
			return nil, model.E(model.CodeSessionActive, "plan %s already has session %s in %s", p.ID, existing.ID, existing.Status()).
				WithDetail("session_id", existing.ID)
		}
	}
	s := newSession(p, inc, m.ttl, m.now)
	m.byPlan[p.ID] = s
	m.byID[s.ID] = s
	return s, nil
}

// Get returns the session by ID.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, model.E(model.CodeNotFound, "session %s not found", id)
	}
	return s, nil
}
