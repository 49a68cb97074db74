package app

import (
	"sync"
	"time"

	"quizmentor/internal/domain"
)

// SaveStatus is the autosave indicator surfaced to clients. Unlike a
// purely cosmetic indicator it reflects the actual draft flush.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
)

// SessionEventType labels events broadcast to session subscribers.
type SessionEventType string

const (
	EventState      SessionEventType = "state"
	EventSaveStatus SessionEventType = "saveStatus"
	EventCountdown  SessionEventType = "countdown"
	EventSubmitted  SessionEventType = "submitted"
)

// SessionEvent is one update pushed to session subscribers.
type SessionEvent struct {
	Type       SessionEventType      `json:"type"`
	State      *SessionState         `json:"state,omitempty"`
	SaveStatus SaveStatus            `json:"saveStatus,omitempty"`
	Remaining  int                   `json:"remaining,omitempty"`
	Result     *domain.ResultSummary `json:"result,omitempty"`
}

// SessionState is a snapshot of an in-progress session.
type SessionState struct {
	AttemptID     string            `json:"attemptId"`
	QuizID        string            `json:"quizId"`
	Index         int               `json:"index"`
	QuestionCount int               `json:"questionCount"`
	Answers       map[string]string `json:"answers"`
	Remaining     int               `json:"remaining"` // seconds; -1 when untimed
	SaveStatus    SaveStatus        `json:"saveStatus"`
}

// Session holds one student's in-progress pass through a quiz: the answer
// set keyed by question id, the clamped question index, the countdown, and
// the autosave state. Submission happens at most once, explicit or on
// timer expiry.
type Session struct {
	attemptID     string
	quizID        string
	questionIDs   map[string]struct{}
	questionCount int
	startedAt     time.Time
	now           func() time.Time
	debounce      time.Duration
	flush         func(answers map[string]string)
	onExpire      func()

	mu          sync.RWMutex
	index       int
	answers     map[string]string
	remaining   int // seconds; -1 when untimed
	saveStatus  SaveStatus
	submitted   bool
	pending     *time.Timer
	done        chan struct{}
	subscribers map[chan SessionEvent]struct{}
}

func newSession(attempt domain.Attempt, quiz domain.Quiz, now func() time.Time, debounce time.Duration) *Session {
	ids := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		ids[q.ID] = struct{}{}
	}
	remaining := -1
	if quiz.TimeLimit > 0 {
		remaining = quiz.TimeLimit * 60
	}
	return &Session{
		attemptID:     attempt.ID,
		quizID:        quiz.ID,
		questionIDs:   ids,
		questionCount: len(quiz.Questions),
		startedAt:     attempt.StartedAt,
		now:           now,
		debounce:      debounce,
		answers:       make(map[string]string),
		remaining:     remaining,
		saveStatus:    SaveIdle,
		done:          make(chan struct{}),
		subscribers:   make(map[chan SessionEvent]struct{}),
	}
}

// AttemptID identifies the attempt this session belongs to.
func (s *Session) AttemptID() string { return s.attemptID }

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return SessionState{
		AttemptID:     s.attemptID,
		QuizID:        s.quizID,
		Index:         s.index,
		QuestionCount: s.questionCount,
		Answers:       answers,
		Remaining:     s.remaining,
		SaveStatus:    s.saveStatus,
	}
}

func (s *Session) timed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining >= 0
}

// restore seeds drafted answers from a previous run of the same attempt,
// dropping keys that are not questions of this quiz.
func (s *Session) restore(draft map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for questionID, value := range draft {
		if _, ok := s.questionIDs[questionID]; ok {
			s.answers[questionID] = value
		}
	}
	if len(s.answers) > 0 {
		s.saveStatus = SaveSaved
	}
}

func (s *Session) answer(questionID, value string) (SaveStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return SaveIdle, domain.ErrAttemptSubmitted
	}
	if _, ok := s.questionIDs[questionID]; !ok {
		return SaveIdle, domain.ErrQuestionNotFound
	}
	s.answers[questionID] = value
	s.saveStatus = SaveSaving
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = time.AfterFunc(s.debounce, s.flushDraft)
	s.broadcastLocked(SessionEvent{Type: EventSaveStatus, SaveStatus: SaveSaving})
	return SaveSaving, nil
}

// flushDraft runs off the debounce timer: persist the snapshot, then flip
// the indicator to "saved" unless another answer restarted the cycle.
func (s *Session) flushDraft() {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	snapshot := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		snapshot[k] = v
	}
	flush := s.flush
	s.mu.Unlock()

	if flush != nil {
		flush(snapshot)
	}

	s.mu.Lock()
	if !s.submitted && s.saveStatus == SaveSaving {
		s.saveStatus = SaveSaved
		s.broadcastLocked(SessionEvent{Type: EventSaveStatus, SaveStatus: SaveSaved})
	}
	s.mu.Unlock()
}

// move shifts the question index by delta, clamped to [0, questionCount-1].
func (s *Session) move(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index += delta
	if s.index < 0 {
		s.index = 0
	}
	if max := s.questionCount - 1; s.index > max {
		s.index = max
	}
	return s.index
}

// tick advances the countdown by one second. It reports the remaining
// seconds, whether the timer just expired, and whether ticking should stop.
func (s *Session) tick() (remaining int, expired, stop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || s.remaining < 0 {
		return 0, false, true
	}
	if s.remaining > 0 {
		s.remaining--
	}
	remaining = s.remaining
	expired = s.remaining == 0
	s.broadcastLocked(SessionEvent{Type: EventCountdown, Remaining: remaining})
	return remaining, expired, expired
}

// Tick advances the countdown by one second and fires auto-submit on
// expiry. Exported so tests can drive the timer deterministically.
func (s *Session) Tick() (remaining int, expired bool) {
	remaining, expired, _ = s.tick()
	if expired && s.onExpire != nil {
		s.onExpire()
	}
	return remaining, expired
}

func (s *Session) runCountdown(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			_, expired, stop := s.tick()
			if expired && s.onExpire != nil {
				s.onExpire()
			}
			if stop {
				return
			}
		}
	}
}

// beginSubmit marks the session submitted and hands back the answer set
// plus elapsed seconds. The second caller gets ErrAttemptSubmitted.
func (s *Session) beginSubmit(now time.Time) (map[string]string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return nil, 0, domain.ErrAttemptSubmitted
	}
	s.submitted = true
	if s.pending != nil {
		s.pending.Stop()
	}
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	elapsed := int(now.Sub(s.startedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	return answers, elapsed, nil
}

// abortSubmit reopens the session after a failed finalization.
func (s *Session) abortSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = false
}

// close pushes the graded result to subscribers and ends the session,
// whichever path (live submit or direct store submit) finalized the attempt.
func (s *Session) close(summary domain.ResultSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = true
	if s.pending != nil {
		s.pending.Stop()
	}
	s.broadcastLocked(SessionEvent{Type: EventSubmitted, Result: &summary})
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// subscribe returns a channel of session events, primed with the current
// state. The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	state := s.stateLocked()
	s.mu.Unlock()

	ch <- SessionEvent{Type: EventState, State: &state}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(event SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest update so slow clients never block the session.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
