package app

import (
	"context"
	"errors"
	"log"
	"time"

	"quizmentor/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore persists attempts and their graded answers.
type AttemptStore interface {
	// FindOrCreate returns the student's in-progress attempt for the quiz,
	// creating one if none exists. Starting twice before submitting resumes
	// the same attempt.
	FindOrCreate(ctx context.Context, quizID, studentID string, totalPoints int) (domain.Attempt, error)
	// Get returns an attempt with its answer rows (empty until finalized).
	Get(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, error)
	// Finalize writes the graded answers and completes the attempt as one
	// unit. A missing attempt mutates nothing; a completed attempt is
	// rejected so grading can never run twice.
	Finalize(ctx context.Context, attemptID string, graded domain.GradedResult, timeSpent int) (domain.Attempt, []domain.Answer, error)
}

// DraftStore persists in-progress answer snapshots so an interrupted
// attempt can be resumed with its drafted answers intact.
type DraftStore interface {
	SaveDraft(ctx context.Context, attemptID string, answers map[string]string) error
	LoadDraft(ctx context.Context, attemptID string) (map[string]string, error)
	ClearDraft(ctx context.Context, attemptID string) error
}

// SessionRepository abstracts how live attempt sessions are tracked.
type SessionRepository interface {
	GetOrCreate(attemptID string, build func() *Session) *Session
	Get(attemptID string) (*Session, bool)
	Delete(attemptID string)
}

// AttemptService owns the quiz-taking use cases: starting (or resuming)
// an attempt, the live session around it, and submission + grading.
type AttemptService struct {
	quizzes  QuizRepository
	attempts AttemptStore
	drafts   DraftStore
	sessions SessionRepository
	debounce time.Duration
	tick     time.Duration
	now      func() time.Time
}

// DefaultDebounce is how long the autosave flush waits after the last answer.
const DefaultDebounce = 750 * time.Millisecond

func NewAttemptService(quizzes QuizRepository, attempts AttemptStore, drafts DraftStore, sessions SessionRepository, debounce time.Duration) *AttemptService {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &AttemptService{
		quizzes:  quizzes,
		attempts: attempts,
		drafts:   drafts,
		sessions: sessions,
		debounce: debounce,
		tick:     time.Second,
		now:      time.Now,
	}
}

// Start finds or creates the student's in-progress attempt and returns its
// live session. Requires a student id and a quiz with at least one question.
func (s *AttemptService) Start(ctx context.Context, quizID, studentID string) (*Session, domain.Attempt, error) {
	if studentID == "" {
		return nil, domain.Attempt{}, domain.ErrStudentRequired
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, domain.Attempt{}, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.Attempt{}, domain.ErrQuizEmpty
	}

	attempt, err := s.attempts.FindOrCreate(ctx, quiz.ID, studentID, quiz.TotalPoints())
	if err != nil {
		return nil, domain.Attempt{}, err
	}

	session := s.sessions.GetOrCreate(attempt.ID, func() *Session {
		sess := newSession(attempt, quiz, s.now, s.debounce)
		if draft, err := s.drafts.LoadDraft(ctx, attempt.ID); err == nil && len(draft) > 0 {
			sess.restore(draft)
		}
		sess.flush = func(answers map[string]string) {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.drafts.SaveDraft(flushCtx, attempt.ID, answers); err != nil {
				log.Printf("save draft for attempt %s: %v", attempt.ID, err)
			}
		}
		sess.onExpire = func() { s.autoSubmit(attempt.ID) }
		if sess.timed() {
			go sess.runCountdown(s.tick)
		}
		return sess
	})
	return session, attempt, nil
}

// Answer records one answer in the live session. The draft flush is
// debounced; the returned status is "saving" until it lands.
func (s *AttemptService) Answer(ctx context.Context, attemptID, questionID, value string) (SaveStatus, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return SaveIdle, domain.ErrSessionNotFound
	}
	return session.answer(questionID, value)
}

// Advance moves the session's question index forward, clamped to the last question.
func (s *AttemptService) Advance(attemptID string) (int, error) {
	return s.move(attemptID, 1)
}

// Retreat moves the session's question index back, clamped to the first question.
func (s *AttemptService) Retreat(attemptID string) (int, error) {
	return s.move(attemptID, -1)
}

func (s *AttemptService) move(attemptID string, delta int) (int, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	return session.move(delta), nil
}

// Submit finalizes the live session: elapsed time is computed from the
// attempt's start, the collected answers are graded, and the session ends.
// A second submit returns ErrAttemptSubmitted.
func (s *AttemptService) Submit(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, domain.ResultSummary, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return domain.Attempt{}, nil, domain.ResultSummary{}, domain.ErrSessionNotFound
	}
	answers, timeSpent, err := session.beginSubmit(s.now())
	if err != nil {
		return domain.Attempt{}, nil, domain.ResultSummary{}, err
	}
	attempt, rows, summary, err := s.SubmitAnswers(ctx, attemptID, answers, timeSpent)
	if err != nil {
		// Finalization failed; leave the session open so an explicit retry can work.
		session.abortSubmit()
		return domain.Attempt{}, nil, domain.ResultSummary{}, err
	}
	return attempt, rows, summary, nil
}

// SubmitAnswers grades and finalizes an attempt from an explicit answer
// set, the path behind POST /attempts/submit. Answers are keyed by
// question id.
func (s *AttemptService) SubmitAnswers(ctx context.Context, attemptID string, answers map[string]string, timeSpent int) (domain.Attempt, []domain.Answer, domain.ResultSummary, error) {
	attempt, _, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, nil, domain.ResultSummary{}, err
	}
	if attempt.Status == domain.AttemptCompleted {
		return domain.Attempt{}, nil, domain.ResultSummary{}, domain.ErrAttemptCompleted
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Attempt{}, nil, domain.ResultSummary{}, err
	}
	if timeSpent < 0 {
		timeSpent = 0
	}

	graded := Grade(quiz, answers)
	final, rows, err := s.attempts.Finalize(ctx, attemptID, graded, timeSpent)
	if err != nil {
		return domain.Attempt{}, nil, domain.ResultSummary{}, err
	}
	_ = s.drafts.ClearDraft(ctx, attemptID)

	summary := Summarize(final.Score, final.TotalPoints, final.TimeSpent, graded.Verdicts)
	// A live session for this attempt (if any) is over now, whichever path
	// finalized it; push the result to its subscribers and drop it.
	if session, ok := s.sessions.Get(attemptID); ok {
		session.close(summary)
		s.sessions.Delete(attemptID)
	}
	return final, rows, summary, nil
}

// Attempt returns a stored attempt with its answers; the summary is
// rebuilt from the persisted rows for completed attempts.
func (s *AttemptService) Attempt(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, domain.ResultSummary, error) {
	attempt, answers, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, nil, domain.ResultSummary{}, err
	}
	summary := Summarize(attempt.Score, attempt.TotalPoints, attempt.TimeSpent, verdictsFromAnswers(answers))
	return attempt, answers, summary, nil
}

// Subscribe returns a channel of live session events for an attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Subscribe(attemptID string) (<-chan SessionEvent, func(), error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

func (s *AttemptService) autoSubmit(attemptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, _, _, err := s.Submit(ctx, attemptID); err != nil && !errors.Is(err, domain.ErrAttemptSubmitted) {
		log.Printf("auto-submit attempt %s: %v", attemptID, err)
	}
}
