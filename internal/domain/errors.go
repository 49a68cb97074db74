package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty is returned when a student starts a quiz with no questions.
	ErrQuizEmpty = errors.New("quiz has no questions")
	// ErrInvalidQuiz flags a quiz payload that fails boundary validation.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrInvalidQuestion flags a question payload whose fields do not match its type.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrAttemptNotFound is returned when the referenced attempt does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptCompleted is returned when finalizing an already completed attempt.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrAttemptSubmitted is returned when a session submits twice.
	ErrAttemptSubmitted = errors.New("attempt already submitted")
	// ErrSessionNotFound is returned when no in-progress session exists for an attempt.
	ErrSessionNotFound = errors.New("attempt session not found")
	// ErrQuestionNotFound indicates an answered question id is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAnswerNotFound indicates a manual grade references a missing answer.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrStudentRequired is returned when an attempt is started without a student id.
	ErrStudentRequired = errors.New("student id is required")
	// ErrPointsExceeded is returned when a manual grade awards more than the question is worth.
	ErrPointsExceeded = errors.New("points awarded exceed question points")
	// ErrMissingField is returned when a request omits a required identifier.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidGrade flags a manual grade payload that fails validation.
	ErrInvalidGrade = errors.New("invalid manual grade")
)
