package app

import (
	"context"

	"github.com/google/uuid"

	"quizmentor/internal/domain"
)

// QuizWriter stores quiz content in the backing store.
type QuizWriter interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// QuizService covers quiz authoring and retrieval. Reads go through the
// caching repository; writes go straight to the backing store.
type QuizService struct {
	repo   QuizRepository
	writer QuizWriter
	newID  func() string
}

func NewQuizService(repo QuizRepository, writer QuizWriter) *QuizService {
	return &QuizService{repo: repo, writer: writer, newID: uuid.NewString}
}

// Create validates and stores a quiz, assigning ids, question order, and
// point defaults where omitted.
func (s *QuizService) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		quiz.ID = s.newID()
	}
	if quiz.Status == "" {
		quiz.Status = "active"
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.ID == "" {
			q.ID = s.newID()
		}
		q.QuizID = quiz.ID
		if q.Order == 0 {
			q.Order = i
		}
		if q.Points == 0 {
			q.Points = 1
		}
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.writer.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Get returns a quiz with its questions in order.
func (s *QuizService) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = quiz.OrderedQuestions()
	return quiz, nil
}
