package services

import (
	"context"

	"github.com/lankalearn/apiserver/internal/store"
	"github.com/lankalearn/apiserver/types"
)

// QuizRepository defines persistence operations for catalog quizzes.
type QuizRepository interface {
	List(ctx context.Context, filter store.QuizFilter, offset, limit int) ([]types.Quiz, int, error)
	Get(ctx context.Context, id int) (types.Quiz, error)
	Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error)
	Update(ctx context.Context, quiz types.Quiz) (types.Quiz, error)
	Delete(ctx context.Context, id int) error
}

// QuizService encapsulates catalog use-cases.
type QuizService struct {
	repo QuizRepository
}

func NewQuizService(repo QuizRepository) *QuizService {
	return &QuizService{repo: repo}
}

func (s *QuizService) List(ctx context.Context, filter store.QuizFilter, offset, limit int) ([]types.Quiz, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *QuizService) Get(ctx context.Context, id int) (types.Quiz, error) {
	return s.repo.Get(ctx, id)
}

func (s *QuizService) Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	if quiz.Language == "" {
		quiz.Language = types.LanguageEnglish
	}
	if quiz.DifficultyLevel == 0 {
		quiz.DifficultyLevel = 1
	}
	if quiz.TimeLimit == 0 {
		quiz.TimeLimit = 30
	}
	if quiz.PassingScore == 0 {
		quiz.PassingScore = 70
	}
	return s.repo.Create(ctx, quiz)
}

func (s *QuizService) Update(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	return s.repo.Update(ctx, quiz)
}

func (s *QuizService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
