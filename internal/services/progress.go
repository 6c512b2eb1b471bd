package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/lankalearn/apiserver/config"
	"github.com/lankalearn/apiserver/types"
)

// QuizCompletedChannel is the broker channel quiz-completion events are
// published to for downstream adaptive-learning consumers.
const QuizCompletedChannel = "quiz.completed"

// ProgressRepository defines persistence operations for per-user
// learning records.
type ProgressRepository interface {
	RecordResult(ctx context.Context, userID int, result types.QuizResult, countRetakes bool) (types.ProgressSummary, error)
	ListCompleted(ctx context.Context, userID int) ([]types.CompletedQuiz, error)
	ListKnowledgeGaps(ctx context.Context, userID int) ([]types.KnowledgeGap, error)
	ToggleFavorite(ctx context.Context, userID, quizID int) (bool, error)
	ListFavorites(ctx context.Context, userID int) ([]types.QuizSummary, error)
}

// EventPublisher publishes events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// QuizCompletedEvent is the payload published after a quiz result is
// recorded.
type QuizCompletedEvent struct {
	UserID     int       `json:"user_id"`
	QuizID     int       `json:"quiz_id"`
	Score      int       `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ProgressService encapsulates learning-record use-cases.
type ProgressService struct {
	repo         ProgressRepository
	events       EventPublisher
	countRetakes bool
}

// NewProgressService constructs a ProgressService. events may be nil when
// no broker is configured.
func NewProgressService(repo ProgressRepository, events EventPublisher, cfg config.ProgressConfig) *ProgressService {
	return &ProgressService{
		repo:         repo,
		events:       events,
		countRetakes: cfg.CountRetakes,
	}
}

// RecordQuizResult applies one scored submission to the user's learning
// record and publishes a completion event. Publish failures are logged
// and never fail the request.
func (s *ProgressService) RecordQuizResult(ctx context.Context, userID int, result types.QuizResult) (types.ProgressSummary, error) {
	summary, err := s.repo.RecordResult(ctx, userID, result, s.countRetakes)
	if err != nil {
		return types.ProgressSummary{}, err
	}

	if s.events != nil {
		event := QuizCompletedEvent{
			UserID:     userID,
			QuizID:     result.QuizID,
			Score:      result.Score,
			RecordedAt: time.Now(),
		}
		data, err := json.Marshal(event)
		if err == nil {
			attrs := map[string]string{"user_id": strconv.Itoa(userID)}
			if _, err := s.events.Publish(ctx, QuizCompletedChannel, data, attrs); err != nil {
				log.Printf("publish quiz.completed for user %d: %v", userID, err)
			}
		}
	}

	return summary, nil
}

// LearningStats builds the derived statistics view for a user. The user
// row is loaded by the caller; this adds the per-quiz records and the
// aggregations over them.
func (s *ProgressService) LearningStats(ctx context.Context, user types.User) (types.LearningStats, error) {
	completed, err := s.repo.ListCompleted(ctx, user.ID)
	if err != nil {
		return types.LearningStats{}, err
	}
	gaps, err := s.repo.ListKnowledgeGaps(ctx, user.ID)
	if err != nil {
		return types.LearningStats{}, err
	}
	return buildLearningStats(user, completed, gaps), nil
}

// buildLearningStats derives performance-by-level groups and the
// unweighted overall average from the current completed entries. The
// overall average can diverge from user.CorrectAnswerRate, which is a
// running mean over all submissions including retakes.
func buildLearningStats(user types.User, completed []types.CompletedQuiz, gaps []types.KnowledgeGap) types.LearningStats {
	byLevel := make(map[int]types.LevelPerformance)
	totalScore := 0
	for _, entry := range completed {
		level := 1
		if entry.Quiz != nil && entry.Quiz.DifficultyLevel > 0 {
			level = entry.Quiz.DifficultyLevel
		}
		perf := byLevel[level]
		perf.Count++
		perf.TotalScore += entry.Score
		perf.AverageScore = float64(perf.TotalScore) / float64(perf.Count)
		byLevel[level] = perf
		totalScore += entry.Score
	}

	overall := 0.0
	if len(completed) > 0 {
		overall = float64(totalScore) / float64(len(completed))
	}

	return types.LearningStats{
		TotalQuizzesTaken:      user.TotalQuizzesTaken,
		TotalQuestionsAnswered: user.TotalQuestionsAnswered,
		CorrectAnswerRate:      user.CorrectAnswerRate,
		CurrentLevel:           user.CurrentLevel,
		OverallAverageScore:    overall,
		PerformanceByLevel:     byLevel,
		KnowledgeGaps:          gaps,
		CompletedQuizzes:       completed,
	}
}

// CompletedQuizzes returns the user's completed quizzes with catalog
// fields expanded, for the profile view.
func (s *ProgressService) CompletedQuizzes(ctx context.Context, userID int) ([]types.CompletedQuiz, error) {
	return s.repo.ListCompleted(ctx, userID)
}

// ToggleFavorite flips the quiz's membership in the user's favorites and
// reports the resulting state.
func (s *ProgressService) ToggleFavorite(ctx context.Context, userID, quizID int) (bool, error) {
	return s.repo.ToggleFavorite(ctx, userID, quizID)
}

// Favorites returns the catalog view of the user's favorited quizzes.
func (s *ProgressService) Favorites(ctx context.Context, userID int) ([]types.QuizSummary, error) {
	return s.repo.ListFavorites(ctx, userID)
}
