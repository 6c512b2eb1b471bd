package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lankalearn/apiserver/types"
)

// confidencePenalty is subtracted from the attempt score when recording
// a knowledge gap for an incorrectly answered topic.
const confidencePenalty = 20

// ProgressRepository handles persistence for per-user learning records:
// completed quizzes, knowledge gaps, favorites, and the aggregate
// counters stored on the user row.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// RecordResult applies one scored quiz submission to the user's learning
// record. The whole read-modify-write runs in a single transaction with
// the user row locked, so concurrent submissions from multiple devices
// never lose a counter update.
//
// With countRetakes set (the historical behavior), every submission
// increments totalQuizzesTaken and is folded into the running
// correctAnswerRate even when it overwrites an existing completed-quiz
// entry; the rate is then the mean of all submissions ever made, which
// diverges from the mean of current entries once any quiz is retaken.
// Without it, counters move only on the first attempt per quiz and the
// rate is recomputed as the mean of the current entries.
func (r *ProgressRepository) RecordResult(ctx context.Context, userID int, result types.QuizResult, countRetakes bool) (types.ProgressSummary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ProgressSummary{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
		SELECT current_level, total_quizzes_taken, total_questions_answered, correct_answer_rate
		FROM users
		WHERE id = $1
		FOR UPDATE`
	var (
		currentLevel int
		taken        int
		questions    int
		rate         float64
	)
	if err := tx.QueryRowContext(ctx, lockQuery, userID).Scan(&currentLevel, &taken, &questions, &rate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ProgressSummary{}, ErrNotFound
		}
		return types.ProgressSummary{}, err
	}

	now := time.Now()

	const upsertQuery = `
		INSERT INTO completed_quizzes (user_id, quiz_id, score, completed_at, attempt_count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (user_id, quiz_id) DO UPDATE
		SET score = EXCLUDED.score,
			completed_at = EXCLUDED.completed_at,
			attempt_count = completed_quizzes.attempt_count + 1
		RETURNING attempt_count`
	var attemptCount int
	if err := tx.QueryRowContext(ctx, upsertQuery, userID, result.QuizID, result.Score, now).Scan(&attemptCount); err != nil {
		return types.ProgressSummary{}, err
	}

	questions += result.CorrectAnswers + len(result.IncorrectTopics)

	if countRetakes {
		rate = nextRate(rate, taken, result.Score)
		taken++
	} else {
		if attemptCount == 1 {
			taken++
		}
		// Corrected semantics: the rate tracks the current entries,
		// not the submission history.
		const avgQuery = `SELECT COALESCE(AVG(score), 0) FROM completed_quizzes WHERE user_id = $1`
		if err := tx.QueryRowContext(ctx, avgQuery, userID).Scan(&rate); err != nil {
			return types.ProgressSummary{}, err
		}
	}

	const gapQuery = `
		INSERT INTO knowledge_gaps (user_id, topic, confidence_score, last_assessed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, topic) DO UPDATE
		SET confidence_score = EXCLUDED.confidence_score,
			last_assessed = EXCLUDED.last_assessed`
	for _, topic := range result.IncorrectTopics {
		if _, err := tx.ExecContext(ctx, gapQuery, userID, topic, gapConfidence(result.Score), now); err != nil {
			return types.ProgressSummary{}, err
		}
	}

	const updateQuery = `
		UPDATE users
		SET total_quizzes_taken = $1,
			total_questions_answered = $2,
			correct_answer_rate = $3,
			updated_at = $4
		WHERE id = $5`
	if _, err := tx.ExecContext(ctx, updateQuery, taken, questions, rate, now, userID); err != nil {
		return types.ProgressSummary{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.ProgressSummary{}, err
	}

	return types.ProgressSummary{
		CurrentLevel:      currentLevel,
		TotalQuizzesTaken: taken,
		CorrectAnswerRate: rate,
	}, nil
}

// nextRate folds one more score into the running weighted mean of
// submissions: (rate*n + score) / (n+1).
func nextRate(rate float64, taken, score int) float64 {
	return (rate*float64(taken) + float64(score)) / float64(taken+1)
}

// gapConfidence derives the confidence recorded for a topic answered
// incorrectly during an attempt with the given score, floored at zero.
func gapConfidence(score int) int {
	confidence := score - confidencePenalty
	if confidence < 0 {
		return 0
	}
	return confidence
}

// ListCompleted returns the user's completed quizzes in completion
// order, each expanded with catalog fields when the quiz still exists.
func (r *ProgressRepository) ListCompleted(ctx context.Context, userID int) ([]types.CompletedQuiz, error) {
	const query = `
		SELECT c.quiz_id, c.score, c.completed_at, c.attempt_count,
		       q.id, q.title, q.description, q.difficulty_level, q.language, q.created_at
		FROM completed_quizzes c
		LEFT JOIN quizzes q ON q.id = c.quiz_id
		WHERE c.user_id = $1
		ORDER BY c.completed_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completed := make([]types.CompletedQuiz, 0)
	for rows.Next() {
		var entry types.CompletedQuiz
		var quizID sql.NullInt64
		var title, description, language sql.NullString
		var difficulty sql.NullInt64
		var createdAt sql.NullTime
		if err := rows.Scan(
			&entry.QuizID,
			&entry.Score,
			&entry.CompletedAt,
			&entry.AttemptCount,
			&quizID,
			&title,
			&description,
			&difficulty,
			&language,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if quizID.Valid {
			entry.Quiz = &types.QuizSummary{
				ID:              int(quizID.Int64),
				Title:           title.String,
				Description:     description.String,
				DifficultyLevel: int(difficulty.Int64),
				Language:        language.String,
				CreatedAt:       createdAt.Time,
			}
		}
		completed = append(completed, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return completed, nil
}

// ListKnowledgeGaps returns the user's recorded knowledge gaps.
func (r *ProgressRepository) ListKnowledgeGaps(ctx context.Context, userID int) ([]types.KnowledgeGap, error) {
	const query = `
		SELECT topic, confidence_score, last_assessed
		FROM knowledge_gaps
		WHERE user_id = $1
		ORDER BY topic`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gaps := make([]types.KnowledgeGap, 0)
	for rows.Next() {
		var gap types.KnowledgeGap
		if err := rows.Scan(&gap.Topic, &gap.ConfidenceScore, &gap.LastAssessed); err != nil {
			return nil, err
		}
		gaps = append(gaps, gap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gaps, nil
}

// ToggleFavorite flips the quiz's membership in the user's favorites and
// reports the resulting state. Each call is a flip, not a set.
func (r *ProgressRepository) ToggleFavorite(ctx context.Context, userID, quizID int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const deleteQuery = `DELETE FROM favorited_quizzes WHERE user_id = $1 AND quiz_id = $2`
	result, err := tx.ExecContext(ctx, deleteQuery, userID, quizID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	favorited := false
	if affected == 0 {
		const insertQuery = `
			INSERT INTO favorited_quizzes (user_id, quiz_id, created_at)
			VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, insertQuery, userID, quizID, time.Now()); err != nil {
			return false, fmt.Errorf("favorite quiz %d: %w", quizID, err)
		}
		favorited = true
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return favorited, nil
}

// ListFavorites returns the catalog view of the user's favorited
// quizzes. Favorites whose quiz has been removed from the catalog are
// omitted.
func (r *ProgressRepository) ListFavorites(ctx context.Context, userID int) ([]types.QuizSummary, error) {
	const query = `
		SELECT q.id, q.title, q.description, q.difficulty_level, q.language, q.created_at
		FROM favorited_quizzes f
		JOIN quizzes q ON q.id = f.quiz_id
		WHERE f.user_id = $1
		ORDER BY f.created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := make([]types.QuizSummary, 0)
	for rows.Next() {
		var quiz types.QuizSummary
		if err := rows.Scan(
			&quiz.ID,
			&quiz.Title,
			&quiz.Description,
			&quiz.DifficultyLevel,
			&quiz.Language,
			&quiz.CreatedAt,
		); err != nil {
			return nil, err
		}
		favorites = append(favorites, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}
