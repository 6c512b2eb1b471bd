package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/lankalearn/apiserver/types"
)

// QuizFilter narrows catalog listings.
type QuizFilter struct {
	Language        string
	DifficultyLevel int
}

// QuizRepository handles persistence for catalog quizzes.
type QuizRepository struct {
	db *sql.DB
}

func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) List(ctx context.Context, filter QuizFilter, offset, limit int) ([]types.Quiz, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.Language != "" {
		args = append(args, filter.Language)
		where = append(where, "language = $"+strconv.Itoa(len(args)))
	}
	if filter.DifficultyLevel > 0 {
		args = append(args, filter.DifficultyLevel)
		where = append(where, "difficulty_level = $"+strconv.Itoa(len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	countQuery := `SELECT COUNT(1) FROM quizzes` + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT id, title, description, language, difficulty_level, time_limit, passing_score,
		       category, tags, questions, created_at, updated_at
		FROM quizzes` + whereClause + `
		ORDER BY id
		OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	quizzes := make([]types.Quiz, 0, limit)
	for rows.Next() {
		var quiz types.Quiz
		var tagsJSON, questionsJSON []byte
		if err := rows.Scan(
			&quiz.ID,
			&quiz.Title,
			&quiz.Description,
			&quiz.Language,
			&quiz.DifficultyLevel,
			&quiz.TimeLimit,
			&quiz.PassingScore,
			&quiz.Category,
			&tagsJSON,
			&questionsJSON,
			&quiz.CreatedAt,
			&quiz.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}

		_ = json.Unmarshal(tagsJSON, &quiz.Tags)
		_ = json.Unmarshal(questionsJSON, &quiz.Questions)
		quizzes = append(quizzes, quiz)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (r *QuizRepository) Get(ctx context.Context, id int) (types.Quiz, error) {
	const query = `
		SELECT id, title, description, language, difficulty_level, time_limit, passing_score,
		       category, tags, questions, created_at, updated_at
		FROM quizzes
		WHERE id = $1`
	var quiz types.Quiz
	var tagsJSON, questionsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&quiz.ID,
		&quiz.Title,
		&quiz.Description,
		&quiz.Language,
		&quiz.DifficultyLevel,
		&quiz.TimeLimit,
		&quiz.PassingScore,
		&quiz.Category,
		&tagsJSON,
		&questionsJSON,
		&quiz.CreatedAt,
		&quiz.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Quiz{}, ErrNotFound
		}
		return types.Quiz{}, err
	}

	_ = json.Unmarshal(tagsJSON, &quiz.Tags)
	_ = json.Unmarshal(questionsJSON, &quiz.Questions)
	return quiz, nil
}

func (r *QuizRepository) Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	now := time.Now()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now

	tagsJSON, err := json.Marshal(quiz.Tags)
	if err != nil {
		return types.Quiz{}, err
	}
	questionsJSON, err := json.Marshal(quiz.Questions)
	if err != nil {
		return types.Quiz{}, err
	}

	const query = `
		INSERT INTO quizzes (title, description, language, difficulty_level, time_limit,
				     passing_score, category, tags, questions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		quiz.Title,
		quiz.Description,
		quiz.Language,
		quiz.DifficultyLevel,
		quiz.TimeLimit,
		quiz.PassingScore,
		quiz.Category,
		tagsJSON,
		questionsJSON,
		quiz.CreatedAt,
		quiz.UpdatedAt,
	).Scan(&quiz.ID); err != nil {
		return types.Quiz{}, err
	}
	return quiz, nil
}

func (r *QuizRepository) Update(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	quiz.UpdatedAt = time.Now()

	tagsJSON, err := json.Marshal(quiz.Tags)
	if err != nil {
		return types.Quiz{}, err
	}
	questionsJSON, err := json.Marshal(quiz.Questions)
	if err != nil {
		return types.Quiz{}, err
	}

	const query = `
		UPDATE quizzes
		SET title = $1,
			description = $2,
			language = $3,
			difficulty_level = $4,
			time_limit = $5,
			passing_score = $6,
			category = $7,
			tags = $8,
			questions = $9,
			updated_at = $10
		WHERE id = $11`
	result, err := r.db.ExecContext(
		ctx,
		query,
		quiz.Title,
		quiz.Description,
		quiz.Language,
		quiz.DifficultyLevel,
		quiz.TimeLimit,
		quiz.PassingScore,
		quiz.Category,
		tagsJSON,
		questionsJSON,
		quiz.UpdatedAt,
		quiz.ID,
	)
	if err != nil {
		return types.Quiz{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Quiz{}, err
	}
	if affected == 0 {
		return types.Quiz{}, ErrNotFound
	}
	return quiz, nil
}

func (r *QuizRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM quizzes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
