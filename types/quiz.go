package types

import "time"

// Question types supported by the quiz engine.
const (
	QuestionMultipleChoice = "multiple-choice"
	QuestionTrueFalse      = "true-false"
	QuestionShortAnswer    = "short-answer"
	QuestionFillInBlank    = "fill-in-blank"
)

// Quiz represents a quiz in the catalog. It contains metadata, its
// questions, and the thresholds used when scoring attempts.
type Quiz struct {
	// ID is the unique identifier of the quiz.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the quiz.
	Title string `json:"title" db:"title"`

	// Description summarizes the quiz content.
	Description string `json:"description" db:"description"`

	// Language is the language the quiz is written in
	// (english, sinhala, or tamil).
	Language string `json:"language" db:"language"`

	// DifficultyLevel indicates the relative difficulty of the quiz,
	// from 1 to 5.
	DifficultyLevel int `json:"difficulty_level" db:"difficulty_level"`

	// TimeLimit is the allowed completion time in minutes.
	TimeLimit int `json:"time_limit" db:"time_limit"`

	// PassingScore is the percentage required to pass, from 0 to 100.
	PassingScore int `json:"passing_score" db:"passing_score"`

	// Category groups quizzes for learning-path organization.
	Category string `json:"category,omitempty" db:"category"`

	// Tags are free-form labels used for categorization and search.
	Tags []string `json:"tags" db:"tags"`

	// Questions is the ordered list of questions. Stored as a JSON
	// document alongside the quiz row.
	Questions []Question `json:"questions" db:"questions"`

	// CreatedAt is the timestamp at which the quiz was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the quiz.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Question is a single question within a quiz.
type Question struct {
	// Text is the question statement.
	Text string `json:"text"`

	// Type is the question kind (multiple-choice, true-false,
	// short-answer, or fill-in-blank).
	Type string `json:"type"`

	// Options holds the candidate answers for choice questions.
	Options []Option `json:"options,omitempty"`

	// CorrectAnswer is the expected answer for short-answer and
	// fill-in-blank questions.
	CorrectAnswer string `json:"correct_answer,omitempty"`

	// DifficultyLevel indicates the relative difficulty of the
	// question, from 1 to 5.
	DifficultyLevel int `json:"difficulty_level"`

	// Explanation is shown to the user after answering.
	Explanation string `json:"explanation,omitempty"`

	// Tags are topic labels used for knowledge-gap tracking.
	Tags []string `json:"tags,omitempty"`

	// SourceReference points at the section of the source material
	// this question was generated from.
	SourceReference string `json:"source_reference,omitempty"`
}

// Option is one candidate answer of a choice question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// QuizSummary is the denormalized catalog view embedded in profile and
// statistics responses.
type QuizSummary struct {
	ID              int       `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description,omitempty" db:"description"`
	DifficultyLevel int       `json:"difficulty_level,omitempty" db:"difficulty_level"`
	Language        string    `json:"language,omitempty" db:"language"`
	CreatedAt       time.Time `json:"created_at,omitempty" db:"created_at"`
}
