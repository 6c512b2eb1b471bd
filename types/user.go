package types

import "time"

// Preferred interface languages supported by the platform.
const (
	LanguageEnglish = "english"
	LanguageSinhala = "sinhala"
	LanguageTamil   = "tamil"
)

// User roles, ordered by privilege.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents an account in the system together with its learning
// profile. It contains identity, credential, preference, and aggregate
// progress data.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is stored lowercased and is
	// unique across all accounts.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ProfilePicture is the object-storage key of the user's picture.
	ProfilePicture string `json:"profile_picture" db:"profile_picture"`

	// PreferredLanguage is the user's interface language
	// (english, sinhala, or tamil).
	PreferredLanguage string `json:"preferred_language" db:"preferred_language"`

	// Role indicates the user's authorization level within the system
	// (student, teacher, or admin).
	Role string `json:"role" db:"role"`

	// CurrentLevel is the user's learning level, from 1 to 5.
	CurrentLevel int `json:"current_level" db:"current_level"`

	// TotalQuizzesTaken counts scored quiz submissions. Whether a
	// re-attempt of an already completed quiz counts again is a
	// configuration choice; see services.ProgressService.
	TotalQuizzesTaken int `json:"total_quizzes_taken" db:"total_quizzes_taken"`

	// TotalQuestionsAnswered counts every question answered across all
	// submissions, correct or not.
	TotalQuestionsAnswered int `json:"total_questions_answered" db:"total_questions_answered"`

	// CorrectAnswerRate is a running weighted mean of submitted quiz
	// scores, maintained incrementally on every submission.
	CorrectAnswerRate float64 `json:"correct_answer_rate" db:"correct_answer_rate"`

	// IsVerified reports whether the user's email has been verified.
	IsVerified bool `json:"is_verified" db:"is_verified"`

	// IsActive reports whether the account may log in. Accounts are
	// deactivated rather than deleted.
	IsActive bool `json:"is_active" db:"is_active"`

	// LastLogin is the timestamp of the most recent successful login,
	// nil for accounts that have never logged in.
	LastLogin *time.Time `json:"last_login,omitempty" db:"last_login"`

	// LoginCount is the number of successful logins.
	LoginCount int `json:"login_count" db:"login_count"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CompletedQuiz records a user's latest result for a single quiz.
// A user has at most one entry per quiz; re-attempts update the entry
// in place and increment AttemptCount.
type CompletedQuiz struct {
	// QuizID references the quiz in the catalog.
	QuizID int `json:"quiz_id" db:"quiz_id"`

	// Score is the latest score for the quiz, from 0 to 100.
	Score int `json:"score" db:"score"`

	// CompletedAt is the timestamp of the latest attempt.
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`

	// AttemptCount is the number of scored attempts, at least 1.
	AttemptCount int `json:"attempt_count" db:"attempt_count"`

	// Quiz holds the expanded catalog fields when the caller asked for
	// them, nil otherwise.
	Quiz *QuizSummary `json:"quiz,omitempty" db:"-"`
}

// KnowledgeGap records the assessed confidence for a topic the user has
// answered incorrectly. A user has at most one entry per topic.
type KnowledgeGap struct {
	// Topic is the free-form topic label, unique per user.
	Topic string `json:"topic" db:"topic"`

	// ConfidenceScore is the recorded confidence, from 0 to 100.
	ConfidenceScore int `json:"confidence_score" db:"confidence_score"`

	// LastAssessed is the timestamp of the attempt that last touched
	// this topic.
	LastAssessed time.Time `json:"last_assessed" db:"last_assessed"`
}

// LevelPerformance aggregates completed quizzes that share a difficulty level.
type LevelPerformance struct {
	Count        int     `json:"count"`
	TotalScore   int     `json:"total_score"`
	AverageScore float64 `json:"average_score"`
}

// LearningStats is the derived statistics view returned by the
// learning-stats endpoint.
type LearningStats struct {
	TotalQuizzesTaken      int                      `json:"total_quizzes_taken"`
	TotalQuestionsAnswered int                      `json:"total_questions_answered"`
	CorrectAnswerRate      float64                  `json:"correct_answer_rate"`
	CurrentLevel           int                      `json:"current_level"`
	OverallAverageScore    float64                  `json:"overall_average_score"`
	PerformanceByLevel     map[int]LevelPerformance `json:"performance_by_level"`
	KnowledgeGaps          []KnowledgeGap           `json:"knowledge_gaps"`
	CompletedQuizzes       []CompletedQuiz          `json:"completed_quizzes"`
}

// ProgressSummary is the trimmed view returned after recording a quiz result.
type ProgressSummary struct {
	CurrentLevel      int     `json:"current_level"`
	TotalQuizzesTaken int     `json:"total_quizzes_taken"`
	CorrectAnswerRate float64 `json:"correct_answer_rate"`
}

// QuizResult is one scored submission against a quiz.
type QuizResult struct {
	QuizID          int      `json:"quiz_id"`
	Score           int      `json:"score"`
	CorrectAnswers  int      `json:"correct_answers"`
	IncorrectTopics []string `json:"incorrect_topics"`
}
