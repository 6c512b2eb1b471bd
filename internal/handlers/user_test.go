package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/lankalearn/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t)
	seeded, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)
	env.progressRepo.completed = []types.CompletedQuiz{
		{QuizID: 1, Score: 80, CompletedAt: time.Now(), AttemptCount: 1},
	}

	recorder := env.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp ProfileResponse
	decodeBody(t, recorder, &resp)
	assert.Equal(t, seeded.ID, resp.User.ID)
	require.Len(t, resp.CompletedQuizzes, 1)
	assert.Equal(t, 80, resp.CompletedQuizzes[0].Score)
}

func TestGetProfileForDeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	seeded, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)
	delete(env.userRepo.users, seeded.ID)

	recorder := env.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "user not found")
}

func TestUpdateProfilePartial(t *testing.T) {
	env := newTestEnv(t)
	seeded, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	recorder := env.do(t, http.MethodPut, "/api/user/profile", token, map[string]string{
		"preferred_language": types.LanguageTamil,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp UserResponse
	decodeBody(t, recorder, &resp)
	assert.Equal(t, "profile updated successfully", resp.Message)
	assert.Equal(t, types.LanguageTamil, resp.User.PreferredLanguage)
	// Fields not in the request are untouched.
	assert.Equal(t, seeded.Name, resp.User.Name)
}

func TestUpdateProfileRejectsUnknownLanguage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	recorder := env.do(t, http.MethodPut, "/api/user/profile", token, map[string]string{
		"preferred_language": "latin",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUploadProfilePictureWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	recorder := env.do(t, http.MethodPost, "/api/user/profile/picture", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	recorder := env.do(t, http.MethodPut, "/api/user/change-password", token, map[string]string{
		"current_password": "secret123",
		"new_password":     "evenmoresecret",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "password changed successfully")

	// The old password no longer logs in, the new one does.
	recorder = env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email":    "nimal@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email":    "nimal@example.com",
		"password": "evenmoresecret",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	recorder := env.do(t, http.MethodPut, "/api/user/change-password", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "evenmoresecret",
	})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "current password is incorrect")
}

func TestSaveQuizResult(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)
	env.progressRepo.summary = types.ProgressSummary{
		CurrentLevel:      1,
		TotalQuizzesTaken: 1,
		CorrectAnswerRate: 80,
	}

	recorder := env.do(t, http.MethodPost, "/api/user/quiz-result", token, map[string]any{
		"quiz_id":          3,
		"score":            80,
		"correct_answers":  8,
		"incorrect_topics": []string{"greetings", "numbers"},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp QuizResultResponse
	decodeBody(t, recorder, &resp)
	assert.Equal(t, "quiz result saved successfully", resp.Message)
	assert.Equal(t, 1, resp.TotalQuizzesTaken)
	assert.Equal(t, 80.0, resp.CorrectAnswerRate)
}

func TestSaveQuizResultValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing quiz id", map[string]any{"score": 80}},
		{"score above 100", map[string]any{"quiz_id": 1, "score": 101}},
		{"negative score", map[string]any{"quiz_id": 1, "score": -1}},
		{"negative correct answers", map[string]any{"quiz_id": 1, "score": 50, "correct_answers": -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := env.do(t, http.MethodPost, "/api/user/quiz-result", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func TestGetLearningStats(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)
	env.progressRepo.completed = []types.CompletedQuiz{
		{QuizID: 1, Score: 70, AttemptCount: 1, Quiz: &types.QuizSummary{ID: 1, DifficultyLevel: 2}},
	}
	env.progressRepo.gaps = []types.KnowledgeGap{
		{Topic: "verbs", ConfidenceScore: 50, LastAssessed: time.Now()},
	}

	recorder := env.do(t, http.MethodGet, "/api/user/learning-stats", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp LearningStatsResponse
	decodeBody(t, recorder, &resp)
	assert.Equal(t, 70.0, resp.Stats.OverallAverageScore)
	require.Contains(t, resp.Stats.PerformanceByLevel, 2)
	assert.Equal(t, 1, resp.Stats.PerformanceByLevel[2].Count)
	require.Len(t, resp.Stats.KnowledgeGaps, 1)
	assert.Equal(t, "verbs", resp.Stats.KnowledgeGaps[0].Topic)
}

func TestToggleFavoriteQuiz(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	recorder := env.do(t, http.MethodPost, "/api/user/favorite-quiz", token, map[string]int{"quiz_id": 5})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp FavoriteQuizResponse
	decodeBody(t, recorder, &resp)
	assert.True(t, resp.IsFavorited)
	assert.Equal(t, "quiz added to favorites", resp.Message)

	recorder = env.do(t, http.MethodPost, "/api/user/favorite-quiz", token, map[string]int{"quiz_id": 5})
	require.Equal(t, http.StatusOK, recorder.Code)

	decodeBody(t, recorder, &resp)
	assert.False(t, resp.IsFavorited)
	assert.Equal(t, "quiz removed from favorites", resp.Message)
}

func TestToggleFavoriteQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)

	recorder := env.do(t, http.MethodPost, "/api/user/favorite-quiz", token, map[string]int{"quiz_id": 0})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetFavoritedQuizzes(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "nimal@example.com", "secret123", types.RoleStudent)
	env.progressRepo.favorites = []types.QuizSummary{
		{ID: 2, Title: "Tamil Basics", DifficultyLevel: 1, Language: types.LanguageTamil},
	}

	recorder := env.do(t, http.MethodGet, "/api/user/favorited-quizzes", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp FavoritesResponse
	decodeBody(t, recorder, &resp)
	require.Len(t, resp.FavoritedQuizzes, 1)
	assert.Equal(t, "Tamil Basics", resp.FavoritedQuizzes[0].Title)
}
