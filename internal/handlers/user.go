package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lankalearn/apiserver/internal/services"
	"github.com/lankalearn/apiserver/internal/storage"
	"github.com/lankalearn/apiserver/internal/store"
	"github.com/lankalearn/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxPictureMemory = 8 << 20
	maxPictureBytes  = 8 << 20
	formFieldPicture = "picture"
)

// UserHandler provides HTTP handlers for profile and learning-record
// endpoints.
type UserHandler struct {
	userService     *services.UserService
	progressService *services.ProgressService
	pictures        *storage.Storage
}

// NewUserHandler constructs a handler with the provided services.
// pictures may be nil when no object storage is configured.
func NewUserHandler(userService *services.UserService, progressService *services.ProgressService, pictures *storage.Storage) *UserHandler {
	return &UserHandler{
		userService:     userService,
		progressService: progressService,
		pictures:        pictures,
	}
}

// UserRouter registers account and learning-record routes on the given
// router.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	progressService *services.ProgressService,
	pictures *storage.Storage,
	jwtSecret string,
) {
	auth := NewAuthHandler(userService, jwtSecret)
	handler := NewUserHandler(userService, progressService, pictures)

	r.Post("/register", auth.Register)
	r.Post("/login", auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/profile", handler.GetProfile)
		r.Put("/profile", handler.UpdateProfile)
		r.Post("/profile/picture", handler.UploadProfilePicture)
		r.Put("/change-password", handler.ChangePassword)
		r.Post("/quiz-result", handler.SaveQuizResult)
		r.Get("/learning-stats", handler.GetLearningStats)
		r.Post("/favorite-quiz", handler.ToggleFavoriteQuiz)
		r.Get("/favorited-quizzes", handler.GetFavoritedQuizzes)
	})
}

// currentUser resolves the authenticated user, writing the error
// response itself when that fails. A valid token for a since-removed
// account yields 404.
func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.User{}, false
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return types.User{}, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return types.User{}, false
	}
	return user, true
}

// GetProfile returns the authenticated user with completed quizzes
// expanded with catalog fields.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	completed, err := h.progressService.CompletedQuizzes(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{User: user, CompletedQuizzes: completed})
}

// UpdateProfile applies a partial profile update. Empty fields are left
// untouched.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.PreferredLanguage = strings.TrimSpace(req.PreferredLanguage)
	if req.PreferredLanguage != "" && !validLanguage(req.PreferredLanguage) {
		writeError(w, http.StatusBadRequest, "invalid preferred language")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		Name:              req.Name,
		PreferredLanguage: req.PreferredLanguage,
		ProfilePicture:    strings.TrimSpace(req.ProfilePicture),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Message: "profile updated successfully", User: user})
}

// UploadProfilePicture stores a multipart picture in object storage and
// points the profile at it.
func (h *UserHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	if h.pictures == nil {
		writeError(w, http.StatusServiceUnavailable, "picture storage is not configured")
		return
	}

	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxPictureMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldPicture)
	if err != nil {
		writeError(w, http.StatusBadRequest, "picture file is required")
		return
	}
	defer file.Close()

	if header.Size > maxPictureBytes {
		writeError(w, http.StatusBadRequest, "picture is too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	key := fmt.Sprintf("profiles/%d/%s", userID, filepath.Base(header.Filename))
	if err := h.pictures.Put(r.Context(), key, io.LimitReader(file, maxPictureBytes), header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store picture")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.ProfileUpdate{ProfilePicture: key})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Message: "profile picture updated", User: user})
}

// ChangePassword verifies the current password and replaces the stored
// credential with a fresh hash.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	if err := h.userService.UpdatePassword(r.Context(), user.ID, string(hashed)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password changed successfully"})
}

// SaveQuizResult records one scored quiz submission against the
// authenticated user's learning profile.
func (h *UserHandler) SaveQuizResult(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req types.QuizResult
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.QuizID < 1 {
		writeError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeError(w, http.StatusBadRequest, "score must be between 0 and 100")
		return
	}
	if req.CorrectAnswers < 0 {
		writeError(w, http.StatusBadRequest, "invalid correct answers")
		return
	}

	summary, err := h.progressService.RecordQuizResult(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save quiz result")
		return
	}

	writeJSON(w, http.StatusOK, QuizResultResponse{
		Message:           "quiz result saved successfully",
		CurrentLevel:      summary.CurrentLevel,
		TotalQuizzesTaken: summary.TotalQuizzesTaken,
		CorrectAnswerRate: summary.CorrectAnswerRate,
	})
}

// GetLearningStats returns the derived statistics view for the
// authenticated user.
func (h *UserHandler) GetLearningStats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.progressService.LearningStats(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load learning stats")
		return
	}

	writeJSON(w, http.StatusOK, LearningStatsResponse{Stats: stats})
}

// ToggleFavoriteQuiz flips the quiz's membership in the authenticated
// user's favorites.
func (h *UserHandler) ToggleFavoriteQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req FavoriteQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.QuizID < 1 {
		writeError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}

	favorited, err := h.progressService.ToggleFavorite(r.Context(), user.ID, req.QuizID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to toggle favorite")
		return
	}

	message := "quiz removed from favorites"
	if favorited {
		message = "quiz added to favorites"
	}
	writeJSON(w, http.StatusOK, FavoriteQuizResponse{Message: message, IsFavorited: favorited})
}

// GetFavoritedQuizzes returns the catalog view of the authenticated
// user's favorites.
func (h *UserHandler) GetFavoritedQuizzes(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	favorites, err := h.progressService.Favorites(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load favorites")
		return
	}

	writeJSON(w, http.StatusOK, FavoritesResponse{FavoritedQuizzes: favorites})
}

type UpdateProfileRequest struct {
	Name              string `json:"name"`
	PreferredLanguage string `json:"preferred_language"`
	ProfilePicture    string `json:"profile_picture"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type FavoriteQuizRequest struct {
	QuizID int `json:"quiz_id"`
}

type ProfileResponse struct {
	User             types.User            `json:"user"`
	CompletedQuizzes []types.CompletedQuiz `json:"completed_quizzes"`
}

type UserResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type QuizResultResponse struct {
	Message           string  `json:"message"`
	CurrentLevel      int     `json:"current_level"`
	TotalQuizzesTaken int     `json:"total_quizzes_taken"`
	CorrectAnswerRate float64 `json:"correct_answer_rate"`
}

type LearningStatsResponse struct {
	Stats types.LearningStats `json:"stats"`
}

type FavoriteQuizResponse struct {
	Message     string `json:"message"`
	IsFavorited bool   `json:"is_favorited"`
}

type FavoritesResponse struct {
	FavoritedQuizzes []types.QuizSummary `json:"favorited_quizzes"`
}
