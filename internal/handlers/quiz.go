package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lankalearn/apiserver/internal/services"
	"github.com/lankalearn/apiserver/internal/store"
	"github.com/lankalearn/apiserver/types"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// QuizHandler provides HTTP handlers for the quiz catalog.
type QuizHandler struct {
	quizService *services.QuizService
	userService *services.UserService
}

// NewQuizHandler constructs a handler with the provided services.
func NewQuizHandler(quizService *services.QuizService, userService *services.UserService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		userService: userService,
	}
}

// QuizRouter registers catalog routes on the given router. Reads are
// public; writes require an authenticated teacher or admin.
func QuizRouter(
	r chi.Router,
	quizService *services.QuizService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewQuizHandler(quizService, userService)

	r.Get("/", handler.ListQuizzes)
	if authMiddleware != nil {
		r.With(authMiddleware, handler.requireEditor).Post("/", handler.CreateQuiz)
	} else {
		r.With(handler.requireEditor).Post("/", handler.CreateQuiz)
	}
	r.Route("/{quizID}", func(r chi.Router) {
		r.Get("/", handler.GetQuiz)
		if authMiddleware != nil {
			r.With(authMiddleware, handler.requireEditor).Put("/", handler.UpdateQuiz)
			r.With(authMiddleware, handler.requireEditor).Delete("/", handler.DeleteQuiz)
		} else {
			r.With(handler.requireEditor).Put("/", handler.UpdateQuiz)
			r.With(handler.requireEditor).Delete("/", handler.DeleteQuiz)
		}
	})
}

func (h *QuizHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := parseQuizFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.quizService.List(r.Context(), filter, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list quizzes")
		return
	}

	resp := QuizListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *QuizHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuizID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz, err := h.quizService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch quiz")
		return
	}

	writeJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := parseQuizBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.quizService.Create(r.Context(), quiz)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create quiz")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *QuizHandler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuizID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz, err := parseQuizBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quiz.ID = id

	updated, err := h.quizService.Update(r.Context(), quiz)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update quiz")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *QuizHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := parseQuizID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.quizService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete quiz")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// QuizListResponse is the paginated list response payload.
type QuizListResponse struct {
	Items []types.Quiz `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseQuizID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "quizID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid quiz id")
	}
	return id, nil
}

func parseQuizFilter(r *http.Request) (store.QuizFilter, error) {
	filter := store.QuizFilter{
		Language: strings.TrimSpace(r.URL.Query().Get("language")),
	}
	if filter.Language != "" && !validLanguage(filter.Language) {
		return store.QuizFilter{}, errors.New("invalid language")
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("difficulty")); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 1 {
			return store.QuizFilter{}, errors.New("invalid difficulty")
		}
		filter.DifficultyLevel = level
	}
	return filter, nil
}

func parseQuizBody(r *http.Request) (types.Quiz, error) {
	var quiz types.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		return types.Quiz{}, errors.New("invalid request")
	}

	quiz.Title = strings.TrimSpace(quiz.Title)
	if quiz.Title == "" {
		return types.Quiz{}, errors.New("title is required")
	}
	if quiz.Language != "" && !validLanguage(quiz.Language) {
		return types.Quiz{}, errors.New("invalid language")
	}
	if quiz.DifficultyLevel < 0 {
		return types.Quiz{}, errors.New("invalid difficulty level")
	}
	if quiz.TimeLimit < 0 {
		return types.Quiz{}, errors.New("invalid time limit")
	}
	if quiz.PassingScore < 0 || quiz.PassingScore > 100 {
		return types.Quiz{}, errors.New("invalid passing score")
	}
	return quiz, nil
}

// requireEditor allows only teacher or admin accounts through. The role
// claim in the token is not trusted for writes; the account is reloaded
// so role changes take effect without reissuing tokens.
func (h *QuizHandler) requireEditor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if !editorRole(user.Role) {
			writeError(w, http.StatusForbidden, "access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func editorRole(role string) bool {
	return strings.EqualFold(role, types.RoleTeacher) || strings.EqualFold(role, types.RoleAdmin)
}
