package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lankalearn/apiserver/config"
	"github.com/lankalearn/apiserver/internal/services"
	"github.com/lankalearn/apiserver/internal/store"
	"github.com/lankalearn/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	stored, ok := f.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	stored.Name = user.Name
	stored.PreferredLanguage = user.PreferredLanguage
	stored.ProfilePicture = user.ProfilePicture
	stored.UpdatedAt = time.Now()
	f.users[user.ID] = stored
	return stored, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) RecordLogin(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	now := time.Now()
	user.LoginCount++
	user.LastLogin = &now
	f.users[id] = user
	return user, nil
}

// fakeProgressRepo is an in-memory services.ProgressRepository.
type fakeProgressRepo struct {
	summary   types.ProgressSummary
	err       error
	completed []types.CompletedQuiz
	gaps      []types.KnowledgeGap
	favorites []types.QuizSummary
	favorited map[int]bool
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{favorited: make(map[int]bool)}
}

func (f *fakeProgressRepo) RecordResult(ctx context.Context, userID int, result types.QuizResult, countRetakes bool) (types.ProgressSummary, error) {
	return f.summary, f.err
}

func (f *fakeProgressRepo) ListCompleted(ctx context.Context, userID int) ([]types.CompletedQuiz, error) {
	return f.completed, f.err
}

func (f *fakeProgressRepo) ListKnowledgeGaps(ctx context.Context, userID int) ([]types.KnowledgeGap, error) {
	return f.gaps, f.err
}

func (f *fakeProgressRepo) ToggleFavorite(ctx context.Context, userID, quizID int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.favorited[quizID] = !f.favorited[quizID]
	return f.favorited[quizID], nil
}

func (f *fakeProgressRepo) ListFavorites(ctx context.Context, userID int) ([]types.QuizSummary, error) {
	return f.favorites, f.err
}

// fakeQuizRepo is an in-memory services.QuizRepository.
type fakeQuizRepo struct {
	nextID  int
	quizzes map[int]types.Quiz
}

func newFakeQuizRepo() *fakeQuizRepo {
	return &fakeQuizRepo{nextID: 1, quizzes: make(map[int]types.Quiz)}
}

func (f *fakeQuizRepo) List(ctx context.Context, filter store.QuizFilter, offset, limit int) ([]types.Quiz, int, error) {
	items := make([]types.Quiz, 0, len(f.quizzes))
	for _, quiz := range f.quizzes {
		if filter.Language != "" && quiz.Language != filter.Language {
			continue
		}
		if filter.DifficultyLevel != 0 && quiz.DifficultyLevel != filter.DifficultyLevel {
			continue
		}
		items = append(items, quiz)
	}
	return items, len(items), nil
}

func (f *fakeQuizRepo) Get(ctx context.Context, id int) (types.Quiz, error) {
	quiz, ok := f.quizzes[id]
	if !ok {
		return types.Quiz{}, store.ErrNotFound
	}
	return quiz, nil
}

func (f *fakeQuizRepo) Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	quiz.ID = f.nextID
	f.nextID++
	f.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (f *fakeQuizRepo) Update(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	if _, ok := f.quizzes[quiz.ID]; !ok {
		return types.Quiz{}, store.ErrNotFound
	}
	f.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (f *fakeQuizRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.quizzes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.quizzes, id)
	return nil
}

// testEnv bundles the router and fakes for a handler test.
type testEnv struct {
	router       *chi.Mux
	userRepo     *fakeUserRepo
	progressRepo *fakeProgressRepo
	quizRepo     *fakeQuizRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	progressRepo := newFakeProgressRepo()
	quizRepo := newFakeQuizRepo()

	userService := services.NewUserService(userRepo)
	progressService := services.NewProgressService(progressRepo, nil, config.ProgressConfig{CountRetakes: true})
	quizService := services.NewQuizService(quizRepo)

	router := chi.NewRouter()
	router.Route("/api/user", func(r chi.Router) {
		UserRouter(r, userService, progressService, nil, testJWTSecret)
	})
	router.Route("/api/quizzes", func(r chi.Router) {
		QuizRouter(r, quizService, userService, RequireAuth(testJWTSecret))
	})

	return &testEnv{
		router:       router,
		userRepo:     userRepo,
		progressRepo: progressRepo,
		quizRepo:     quizRepo,
	}
}

// seedUser inserts an account directly and returns it with a valid token.
func (e *testEnv) seedUser(t *testing.T, email, password, role string) (types.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := e.userRepo.Create(context.Background(), types.User{
		Name:              "Test User",
		Email:             email,
		PasswordHash:      string(hashed),
		PreferredLanguage: types.LanguageEnglish,
		Role:              role,
		CurrentLevel:      1,
		IsActive:          true,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	token, err := issueToken(user.ID, user.Role, []byte(testJWTSecret), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
