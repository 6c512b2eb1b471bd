package services

import (
	"context"
	"strings"

	"github.com/lankalearn/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	RecordLogin(ctx context.Context, id int) (types.User, error)
}

// ProfileUpdate carries the optional profile fields of a partial update.
// An empty string means "not provided" and leaves the stored value
// untouched.
type ProfileUpdate struct {
	Name              string
	PreferredLanguage string
	ProfilePicture    string
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Create persists a new account. The caller hashes the password before
// this call; the service and store only ever see the hash.
func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = types.RoleStudent
	}
	if user.PreferredLanguage == "" {
		user.PreferredLanguage = types.LanguageEnglish
	}
	if user.ProfilePicture == "" {
		user.ProfilePicture = "default-profile.png"
	}
	if user.CurrentLevel == 0 {
		user.CurrentLevel = 1
	}
	user.IsActive = true
	return s.repo.Create(ctx, user)
}

// UpdateProfile applies a partial update: only non-empty fields of the
// update overwrite the stored profile.
func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Name != "" {
		user.Name = update.Name
	}
	if update.PreferredLanguage != "" {
		user.PreferredLanguage = update.PreferredLanguage
	}
	if update.ProfilePicture != "" {
		user.ProfilePicture = update.ProfilePicture
	}

	return s.repo.UpdateProfile(ctx, user)
}

// UpdatePassword replaces the stored credential hash.
func (s *UserService) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

// RecordLogin bumps login statistics after a successful authentication.
func (s *UserService) RecordLogin(ctx context.Context, id int) (types.User, error) {
	return s.repo.RecordLogin(ctx, id)
}
