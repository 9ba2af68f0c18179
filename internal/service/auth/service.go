package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campusmatch/backend/internal/app"
	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/repository"
	"github.com/campusmatch/backend/internal/token"
)

// RegisterInput carries the fields accepted at signup.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Bio       string
	Major     string
	Campus    string
	Age       int
}

// Service implements account signup and login. Hashing and token signing
// are delegated to bcrypt and the token service.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	tokens *token.Service
}

// NewAuthService creates a new auth service with dependencies from AppContext.
func NewAuthService(appCtx *app.AppContext, tokens *token.Service) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		tokens: tokens,
	}
}

// Register creates an account and returns it with a fresh access token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*db.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, "", apperr.Validation("fields_required", "username, email and password are required")
	}
	if len(in.Password) < 8 {
		return nil, "", apperr.Validation("password_too_short", "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	user := &db.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Bio:          in.Bio,
		Major:        in.Major,
		Campus:       in.Campus,
		Age:          in.Age,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", apperr.Conflict("account_exists", "username or email already in use")
		}
		return nil, "", apperr.Map(err)
	}

	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	s.appCtx.Logger.Info("account created", "user", user.ID, "username", user.Username)
	return user, tok, nil
}

// Login verifies credentials and returns the account with a fresh access
// token. Unknown users, wrong passwords and deactivated accounts all yield
// the same rejection.
func (s *Service) Login(ctx context.Context, username, password string) (*db.User, string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.Unauthenticated("bad_credentials", "invalid username or password")
	} else if err != nil {
		return nil, "", apperr.Map(err)
	}

	if !user.Active {
		return nil, "", apperr.Unauthenticated("bad_credentials", "invalid username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", apperr.Unauthenticated("bad_credentials", "invalid username or password")
	}

	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return user, tok, nil
}
