package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/voc-service/internal/auth"
	"github.com/spec-kit/voc-service/internal/config"
	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/repository"
	"github.com/spec-kit/voc-service/pkg/util"
)

var errInvalidCredentials = util.NewUnauthorized("invalid credentials")

// AuthService handles staff login and account provisioning.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	hasher   *auth.PasswordHasher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokenMgr: tokens, hasher: auth.NewPasswordHasher(cfg)}
}

// LoginResult carries the issued token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Login authenticates a staff member by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, errInvalidCredentials
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		return nil, errInvalidCredentials
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// CreateUserCommand provisions a staff account.
type CreateUserCommand struct {
	Name     string
	Email    string
	Password string
	Role     domain.UserRole
}

// CreateUser hashes the password and stores a new active account.
func (s *AuthService) CreateUser(ctx context.Context, cmd CreateUserCommand) (*domain.User, error) {
	name := strings.TrimSpace(cmd.Name)
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	switch {
	case name == "" || len(name) > domain.CustomerNameMaxLength:
		return nil, domain.NewValidationError("name", "must be between 1 and 100 characters")
	case !util.IsEmail(email) || len(email) > domain.CustomerEmailMaxLength:
		return nil, domain.NewValidationError("email", "must be a valid email address")
	case len(cmd.Password) < auth.MinPasswordLength:
		return nil, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	case !cmd.Role.Valid():
		return nil, domain.NewValidationError("role", "must be one of ADMIN, MANAGER, OPERATOR")
	}

	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         cmd.Role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
