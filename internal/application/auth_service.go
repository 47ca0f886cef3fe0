package application

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// AuthService registers users, verifies credentials and issues/validates
// session tokens. It is the only component that touches password hashes.
type AuthService struct {
	Users          repo.UserRepository
	JWT            *helpers.JWTManager
	Logger         *logrus.Logger
	MinPasswordLen int

	validate *validator.Validate
}

func NewAuthService(users repo.UserRepository, jwt *helpers.JWTManager, logger *logrus.Logger, minPasswordLen int) *AuthService {
	if minPasswordLen <= 0 {
		minPasswordLen = 6
	}
	return &AuthService{
		Users:          users,
		JWT:            jwt,
		Logger:         logger,
		MinPasswordLen: minPasswordLen,
		validate:       validator.New(),
	}
}

// Profile is the public view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newProfile(u *entity.User) *Profile {
	return &Profile{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *Profile
}

// Register creates a user and returns its id.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = entity.NormalizeEmail(email)

	if name == "" {
		return "", invalid("name", "is required")
	}
	if email == "" {
		return "", invalid("email", "is required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", invalid("email", "must be a valid email")
	}
	if utf8.RuneCountInString(password) < s.MinPasswordLen {
		return "", invalid("password", "is too short")
	}
	if len(password) > maxPasswordBytes {
		return "", invalid("password", "is too long")
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return "", s.serverError(ctx, "register", "", err)
	}
	u := &entity.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return "", ErrConflict
		}
		return "", s.serverError(ctx, "register", "", err)
	}
	authMetrics.Add("registered", 1)
	return u.ID, nil
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Users.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			helpers.BurnPasswordCompare(password)
			authMetrics.Add("login_failed", 1)
			return nil, ErrUnauthenticated
		}
		return nil, s.serverError(ctx, "login", "", err)
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		authMetrics.Add("login_failed", 1)
		return nil, ErrUnauthenticated
	}

	token, exp, err := s.JWT.Generate(u.ID)
	if err != nil {
		return nil, s.serverError(ctx, "login", u.ID, err)
	}
	authMetrics.Add("login_ok", 1)
	return &LoginResult{Token: token, ExpiresAt: exp, User: newProfile(u)}, nil
}

// ValidateToken checks a token issued by Login. It never touches the store.
func (s *AuthService) ValidateToken(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := s.JWT.Parse(token)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: claims.UserID}, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, id Identity) (*Profile, error) {
	u, err := s.Users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.serverError(ctx, "me", id.UserID, err)
	}
	return newProfile(u), nil
}

func (s *AuthService) serverError(ctx context.Context, op, userID string, err error) error {
	fields := helpers.RequestFields(ctx)
	fields["operation"] = op
	if userID != "" {
		fields["user_id"] = userID
	}
	helpers.LogError(s.Logger, "auth operation failed", err, fields)
	return ErrServer
}
