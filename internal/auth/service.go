package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/users"
	pkgauth "github.com/avoronkov/laptopshop-backend/pkg/auth"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	"github.com/avoronkov/laptopshop-backend/pkg/db"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

// LoginInput is a verified external identity. Credential checks happen with
// the identity provider before this service is reached.
type LoginInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=200"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// Session is the result of a login: the user plus their bearer token.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Service exchanges verified identities for application sessions.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*Session, error)
}

type service struct {
	repo users.UsersRepository
	cfg  config.JWTConfig
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the auth service.
func NewService(repo users.UsersRepository, cfg config.JWTConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, cfg: cfg, logg: logg, now: time.Now}, nil
}

// Login finds or creates the profile behind the verified identity and mints
// a session token for it.
func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.repo.Create(ctx, &models.User{
			Email: email,
			Name:  input.Name,
			Phone: input.Phone,
		})
		if err != nil && db.IsUniqueViolation(err, "") {
			// simultaneous first login, the other request won the insert
			user, err = s.repo.FindByEmail(ctx, email)
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve user")
	}

	token, err := pkgauth.MintSessionToken(s.cfg, s.now().UTC(), user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")
	return &Session{User: user, Token: token}, nil
}
