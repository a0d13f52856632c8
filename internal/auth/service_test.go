package auth

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/users"
	pkgauth "github.com/avoronkov/laptopshop-backend/pkg/auth"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

type stubUsersRepo struct {
	byEmail   map[string]*models.User
	creates   int
	createErr error
	// raceWinner is stored when Create fails, simulating the row a
	// concurrent request inserted first
	raceWinner *models.User
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) users.UsersRepository { return s }

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.creates++
	if s.createErr != nil {
		if s.raceWinner != nil {
			s.byEmail[s.raceWinner.Email] = s.raceWinner
		}
		return nil, s.createErr
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUsersRepo) Save(ctx context.Context, user *models.User) (*models.User, error) {
	s.byEmail[user.Email] = user
	return user, nil
}

func newAuthService(t *testing.T, repo users.UsersRepository) (Service, config.JWTConfig) {
	t.Helper()
	cfg := config.JWTConfig{Secret: "secret", Issuer: "laptopshop", ExpirationMinutes: 30}
	svc, err := NewService(repo, cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, cfg
}

func TestLoginCreatesProfileOnFirstUse(t *testing.T) {
	repo := newStubUsersRepo()
	svc, cfg := newAuthService(t, repo)

	session, err := svc.Login(context.Background(), LoginInput{Email: "Ivan@Example.com", Name: "Ivan"})
	require.NoError(t, err)
	require.Equal(t, "ivan@example.com", session.User.Email)
	require.Equal(t, 1, repo.creates)

	claims, err := pkgauth.ParseSessionToken(cfg, session.Token)
	require.NoError(t, err)
	require.Equal(t, session.User.ID, claims.UserID)
}

func TestLoginReusesExistingProfile(t *testing.T) {
	repo := newStubUsersRepo()
	svc, _ := newAuthService(t, repo)

	first, err := svc.Login(context.Background(), LoginInput{Email: "ivan@example.com"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), LoginInput{Email: "ivan@example.com"})
	require.NoError(t, err)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, 1, repo.creates)
}

func TestLoginRequiresEmail(t *testing.T) {
	repo := newStubUsersRepo()
	svc, _ := newAuthService(t, repo)

	_, err := svc.Login(context.Background(), LoginInput{Email: "   "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLoginRecoversFromConcurrentFirstLogin(t *testing.T) {
	repo := newStubUsersRepo()
	svc, _ := newAuthService(t, repo)

	// the insert loses the race, the winner's row must be picked up
	repo.raceWinner = &models.User{ID: uuid.New(), Email: "ivan@example.com"}
	repo.createErr = errors.New(`duplicate key value violates unique constraint "users_email_key"`)

	session, err := svc.Login(context.Background(), LoginInput{Email: "ivan@example.com"})
	require.NoError(t, err)
	require.Equal(t, repo.raceWinner.ID, session.User.ID)
	require.Equal(t, 1, repo.creates)
}
