package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/circuit-studio/engine/internal/models"
	"github.com/circuit-studio/engine/internal/repository"
	appErr "github.com/circuit-studio/engine/pkg/errors"
)

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	hmacSecret []byte
}

func NewAuthService(userRepo repository.UserRepository, secret []byte) AuthService {
	return &authService{
		userRepo:   userRepo,
		hmacSecret: secret,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	ph, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(ph),
		Name:         name,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.userRepo.GetByEmail(ctx, email, &user); err != nil {
		return "", nil, appErr.New(appErr.CodeUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, appErr.New(appErr.CodeUnauthorized, "invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", nil, appErr.Wrap(err, appErr.CodeInternal, "sign token failed")
	}

	return tokenString, &user, nil
}
