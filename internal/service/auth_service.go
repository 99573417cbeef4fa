package service

import (
	"errors"

	"carmeet/config"
	"carmeet/internal/auth"
	"carmeet/internal/models"
	"carmeet/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
)

type AuthService struct {
	cfg         *config.Config
	userRepo    *repository.UserRepository
	profileRepo *repository.ProfileRepository
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, profileRepo *repository.ProfileRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, profileRepo: profileRepo}
}

// Register creates the account and its map profile in one go; the profile
// starts with default visibility and whatever identity fields were provided.
func (s *AuthService) Register(email, password string, username, displayName *string) (*models.User, auth.TokenPair, error) {
	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, auth.TokenPair{}, ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.TokenPair{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, auth.TokenPair{}, err
	}
	p := &models.Profile{
		ID:          u.ID,
		Username:    username,
		DisplayName: displayName,
	}
	if err := s.profileRepo.Upsert(p); err != nil {
		return nil, auth.TokenPair{}, err
	}
	tokens, err := auth.IssueTokens(&s.cfg.JWT, u.ID, u.Email)
	if err != nil {
		return u, auth.TokenPair{}, err
	}
	return u, tokens, nil
}

func (s *AuthService) Login(email, password string) (*models.User, auth.TokenPair, error) {
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCreds
		}
		return nil, auth.TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, auth.TokenPair{}, ErrInvalidCreds
	}
	tokens, err := auth.IssueTokens(&s.cfg.JWT, u.ID, u.Email)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return u, tokens, nil
}

// RefreshToken rotates the pair: both tokens are reissued from a valid
// refresh token.
func (s *AuthService) RefreshToken(refreshToken string) (auth.TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return auth.TokenPair{}, auth.ErrInvalidToken
	}
	return auth.IssueTokens(&s.cfg.JWT, u.ID, u.Email)
}
