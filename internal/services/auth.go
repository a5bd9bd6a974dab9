package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

const minPasswordLength = 8

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg}
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string          `json:"token"`
	Profile  *models.Profile `json:"profile"`
	ExpireAt time.Time       `json:"expire_at"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

func (s *AuthService) Register(req *RegisterRequest) (*LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.Split(email, "@")[0]
	}

	profile := &models.Profile{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if err := s.db.Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return s.issue(profile)
}

func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var profile models.Profile
	if err := s.db.Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(req.Password, profile.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := models.NowUTC()
	profile.LastLogin = &now
	s.db.Model(&profile).UpdateColumn("last_login", now)

	return s.issue(&profile)
}

func (s *AuthService) issue(profile *models.Profile) (*LoginResponse, error) {
	hours := s.jwtConfig.ExpireHour
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateToken(profile.ID, profile.Email, hours)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:    token,
		Profile:  profile,
		ExpireAt: time.Now().Add(time.Duration(hours) * time.Hour),
	}, nil
}

func (s *AuthService) GetProfile(id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile %w", ErrNotFound)
		}
		return nil, err
	}
	return &profile, nil
}

func (s *AuthService) UpdateProfile(id uint, req *UpdateProfileRequest) (*models.Profile, error) {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" || len(name) > 100 {
			return nil, fmt.Errorf("%w: display_name must be 1-100 characters", ErrValidation)
		}
		updates["display_name"] = name
	}
	if req.AvatarURL != nil {
		if len(*req.AvatarURL) > 500 {
			return nil, fmt.Errorf("%w: avatar_url is too long", ErrValidation)
		}
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}

	profile, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return profile, nil
	}
	if err := s.db.Model(profile).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetProfile(id)
}
