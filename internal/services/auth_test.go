package services

import (
	"errors"
	"testing"

	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/testutil"
	"github.com/onboardhub/backend/internal/utils"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	utils.SetJWTSecret("auth-test-secret")
	return NewAuthService(testutil.NewDB(t), &config.JWTConfig{ExpireHour: 2})
}

func TestAuthRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)

	reg, err := svc.Register(&RegisterRequest{Email: " Ada@Example.com ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Profile.Email != "ada@example.com" {
		t.Errorf("Email = %q, expected normalised", reg.Profile.Email)
	}
	if reg.Profile.DisplayName != "ada" {
		t.Errorf("DisplayName = %q, expected default from email", reg.Profile.DisplayName)
	}

	claims, err := utils.ParseToken(reg.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != reg.Profile.ID {
		t.Errorf("token UserID = %d, expected %d", claims.UserID, reg.Profile.ID)
	}

	login, err := svc.Login(&LoginRequest{Email: "ADA@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.Profile.ID != reg.Profile.ID {
		t.Errorf("login profile = %d, expected %d", login.Profile.ID, reg.Profile.ID)
	}
	if login.Profile.LastLogin == nil {
		t.Error("LastLogin should be set")
	}
}

func TestAuthRegister_Rejections(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register(&RegisterRequest{Email: "taken@example.com", Password: "password1"}); err != nil {
		t.Fatalf("seed Register() error = %v", err)
	}

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"duplicate email", RegisterRequest{Email: "TAKEN@example.com", Password: "password1"}, ErrEmailTaken},
		{"short password", RegisterRequest{Email: "new@example.com", Password: "short"}, ErrValidation},
		{"bad email", RegisterRequest{Email: "nope", Password: "password1"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(&tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthLogin_InvalidCredentials(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register(&RegisterRequest{Email: "bob@example.com", Password: "password1"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []LoginRequest{
		{Email: "bob@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "password1"},
	}
	for _, req := range tests {
		if _, err := svc.Login(&req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s) error = %v, expected ErrInvalidCredentials", req.Email, err)
		}
	}
}

func TestAuthUpdateProfile(t *testing.T) {
	svc := newAuthService(t)
	reg, err := svc.Register(&RegisterRequest{Email: "cat@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	name := "Cat Stevens"
	avatar := "https://cdn.example.com/cat.png"
	p, err := svc.UpdateProfile(reg.Profile.ID, &UpdateProfileRequest{DisplayName: &name, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if p.DisplayName != name || p.AvatarURL != avatar {
		t.Errorf("profile = %+v", p)
	}

	blank := "  "
	if _, err := svc.UpdateProfile(reg.Profile.ID, &UpdateProfileRequest{DisplayName: &blank}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank display name error = %v, expected ErrValidation", err)
	}

	if _, err := svc.GetProfile(424242); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProfile(missing) error = %v, expected ErrNotFound", err)
	}
}
