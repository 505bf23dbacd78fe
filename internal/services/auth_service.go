package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ssuzuki-dev/enquete/internal/models"
)

type AuthStore interface {
	FindUserByUsername(username string) (*models.User, error)
	AddUser(u *models.User) error
	UpdateUserPassword(id string, hash []byte) error
}

type TokenSigner func(uid, username, role string, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	idGen     func(prefix string, n int) string
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func NewAuthService(store AuthStore, signer TokenSigner) *AuthService {
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     func(prefix string, n int) string { return prefix + shortID(n) },
		signToken: signer,
		tokenTTL:  24 * time.Hour,
	}
}

// Register creates a staff account with the viewer role and logs it in.
// Role upgrades are an admin action, never self-service.
func (s *AuthService) Register(username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("username/password required")
	}
	existing, err := s.store.FindUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("username is already taken")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:        s.idGen("u", 7),
		Username:  username,
		PassHash:  hash,
		Role:      models.RoleViewer,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(u); err != nil {
		return nil, err
	}
	return s.login(u)
}

func (s *AuthService) Login(username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("username/password required")
	}
	u, err := s.store.FindUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	return s.login(u)
}

func (s *AuthService) login(u *models.User) (*AuthResult, error) {
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.ID, u.Username, u.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(username, current, next string) error {
	if strings.TrimSpace(next) == "" {
		return NewInvalidError("new password required")
	}
	u, err := s.store.FindUserByUsername(username)
	if err != nil {
		return err
	}
	if u == nil {
		return NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(current)); err != nil {
		return NewUnauthorizedError("current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.UpdateUserPassword(u.ID, hash)
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// SetTokenTTL overrides the default token lifetime. Non-positive values are
// ignored.
func (s *AuthService) SetTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
}
