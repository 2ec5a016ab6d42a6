// Package account is the credential store: registration, password checks and
// user lookup.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"perfect_vault/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MaxPasswordBytes is the longest password bcrypt can hash
const MaxPasswordBytes = 72

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordTooLong    = errors.New("password too long")
)

// RegisterInput carries the registration form
type RegisterInput struct {
	Email    string
	Name     string
	Details  string
	Password string
}

// Store persists users
type Store struct {
	db     *gorm.DB
	admins map[string]bool
	cost   int
}

// NewStore creates a credential store. Users registering with one of adminEmails
// receive the admin role.
func NewStore(db *gorm.DB, adminEmails []string) *Store {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		if email = strings.TrimSpace(email); email != "" {
			admins[email] = true
		}
	}
	return &Store{db: db, admins: admins, cost: bcrypt.DefaultCost}
}

// Register hashes the password and creates the user
func (s *Store) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if len(in.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	var existing int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := domain.RoleUser
	if s.admins[in.Email] {
		role = domain.RoleAdmin
	}
	user := &domain.User{
		Email:    in.Email,
		Name:     in.Name,
		Details:  in.Details,
		Password: string(hash),
		Role:     role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken // Lost a race with a concurrent registration
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user whose email and password match
func (s *Store) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get loads a user by id
func (s *Store) Get(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// List returns every user ordered by id
func (s *Store) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
