package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/entity"
	"storefront/internal/repository"
)

type UserStore interface {
	GetUserByID(ctx context.Context, id int) (*entity.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) (*entity.User, error)
	GetUsers(ctx context.Context) ([]*entity.User, error)
	CountUsers(ctx context.Context) (int, error)
	SetAdmin(ctx context.Context, id int) error
}

// SessionStore keeps the token of the current session of each user. Get returns
// an empty token when the user has no session.
type SessionStore interface {
	Save(ctx context.Context, userID int, token string, ttl time.Duration) error
	Get(ctx context.Context, userID int) (string, error)
	Delete(ctx context.Context, userID int) error
}

// JwtCustomClaims is the payload of a session token.
type JwtCustomClaims struct {
	UserID int    `json:"uid"`
	Name   string `json:"name"`
	Admin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

type UserService struct {
	repo      UserStore
	sessions  SessionStore
	jwtSecret []byte
	tokenTTL  time.Duration
	nowFunc   func() time.Time
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo UserStore, sessions SessionStore, jwtSecret []byte, tokenTTL time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		nowFunc:   time.Now,
	}
}

// Register creates a customer account. The first account ever created is an administrator.
func (s *UserService) Register(ctx context.Context, user *entity.User, password string) (*entity.User, error) {
	user.Phone = strings.TrimSpace(user.Phone)
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	if user.Phone == "" || user.Email == "" || password == "" {
		return nil, fail(ErrValidation, "phone, email and password are required")
	}

	if _, err := s.repo.GetUserByPhone(ctx, user.Phone); err == nil {
		return nil, fail(ErrConflict, "phone number already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.Error().Err(err).Msg("Error checking phone number")
		return nil, err
	}

	if _, err := s.repo.GetUserByEmail(ctx, user.Email); err == nil {
		return nil, fail(ErrConflict, "email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.Error().Err(err).Msg("Error checking email")
		return nil, err
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error counting users")
		return nil, err
	}
	user.IsAdmin = count == 0

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = string(hash)
	user.CreatedAt = s.nowFunc().UTC()

	createdUser, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent registration
			return nil, fail(ErrConflict, "phone number or email already registered")
		}
		logger.Error().Err(err).Msg("Error creating user")
		return nil, err
	}

	logger.Info().Int("user_id", createdUser.ID).Bool("admin", createdUser.IsAdmin).Msg("User registered")
	return createdUser, nil
}

// Login checks the phone and password and opens a new session, replacing the previous one.
func (s *UserService) Login(ctx context.Context, phone, password string) (string, *entity.User, error) {
	user, err := s.repo.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, fail(ErrUnauthorized, "incorrect phone number or password")
		}
		logger.Error().Err(err).Msg("Error getting user by phone")
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fail(ErrUnauthorized, "incorrect phone number or password")
	}

	now := s.nowFunc()
	claims := &JwtCustomClaims{
		UserID: user.ID,
		Name:   user.Name,
		Admin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := tkn.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	if err := s.sessions.Save(ctx, user.ID, t, s.tokenTTL); err != nil {
		logger.Error().Err(err).Msgf("Error storing session of user %d", user.ID)
		return "", nil, err
	}

	return t, user, nil
}

// ValidateSession accepts a token only while it is the stored session of its user.
func (s *UserService) ValidateSession(ctx context.Context, userID int, token string) error {
	stored, err := s.sessions.Get(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting session of user %d", userID)
		return err
	}
	if stored == "" || stored != token {
		return fail(ErrUnauthorized, "session expired")
	}
	return nil
}

func (s *UserService) Logout(ctx context.Context, userID int) error {
	return s.sessions.Delete(ctx, userID)
}

func (s *UserService) GetUserByID(ctx context.Context, id int) (*entity.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrNotFound, "user not found")
		}
		logger.Error().Err(err).Msgf("Error getting user by ID %d", id)
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*entity.User, error) {
	users, err := s.repo.GetUsers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing users")
		return nil, err
	}
	return users, nil
}

// PromoteToAdmin grants admin rights. They apply from the user's next login.
func (s *UserService) PromoteToAdmin(ctx context.Context, id int) error {
	err := s.repo.SetAdmin(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(ErrNotFound, "user not found")
		}
		logger.Error().Err(err).Msgf("Error promoting user %d", id)
		return err
	}

	logger.Info().Int("user_id", id).Msg("User promoted to admin")
	return nil
}
