package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/db"
)

const (
	MsgMissingCredentials = "Please enter both email and password!"
	MsgInvalidCredentials = "Invalid email or password!"
	MsgLoginSuccessful    = "Login successful"
	MsgRegisterMissing    = "Provide fullname, email, password"
	MsgEmailTaken         = "Email already registered"
	MsgRegistered         = "User registered"
	MsgServerError        = "Server error"
)

// Querier is the user storage used by the service.
type Querier interface {
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
}

// Service checks operator credentials. Login is session-less: a successful
// check only answers success and issues no token.
type Service struct {
	queries Querier
	hasher  Hasher
}

// Config configures the auth service.
type Config struct {
	Queries  Querier
	HashAlgo string
}

// User is the safe subset of a stored user.
type User struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// NewService constructs a Service instance.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	return &Service{queries: cfg.Queries, hasher: Hasher{Algo: cfg.HashAlgo}}, nil
}

// Register creates a new operator account.
func (s *Service) Register(ctx context.Context, fullname, email, password string) (User, error) {
	fullname = strings.TrimSpace(fullname)
	email = strings.TrimSpace(email)
	if fullname == "" || email == "" || password == "" {
		return User{}, common.NewAppError(common.CodeValidation, MsgRegisterMissing, http.StatusBadRequest, nil)
	}
	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return User{}, common.NewAppError(common.CodeConflict, MsgEmailTaken, http.StatusBadRequest, nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, common.NewAppError(common.CodeInternal, "DB error", http.StatusInternalServerError, fmt.Errorf("lookup user: %w", err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, common.NewAppError(common.CodeInternal, MsgServerError, http.StatusInternalServerError, fmt.Errorf("hash password: %w", err))
	}
	created, err := s.queries.CreateUser(ctx, db.CreateUserParams{
		Fullname: fullname,
		Email:    email,
		Password: hash,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, common.NewAppError(common.CodeConflict, MsgEmailTaken, http.StatusBadRequest, err)
		}
		return User{}, common.NewAppError(common.CodeInternal, "DB insert error", http.StatusInternalServerError, fmt.Errorf("create user: %w", err))
	}
	return User{ID: created.ID, Fullname: created.Fullname, Email: created.Email}, nil
}

// Login verifies email and password against the stored hash.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, common.NewAppError(common.CodeValidation, MsgMissingCredentials, http.StatusOK, nil)
	}
	u, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, common.NewAppError(common.CodeInvalidCredentials, MsgInvalidCredentials, http.StatusOK, nil)
		}
		return User{}, common.NewAppError(common.CodeInternal, "Database error", http.StatusInternalServerError, fmt.Errorf("lookup user: %w", err))
	}
	ok, err := s.hasher.Verify(password, u.Password)
	if err != nil {
		return User{}, common.NewAppError(common.CodeInternal, MsgServerError, http.StatusInternalServerError, fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return User{}, common.NewAppError(common.CodeInvalidCredentials, MsgInvalidCredentials, http.StatusOK, nil)
	}
	return User{ID: u.ID, Fullname: u.Fullname, Email: u.Email}, nil
}
