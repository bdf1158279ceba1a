package userController

import (
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"bptracker/internal/repositories"
	"bptracker/internal/services"
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrLoginTaken         = errors.New("login is already registered")
)

// Session is what a successful login hands back to the transport layer.
type Session struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

type UserController struct {
	userRepo           repositories.UserRepository
	sessionService     *services.SessionService
	transactionService *services.TransactionService
	log                logger.Logger
}

func New(
	userRepo repositories.UserRepository,
	sessionService *services.SessionService,
	transactionService *services.TransactionService,
) *UserController {
	return &UserController{
		userRepo:           userRepo,
		sessionService:     sessionService,
		transactionService: transactionService,
		log:                logger.New("UserController"),
	}
}

func (uc *UserController) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	log := uc.log.Function("Register")
	login := NormalizeLogin(req.Login)

	user := &User{
		Login:       login,
		Email:       req.Email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Password:    req.Password,
	}
	if user.DisplayName == "" {
		user.DisplayName = login
	}

	err := uc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		_, err := uc.userRepo.GetByLogin(txCtx, login)
		switch {
		case err == nil:
			return ErrLoginTaken
		case !errors.Is(err, ErrNotFound):
			return err
		}

		return uc.userRepo.Create(txCtx, user)
	})
	// A concurrent registration can pass the lookup and lose on the unique
	// index instead.
	if errors.Is(err, ErrLoginTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrLoginTaken
	}
	if err != nil {
		return nil, log.Err("failed to register user", err, "login", login)
	}

	log.Info("Registered user", "userID", user.ID)
	return user, nil
}

func (uc *UserController) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	log := uc.log.Function("Login")
	login := NormalizeLogin(req.Login)

	user, err := uc.userRepo.GetByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, log.Err("failed to look up user", err, "login", login)
	}

	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := uc.sessionService.Issue(user.ID)
	if err != nil {
		return nil, log.Err("failed to issue session", err, "userID", user.ID)
	}

	return &Session{User: *user, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session token to its user.
func (uc *UserController) Authenticate(ctx context.Context, token string) (*User, error) {
	userID, err := uc.sessionService.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, services.ErrInvalidToken
	}
	if err != nil {
		return nil, uc.log.Function("Authenticate").Err("failed to load session user", err, "userID", userID)
	}

	return user, nil
}

func (uc *UserController) GetByID(ctx context.Context, id string) (*User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, uc.log.Function("GetByID").Err("failed to get user", err, "userID", id)
	}

	return user, nil
}
