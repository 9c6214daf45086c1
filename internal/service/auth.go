package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/auth"
	"tenderportal/internal/logger"
	"tenderportal/internal/policy"
	"tenderportal/models"

	"github.com/sirupsen/logrus"
)

type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	FullName string  `json:"full_name" validate:"required,max=255"`
	Company  *string `json:"company" validate:"omitempty,max=255"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

type AuthService struct {
	store  Store
	tokens *auth.TokenManager
	gate   FeatureGate
}

func NewAuthService(store Store, tokens *auth.TokenManager, gate FeatureGate) *AuthService {
	if gate == nil {
		gate = OpenGate
	}
	return &AuthService{store: store, tokens: tokens, gate: gate}
}

// Register создает учетную запись поставщика.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := checkGate(ctx, s.gate); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in, models.RoleVendor)
}

// RegisterAdmin создает сотрудника-администратора; доступно только администратору.
func (s *AuthService) RegisterAdmin(ctx context.Context, actor policy.Actor, in RegisterInput) (*models.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, apperr.Forbidden()
	}
	return s.createUser(ctx, in, models.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if blank(in.FullName) {
		return nil, apperr.Validation("full_name", "is required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         role,
		IsActive:     true,
	}
	if in.Company != nil && !blank(*in.Company) {
		company := strings.TrimSpace(*in.Company)
		u.Company = &company
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, apperr.Validation("email", "is already registered")
		}
		return nil, apperr.Internal("create user", err)
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id": u.ID,
		"role":    u.Role,
	}).Info("user registered")
	return u, nil
}

// Login проверяет пароль и выдает токен. Для не-администраторов вход
// закрыт, пока лицензия недействительна.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Internal("get user", err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthenticated("incorrect email or password")
	}
	if !u.IsActive {
		return nil, apperr.Unauthenticated("account is deactivated")
	}
	if u.Role != models.RoleAdmin {
		if err := checkGate(ctx, s.gate); err != nil {
			return nil, err
		}
	}

	token, expiresAt, err := s.tokens.Generate(u)
	if err != nil {
		return nil, apperr.Internal("generate token", err)
	}
	logger.FromContext(ctx).WithField("user_id", u.ID).Info("user logged in")
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        u,
	}, nil
}

// Authenticate проверяет токен и заново читает пользователя, чтобы
// деактивация действовала немедленно.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, policy.Actor, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, policy.Actor{}, apperr.Unauthenticated("could not validate credentials")
	}
	u, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, policy.Actor{}, apperr.Unauthenticated("could not validate credentials")
	}
	if err != nil {
		return nil, policy.Actor{}, apperr.Internal("get user", err)
	}
	if !u.IsActive {
		return nil, policy.Actor{}, apperr.Unauthenticated("account is deactivated")
	}
	return u, policy.ActorFromUser(u), nil
}

// EnsureAdmin создает первого администратора, если в системе нет ни одного.
// Возвращает false, если администратор уже существует.
func (s *AuthService) EnsureAdmin(ctx context.Context, in RegisterInput) (bool, error) {
	n, err := s.store.CountAdmins(ctx)
	if err != nil {
		return false, apperr.Internal("count admins", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.createUser(ctx, in, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
