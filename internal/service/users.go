package service

import (
	"context"
	"errors"
	"strings"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/logger"
	"tenderportal/internal/policy"
	"tenderportal/models"

	"github.com/sirupsen/logrus"
)

// UpdateUserInput: изменяемые администратором поля. Роль не меняется.
type UpdateUserInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Company  *string `json:"company" validate:"omitempty,max=255"`
	IsActive *bool   `json:"is_active"`
}

type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) List(ctx context.Context, actor policy.Actor, p Page) ([]models.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, apperr.Forbidden()
	}
	p = p.Normalize()
	users, err := s.store.ListUsers(ctx, p.Limit, p.Offset)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return users, nil
}

func (s *UserService) Update(ctx context.Context, actor policy.Actor, id int64, in UpdateUserInput) (*models.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, apperr.Forbidden()
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, apperr.Internal("get user", err)
	}

	if in.FullName != nil {
		if blank(*in.FullName) {
			return nil, apperr.Validation("full_name", "is required")
		}
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Company != nil {
		company := strings.TrimSpace(*in.Company)
		u.Company = &company
		if company == "" {
			u.Company = nil
		}
	}
	if in.IsActive != nil {
		if !*in.IsActive && u.ID == actor.UserID {
			return nil, apperr.Validation("is_active", "you cannot deactivate yourself")
		}
		u.IsActive = *in.IsActive
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal("update user", err)
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":   u.ID,
		"is_active": u.IsActive,
	}).Info("user updated")
	return u, nil
}
