package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	UpdateAdmin(ctx context.Context, id string, name, email, mobile, passwordHash *string) (bool, error)
	DeleteAdmin(ctx context.Context, id string) (bool, error)
}

type adminSlotRepository interface {
	ListForAdminByAvailability(ctx context.Context, adminID string, onlyAvailable bool) ([]models.Slot, error)
}

// CreateAdminRequest is the superadmin payload for onboarding an admin.
type CreateAdminRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Mobile   string `json:"mobile" validate:"omitempty,min=6"`
}

// UpdateAdminRequest carries optional admin profile changes.
type UpdateAdminRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Mobile   *string `json:"mobile"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

// AdminService covers the superadmin's management of admin accounts and
// their slot inventories.
type AdminService struct {
	users     adminUserRepository
	slots     adminSlotRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminService constructs AdminService.
func NewAdminService(users adminUserRepository, slots adminSlotRepository, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, slots: slots, validator: validate, logger: logger}
}

// Create onboards a new admin account.
func (s *AdminService) Create(ctx context.Context, req CreateAdminRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email already in use")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	admin := &models.User{Name: req.Name, Email: &req.Email, PasswordHash: string(hash), Role: models.RoleAdmin}
	if req.Mobile != "" {
		admin.Mobile = &req.Mobile
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}
	return admin, nil
}

// List returns all admin accounts.
func (s *AdminService) List(ctx context.Context) ([]models.User, error) {
	admins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admins")
	}
	return admins, nil
}

// Get loads one admin account.
func (s *AdminService) Get(ctx context.Context, id string) (*models.User, error) {
	admin, err := s.users.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admin not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin")
	}
	if admin.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "admin not found")
	}
	return admin, nil
}

// Update applies the non-nil fields of the request to an admin account.
func (s *AdminService) Update(ctx context.Context, id string, req UpdateAdminRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}

	var passwordHash *string
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		hashed := string(hash)
		passwordHash = &hashed
	}

	ok, err := s.users.UpdateAdmin(ctx, id, req.Name, req.Email, req.Mobile, passwordHash)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update admin")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "admin not found")
	}
	return s.Get(ctx, id)
}

// Delete removes an admin account.
func (s *AdminService) Delete(ctx context.Context, id string) error {
	ok, err := s.users.DeleteAdmin(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete admin")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "admin not found")
	}
	return nil
}

// ListSlots returns an admin's slots, optionally only the still-available
// ones.
func (s *AdminService) ListSlots(ctx context.Context, adminID string, onlyAvailable bool) ([]models.Slot, error) {
	if _, err := s.Get(ctx, adminID); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListForAdminByAvailability(ctx, adminID, onlyAvailable)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}
