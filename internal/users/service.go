package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/security"
)

const minNameLength = 2

// Profile is the caller's own account view.
type Profile struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	Name        string           `json:"name"`
	Role        string           `json:"role"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	Supplier    *ProfileSupplier `json:"supplier"`
}

type ProfileSupplier struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UpdateProfileInput changes the caller's name and optionally password and
// supplier display name. An empty password leaves it unchanged.
type UpdateProfileInput struct {
	Name         string
	Password     string
	SupplierName *string
}

type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Profile, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileService struct {
	repo     Repository
	tx       txRunner
	password config.PasswordConfig
	logg     *logger.Logger
}

func NewProfileService(repo Repository, tx txRunner, password config.PasswordConfig, logg *logger.Logger) (ProfileService, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &profileService{repo: repo, tx: tx, password: password, logg: logg}, nil
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.load(ctx, s.repo, userID)
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Profile, error) {
	name := strings.TrimSpace(input.Name)
	if len([]rune(name)) < minNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must be at least 2 characters").
			WithDetails(map[string]any{"field": "name"})
	}
	var hash *string
	if input.Password != "" {
		if len([]rune(input.Password)) < security.MinPasswordLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters").
				WithDetails(map[string]any{"field": "password"})
		}
		encoded, err := security.HashPassword(input.Password, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		hash = &encoded
	}

	ctx = context.WithoutCancel(s.logg.WithUserID(ctx, userID.String()))
	var profile *Profile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateProfile(ctx, userID, name, hash); err != nil {
			return userLookupError(err)
		}
		if input.SupplierName != nil {
			supplierName := strings.TrimSpace(*input.SupplierName)
			if supplierName != "" {
				supplier, err := repo.FindSupplier(ctx, userID)
				switch {
				case err == nil:
					if err := repo.RenameSupplier(ctx, supplier.ID, supplierName); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename supplier")
					}
				case !errors.Is(err, gorm.ErrRecordNotFound):
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
				}
			}
		}
		loaded, err := s.load(ctx, repo, userID)
		profile = loaded
		return err
	})
	if err != nil {
		return nil, db.TxError(err, "update profile")
	}

	s.logg.Info(s.logg.WithField(ctx, "password_changed", hash != nil), "profile updated")
	return profile, nil
}

func (s *profileService) load(ctx context.Context, repo Repository, userID uuid.UUID) (*Profile, error) {
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}
	profile := &Profile{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role.String(),
		LastLoginAt: user.LastLoginAt,
	}
	supplier, err := repo.FindSupplier(ctx, userID)
	switch {
	case err == nil:
		profile.Supplier = &ProfileSupplier{ID: supplier.ID, Name: supplier.Name}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return profile, nil
}

func userLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
