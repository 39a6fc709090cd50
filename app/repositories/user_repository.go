package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/foodle-app/foodle/app/models"
)

// UserRepository stores credentials and profiles.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount fails with ErrDuplicate when the email is taken.
func (r *UserRepository) CreateAccount(ctx context.Context, a *models.Account) error {
	a.Email = normalizeEmail(a.Email)
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *UserRepository) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	var a models.Account
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&a).Error
	return a, translate(err)
}

func (r *UserRepository) FindAccountByProvider(ctx context.Context, provider, providerUserID string) (models.Account, error) {
	var a models.Account
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&a).Error
	return a, translate(err)
}

// LinkProvider records the external identity on an account that has none
// yet. It returns ErrNotFound if the account is gone or already linked.
func (r *UserRepository) LinkProvider(ctx context.Context, accountID, provider, providerUserID string) error {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND (provider_user_id IS NULL OR provider_user_id = '')", accountID).
		Updates(map[string]any{"provider": provider, "provider_user_id": providerUserID})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateProfile fails with ErrDuplicate when the profile already exists.
func (r *UserRepository) CreateProfile(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	return u, translate(err)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error
	return u, translate(err)
}
