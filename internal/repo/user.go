package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bookly/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserRepo is the user directory. The auth middleware only reads from
// it; writes happen at registration.
type UserRepo struct {
	DB *gorm.DB
}

func (r *UserRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) UserByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", u.Email, u.Username).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrUserExists
	}
	return r.DB.WithContext(ctx).Create(u).Error
}
