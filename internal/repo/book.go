package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bookly/internal/models"
)

var ErrBookNotFound = errors.New("book not found")

type BookRepo struct {
	DB *gorm.DB
}

func (r *BookRepo) List(ctx context.Context, offset, limit int) ([]models.Book, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var books []models.Book
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *BookRepo) ByUID(ctx context.Context, uid string) (*models.Book, error) {
	var book models.Book
	if err := r.DB.WithContext(ctx).Where("uid = ?", uid).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (r *BookRepo) Create(ctx context.Context, b *models.Book) error {
	return r.DB.WithContext(ctx).Create(b).Error
}

func (r *BookRepo) Save(ctx context.Context, b *models.Book) error {
	return r.DB.WithContext(ctx).Save(b).Error
}

func (r *BookRepo) Delete(ctx context.Context, uid string) error {
	result := r.DB.WithContext(ctx).Delete(&models.Book{}, "uid = ?", uid)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}
