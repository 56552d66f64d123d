package repository

import (
	"context"

	"yamdb/internal/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository interface {
	ListByTitle(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error)
	GetByTitle(ctx context.Context, titleID, reviewID int64) (*models.Review, error)
	ExistsByTitleAndAuthor(ctx context.Context, titleID, authorID int64) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, reviewID int64) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// ListByTitle returns reviews newest first
func (r *reviewRepository) ListByTitle(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Review{}).Where("title_id = ?", titleID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Where("title_id = ?", titleID).
		Preload("Author").
		Order("pub_date DESC, id DESC").
		Scopes(Paginate(page, pageSize)).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// GetByTitle fetches a review only if it belongs to the given title.
func (r *reviewRepository) GetByTitle(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("id = ? AND title_id = ?", reviewID, titleID).
		Preload("Author").
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ExistsByTitleAndAuthor(ctx context.Context, titleID, authorID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("title_id = ? AND author_id = ?", titleID, authorID).
		Count(&count).Error
	return count > 0, err
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Model(review).
		Omit(clause.Associations).
		Updates(map[string]any{"text": review.Text, "score": review.Score}).Error
}

func (r *reviewRepository) Delete(ctx context.Context, reviewID int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, reviewID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
