package repository

import (
	"context"

	"yamdb/internal/http-api/models"

	"gorm.io/gorm"
)

// CategoryRepository and GenreRepository are the two slug dictionaries.
type CategoryRepository interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.Category, int64, error)
	Create(ctx context.Context, category *models.Category) error
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type GenreRepository interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.Genre, int64, error)
	Create(ctx context.Context, genre *models.Genre) error
	FindBySlug(ctx context.Context, slug string) (*models.Genre, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.Category, int64, error) {
	var categories []models.Category
	total, err := listByName(r.db.WithContext(ctx).Model(&models.Category{}), search, page, pageSize, &categories)
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) DeleteBySlug(ctx context.Context, slug string) error {
	return deleteBySlug(ctx, r.db, &models.Category{}, slug)
}

type genreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &genreRepository{db: db}
}

func (r *genreRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.Genre, int64, error) {
	var genres []models.Genre
	total, err := listByName(r.db.WithContext(ctx).Model(&models.Genre{}), search, page, pageSize, &genres)
	if err != nil {
		return nil, 0, err
	}
	return genres, total, nil
}

func (r *genreRepository) Create(ctx context.Context, genre *models.Genre) error {
	return r.db.WithContext(ctx).Create(genre).Error
}

func (r *genreRepository) FindBySlug(ctx context.Context, slug string) (*models.Genre, error) {
	var genre models.Genre
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&genre).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

// FindBySlugs returns the genres that exist; callers compare lengths to
// detect unknown slugs.
func (r *genreRepository) FindBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error) {
	genres := []models.Genre{}
	if len(slugs) == 0 {
		return genres, nil
	}
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("name ASC").Find(&genres).Error
	return genres, err
}

func (r *genreRepository) DeleteBySlug(ctx context.Context, slug string) error {
	return deleteBySlug(ctx, r.db, &models.Genre{}, slug)
}

func listByName(query *gorm.DB, search string, page, pageSize int, dest any) (int64, error) {
	var total int64
	if search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}
	query = query.Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	err := query.Order("name ASC").Scopes(Paginate(page, pageSize)).Find(dest).Error
	return total, err
}

func deleteBySlug(ctx context.Context, db *gorm.DB, model any, slug string) error {
	result := db.WithContext(ctx).Where("slug = ?", slug).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
