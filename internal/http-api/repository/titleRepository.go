package repository

import (
	"context"

	"yamdb/internal/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ratingColumn computes the title rating; AVG over no rows is NULL.
const ratingColumn = "(SELECT CAST(AVG(r.score) AS DOUBLE PRECISION) FROM reviews r WHERE r.title_id = titles.id) AS rating"

// TitleFilter narrows the title list. Zero values are ignored.
type TitleFilter struct {
	Genre    string
	Category string
	Year     *int
	Name     string
}

type TitleRepository interface {
	List(ctx context.Context, filter TitleFilter, page, pageSize int) ([]models.Title, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Title, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, title *models.Title) error
	Update(ctx context.Context, title *models.Title, genres *[]models.Genre) error
	Delete(ctx context.Context, id int64) error
}

type titleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) TitleRepository {
	return &titleRepository{db: db}
}

func (r *titleRepository) List(ctx context.Context, filter TitleFilter, page, pageSize int) ([]models.Title, int64, error) {
	var titles []models.Title
	var total int64

	base := applyTitleFilter(r.db.WithContext(ctx).Model(&models.Title{}), filter).Session(&gorm.Session{})
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := base.Select("titles.*, " + ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		Order("titles.name ASC, titles.id ASC").
		Scopes(Paginate(page, pageSize)).
		Find(&titles).Error
	if err != nil {
		return nil, 0, err
	}
	return titles, total, nil
}

func applyTitleFilter(q *gorm.DB, f TitleFilter) *gorm.DB {
	if f.Genre != "" {
		q = q.Where("titles.id IN (SELECT gt.title_id FROM genre_title gt JOIN genres g ON g.id = gt.genre_id WHERE g.slug = ?)", f.Genre)
	}
	if f.Category != "" {
		q = q.Where("titles.category_id IN (SELECT id FROM categories WHERE slug = ?)", f.Category)
	}
	if f.Year != nil {
		q = q.Where("titles.year = ?", *f.Year)
	}
	if f.Name != "" {
		q = q.Where("titles.name LIKE ?", "%"+f.Name+"%")
	}
	return q
}

// GetByID loads a title with its category, genres and rating.
func (r *titleRepository) GetByID(ctx context.Context, id int64) (*models.Title, error) {
	var title models.Title
	err := r.db.WithContext(ctx).
		Select("titles.*, "+ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		Where("titles.id = ?", id).
		First(&title).Error
	if err != nil {
		return nil, err
	}
	return &title, nil
}

func (r *titleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Create inserts the title and its genre links in one statement set.
// Category and genres must already exist.
func (r *titleRepository) Create(ctx context.Context, title *models.Title) error {
	return r.db.WithContext(ctx).Omit("Category", "Genres.*").Create(title).Error
}

// Update saves the scalar columns; a non-nil genres replaces the links.
func (r *titleRepository) Update(ctx context.Context, title *models.Title, genres *[]models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(title).Omit(clause.Associations).Updates(map[string]any{
			"name":        title.Name,
			"year":        title.Year,
			"description": title.Description,
			"category_id": title.CategoryID,
		}).Error
		if err != nil {
			return err
		}
		if genres == nil {
			return nil
		}
		assoc := tx.Model(title).Association("Genres")
		if len(*genres) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(*genres)
		}
		if err != nil {
			return err
		}
		title.Genres = *genres
		return nil
	})
}

func (r *titleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM genre_title WHERE title_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Title{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
