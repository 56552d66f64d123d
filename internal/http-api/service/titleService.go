package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"

	"gorm.io/gorm"
)

type TitleService interface {
	List(ctx context.Context, filter dto.TitleFilter, page, pageSize int) ([]models.Title, int64, error)
	Get(ctx context.Context, id int64) (*models.Title, error)
	Create(ctx context.Context, req dto.CreateTitleDTO) (*models.Title, error)
	Update(ctx context.Context, id int64, patch dto.PatchTitleDTO) (*models.Title, error)
	Delete(ctx context.Context, id int64) error
}

type titleService struct {
	titles     repository.TitleRepository
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	now        func() time.Time
}

func NewTitleService(titles repository.TitleRepository, categories repository.CategoryRepository, genres repository.GenreRepository) TitleService {
	return &titleService{
		titles:     titles,
		categories: categories,
		genres:     genres,
		now:        time.Now,
	}
}

func (s *titleService) List(ctx context.Context, filter dto.TitleFilter, page, pageSize int) ([]models.Title, int64, error) {
	return s.titles.List(ctx, repository.TitleFilter{
		Genre:    filter.Genre,
		Category: filter.Category,
		Year:     filter.Year,
		Name:     filter.Name,
	}, page, pageSize)
}

func (s *titleService) Get(ctx context.Context, id int64) (*models.Title, error) {
	title, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "title")
	}
	return title, nil
}

func (s *titleService) Create(ctx context.Context, req dto.CreateTitleDTO) (*models.Title, error) {
	verr := &ValidationError{Fields: map[string]string{}}
	s.checkYear(req.Year, verr)

	category, err := s.resolveCategory(ctx, req.Category, verr)
	if err != nil {
		return nil, err
	}
	genres, err := s.resolveGenres(ctx, req.Genre, verr)
	if err != nil {
		return nil, err
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	title := &models.Title{
		Name:        req.Name,
		Year:        req.Year,
		Description: req.Description,
		CategoryID:  &category.ID,
		Genres:      genres,
	}
	if err := s.titles.Create(ctx, title); err != nil {
		return nil, err
	}
	return s.Get(ctx, title.ID)
}

func (s *titleService) Update(ctx context.Context, id int64, patch dto.PatchTitleDTO) (*models.Title, error) {
	title, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{Fields: map[string]string{}}
	if patch.Name != nil {
		title.Name = *patch.Name
	}
	if patch.Year != nil {
		s.checkYear(*patch.Year, verr)
		title.Year = *patch.Year
	}
	if patch.Description != nil {
		title.Description = *patch.Description
	}
	if patch.Category != nil {
		category, err := s.resolveCategory(ctx, *patch.Category, verr)
		if err != nil {
			return nil, err
		}
		if category != nil {
			title.CategoryID = &category.ID
		}
	}
	var genres *[]models.Genre
	if patch.Genre != nil {
		resolved, err := s.resolveGenres(ctx, *patch.Genre, verr)
		if err != nil {
			return nil, err
		}
		genres = &resolved
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if err := s.titles.Update(ctx, title, genres); err != nil {
		return nil, notFoundOr(err, "title")
	}
	return s.Get(ctx, id)
}

func (s *titleService) Delete(ctx context.Context, id int64) error {
	return notFoundOr(s.titles.Delete(ctx, id), "title")
}

func (s *titleService) checkYear(year int, verr *ValidationError) {
	if current := s.now().Year(); year < 1 || year > current {
		verr.Fields["year"] = fmt.Sprintf("year must be between 1 and %d", current)
	}
}

// resolveCategory records a field error when the slug is unknown.
func (s *titleService) resolveCategory(ctx context.Context, slug string, verr *ValidationError) (*models.Category, error) {
	category, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			verr.Fields["category"] = fmt.Sprintf("category %q does not exist", slug)
			return nil, nil
		}
		return nil, err
	}
	return category, nil
}

func (s *titleService) resolveGenres(ctx context.Context, slugs []string, verr *ValidationError) ([]models.Genre, error) {
	unique := make([]string, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if !seen[slug] {
			seen[slug] = true
			unique = append(unique, slug)
		}
	}

	genres, err := s.genres.FindBySlugs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(genres) != len(unique) {
		found := make(map[string]bool, len(genres))
		for _, g := range genres {
			found[g.Slug] = true
		}
		var missing []string
		for _, slug := range unique {
			if !found[slug] {
				missing = append(missing, slug)
			}
		}
		verr.Fields["genre"] = fmt.Sprintf("unknown genre: %s", strings.Join(missing, ", "))
	}
	return genres, nil
}
