package service

import (
	"context"
	"errors"
	"fmt"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"

	"gorm.io/gorm"
)

type CategoryService interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.Category, int64, error)
	Create(ctx context.Context, req dto.CreateCategoryDTO) (*models.Category, error)
	Delete(ctx context.Context, slug string) error
}

type GenreService interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.Genre, int64, error)
	Create(ctx context.Context, req dto.CreateGenreDTO) (*models.Genre, error)
	Delete(ctx context.Context, slug string) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context, search string, page, pageSize int) ([]models.Category, int64, error) {
	return s.repo.List(ctx, search, page, pageSize)
}

func (s *categoryService) Create(ctx context.Context, req dto.CreateCategoryDTO) (*models.Category, error) {
	if _, err := s.repo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, slugTaken("category", req.Slug)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category := &models.Category{Name: req.Name, Slug: req.Slug}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, slugTaken("category", req.Slug)
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, slug string) error {
	return notFoundOr(s.repo.DeleteBySlug(ctx, slug), "category")
}

type genreService struct {
	repo repository.GenreRepository
}

func NewGenreService(repo repository.GenreRepository) GenreService {
	return &genreService{repo: repo}
}

func (s *genreService) List(ctx context.Context, search string, page, pageSize int) ([]models.Genre, int64, error) {
	return s.repo.List(ctx, search, page, pageSize)
}

func (s *genreService) Create(ctx context.Context, req dto.CreateGenreDTO) (*models.Genre, error) {
	if _, err := s.repo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, slugTaken("genre", req.Slug)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	genre := &models.Genre{Name: req.Name, Slug: req.Slug}
	if err := s.repo.Create(ctx, genre); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, slugTaken("genre", req.Slug)
		}
		return nil, err
	}
	return genre, nil
}

func (s *genreService) Delete(ctx context.Context, slug string) error {
	return notFoundOr(s.repo.DeleteBySlug(ctx, slug), "genre")
}

func slugTaken(resource, slug string) error {
	return NewValidationError("slug", fmt.Sprintf("%s with slug %q already exists", resource, slug))
}
