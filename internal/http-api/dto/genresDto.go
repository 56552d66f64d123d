package dto

import "yamdb/internal/http-api/models"

// CreateCategoryDTO / CreateGenreDTO share the name+slug shape.
type CreateCategoryDTO struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"required,max=50,slug"`
}

type CreateGenreDTO struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"required,max=50,slug"`
}

type CategoryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type GenreResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func CategoryFromModel(c models.Category) CategoryResponse {
	return CategoryResponse{Name: c.Name, Slug: c.Slug}
}

func GenreFromModel(g models.Genre) GenreResponse {
	return GenreResponse{Name: g.Name, Slug: g.Slug}
}

// SearchQuery is bound from ?search= on category, genre and user lists.
type SearchQuery struct {
	Search string `form:"search"`
}
