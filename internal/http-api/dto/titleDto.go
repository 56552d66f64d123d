package dto

import "yamdb/internal/http-api/models"

// CreateTitleDTO is the write shape: category and genres are referenced by slug.
type CreateTitleDTO struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        int      `json:"year" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category" binding:"required,slug"`
	Genre       []string `json:"genre" binding:"required,dive,slug"`
}

// PatchTitleDTO used for PATCH /v1/titles/:title_id/ (partial updates)
type PatchTitleDTO struct {
	Name        *string   `json:"name" binding:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category" binding:"omitempty,slug"`
	Genre       *[]string `json:"genre" binding:"omitempty,dive,slug"`
}

// TitleFilter is bound from the list query string.
type TitleFilter struct {
	Genre    string `form:"genre"`
	Category string `form:"category"`
	Year     *int   `form:"year"`
	Name     string `form:"name"`
}

// TitleReadResponse is returned by list and retrieve.
type TitleReadResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Year        int               `json:"year"`
	Rating      *float64          `json:"rating"`
	Description string            `json:"description"`
	Genre       []GenreResponse   `json:"genre"`
	Category    *CategoryResponse `json:"category"`
}

// TitleWriteResponse mirrors the write shape after create/update.
type TitleWriteResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Genre       []string `json:"genre"`
	Category    *string  `json:"category"`
}

func FromModelToTitleRead(t models.Title) TitleReadResponse {
	resp := TitleReadResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       make([]GenreResponse, 0, len(t.Genres)),
	}
	for _, g := range t.Genres {
		resp.Genre = append(resp.Genre, GenreFromModel(g))
	}
	if t.Category != nil {
		c := CategoryFromModel(*t.Category)
		resp.Category = &c
	}
	return resp
}

func FromModelToTitleWrite(t models.Title) TitleWriteResponse {
	resp := TitleWriteResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Description: t.Description,
		Genre:       make([]string, 0, len(t.Genres)),
	}
	for _, g := range t.Genres {
		resp.Genre = append(resp.Genre, g.Slug)
	}
	if t.Category != nil {
		slug := t.Category.Slug
		resp.Category = &slug
	}
	return resp
}
