package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"yamdb/internal/events"
	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/repository"

	"gorm.io/gorm"
)

const reviewExistsMessage = "you have already reviewed this title"

type ReviewService interface {
	List(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error)
	Get(ctx context.Context, titleID, reviewID int64) (*models.Review, error)
	Create(ctx context.Context, caller *permission.Caller, titleID int64, req dto.CreateReviewDTO) (*models.Review, error)
	Update(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, patch dto.PatchReviewDTO) (*models.Review, error)
	Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID int64) error
}

type reviewService struct {
	reviews   repository.ReviewRepository
	titles    repository.TitleRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewReviewService(reviews repository.ReviewRepository, titles repository.TitleRepository, publisher events.Publisher, logger *slog.Logger) ReviewService {
	return &reviewService{
		reviews:   reviews,
		titles:    titles,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *reviewService) requireTitle(ctx context.Context, titleID int64) error {
	exists, err := s.titles.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !exists {
		return NotFound("title")
	}
	return nil
}

func (s *reviewService) List(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return s.reviews.ListByTitle(ctx, titleID, page, pageSize)
}

func (s *reviewService) Get(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	review, err := s.reviews.GetByTitle(ctx, titleID, reviewID)
	if err != nil {
		return nil, notFoundOr(err, "review")
	}
	return review, nil
}

// Create posts the caller's review; each author may review a title once.
func (s *reviewService) Create(ctx context.Context, caller *permission.Caller, titleID int64, req dto.CreateReviewDTO) (*models.Review, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	exists, err := s.reviews.ExistsByTitleAndAuthor(ctx, titleID, caller.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewValidationError("non_field_errors", reviewExistsMessage)
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: caller.ID,
		Text:     req.Text,
		Score:    req.Score,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("non_field_errors", reviewExistsMessage)
		}
		return nil, err
	}
	review.Author = models.User{ID: caller.ID, Username: caller.Username}

	publish(ctx, s.publisher, s.logger, events.Event{
		Type:       events.ReviewCreated,
		TitleID:    titleID,
		ReviewID:   review.ID,
		Author:     caller.Username,
		Score:      review.Score,
		OccurredAt: time.Now().UTC(),
	})
	return review, nil
}

func (s *reviewService) Update(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, patch dto.PatchReviewDTO) (*models.Review, error) {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, http.MethodPatch, review.AuthorID); err != nil {
		return nil, err
	}

	if patch.Text != nil {
		review.Text = *patch.Text
	}
	if patch.Score != nil {
		review.Score = *patch.Score
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID int64) error {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := authorize(caller, http.MethodDelete, review.AuthorID); err != nil {
		return err
	}
	return notFoundOr(s.reviews.Delete(ctx, review.ID), "review")
}
