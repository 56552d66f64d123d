package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"yamdb/internal/events"
	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/repository"
)

type CommentService interface {
	List(ctx context.Context, titleID, reviewID int64, page, pageSize int) ([]models.Comment, int64, error)
	Get(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error)
	Create(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, req dto.CreateCommentDTO) (*models.Comment, error)
	Update(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64, patch dto.PatchCommentDTO) (*models.Comment, error)
	Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64) error
}

type commentService struct {
	comments  repository.CommentRepository
	reviews   repository.ReviewRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, reviews repository.ReviewRepository, publisher events.Publisher, logger *slog.Logger) CommentService {
	return &commentService{
		comments:  comments,
		reviews:   reviews,
		publisher: publisher,
		logger:    logger,
	}
}

// review loads the parent review, which must belong to the title.
func (s *commentService) review(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	review, err := s.reviews.GetByTitle(ctx, titleID, reviewID)
	if err != nil {
		return nil, notFoundOr(err, "review")
	}
	return review, nil
}

func (s *commentService) List(ctx context.Context, titleID, reviewID int64, page, pageSize int) ([]models.Comment, int64, error) {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return s.comments.ListByReview(ctx, reviewID, page, pageSize)
}

func (s *commentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error) {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByReview(ctx, reviewID, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	return comment, nil
}

func (s *commentService) Create(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, req dto.CreateCommentDTO) (*models.Comment, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReviewID: reviewID,
		AuthorID: caller.ID,
		Text:     req.Text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = models.User{ID: caller.ID, Username: caller.Username}

	publish(ctx, s.publisher, s.logger, events.Event{
		Type:       events.CommentCreated,
		TitleID:    titleID,
		ReviewID:   reviewID,
		CommentID:  comment.ID,
		Author:     caller.Username,
		OccurredAt: time.Now().UTC(),
	})
	return comment, nil
}

func (s *commentService) Update(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64, patch dto.PatchCommentDTO) (*models.Comment, error) {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, http.MethodPatch, comment.AuthorID); err != nil {
		return nil, err
	}

	if patch.Text != nil {
		comment.Text = *patch.Text
	}
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64) error {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := authorize(caller, http.MethodDelete, comment.AuthorID); err != nil {
		return err
	}
	return notFoundOr(s.comments.Delete(ctx, comment.ID), "comment")
}
