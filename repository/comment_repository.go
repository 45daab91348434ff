package repository

import (
	"errors"
	"fmt"

	"jzonefm/model"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations.
type CommentRepository interface {
	CreateComment(comment *model.Comment) error
	GetCommentByID(id int64) (*model.Comment, error)
	GetCommentsByTrack(trackID string) ([]*model.Comment, error)
}

// gormCommentRepository implements CommentRepository with GORM.
type gormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new gormCommentRepository.
func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

// CreateComment inserts a comment. Comments are never updated afterwards.
func (r *gormCommentRepository) CreateComment(comment *model.Comment) error {
	if err := r.db.Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment for track %s: %w", comment.TrackID, err)
	}
	return nil
}

// GetCommentByID retrieves a single comment, nil when absent.
func (r *gormCommentRepository) GetCommentByID(id int64) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query comment %d: %w", id, err)
	}
	return &comment, nil
}

// GetCommentsByTrack returns all comments on a track, newest first.
func (r *gormCommentRepository) GetCommentsByTrack(trackID string) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Where("track_id = ?", trackID).Order("created_at DESC, id DESC").Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for track %s: %w", trackID, err)
	}
	return comments, nil
}
