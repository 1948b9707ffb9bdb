package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-api/internal/models"
)

// NotificationRepository persists workflow notifications for student feeds.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, studentID uint) (models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, studentID uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).
		Where("id = ? AND student_id = ?", id, studentID).
		First(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	if !notification.Read {
		notification.Read = true
		if err := r.db.WithContext(ctx).Model(&notification).Update("read", true).Error; err != nil {
			return models.Notification{}, err
		}
	}

	return notification, nil
}
