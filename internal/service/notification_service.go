package service

import (
	"context"
	"time"

	"chargedesk/internal/apperror"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID            string  `json:"id"`
	ChargeRangeID *string `json:"charge_range_id"`
	Event         string  `json:"event"`
	Title         string  `json:"title"`
	Message       string  `json:"message"`
	Data          string  `json:"data"`
	Read          bool    `json:"read"`
	EmailStatus   string  `json:"email_status"`
	CreatedAt     string  `json:"created_at"`
}

// NotificationService is the per-user inbox. Users only ever see their own rows,
// so no permission check applies.
type NotificationService interface {
	List(ctx context.Context, actor uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, actor uuid.UUID, id uuid.UUID) error
}

type notificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo, now: time.Now}
}

func (s *notificationService) List(ctx context.Context, actor uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	items, total, err := s.repo.ListByUser(ctx, actor, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, apperror.Persistence("list notifications", err)
	}

	res := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		var rangeID *string
		if n.ChargeRangeID != nil {
			id := n.ChargeRangeID.String()
			rangeID = &id
		}
		res = append(res, NotificationResponse{
			ID:            n.ID.String(),
			ChargeRangeID: rangeID,
			Event:         n.Event,
			Title:         n.Title,
			Message:       n.Message,
			Data:          n.Data,
			Read:          n.ReadAt != nil,
			EmailStatus:   n.EmailStatus,
			CreatedAt:     n.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	found, err := s.repo.MarkRead(ctx, id, actor, s.now())
	if err != nil {
		return apperror.Persistence("mark notification read", err)
	}
	if !found {
		return apperror.ErrNotificationNotFound
	}
	return nil
}
