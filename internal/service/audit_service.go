package service

import (
	"context"
	"encoding/json"
	"time"

	"chargedesk/internal/apperror"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
)

const auditDateLayout = "2006-01-02"

// AuditQuery is the raw audit log filter as received from the client. Dates
// are inclusive calendar days in UTC.
type AuditQuery struct {
	EntityID string
	Action   string
	UserID   string
	From     string
	To       string
}

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"user_id"`
	Username   string          `json:"username"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details" swaggertype:"object"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor uuid.UUID, q AuditQuery, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	access    AccessControl
}

func NewAuditService(auditRepo repository.AuditRepository, access AccessControl) AuditService {
	return &auditService{auditRepo: auditRepo, access: access}
}

func (s *auditService) GetAuditLogs(ctx context.Context, actor uuid.UUID, q AuditQuery, page, limit int) ([]AuditLogResponse, int64, error) {
	if err := authorize(ctx, s.access, actor, model.PermViewAuditLog); err != nil {
		return nil, 0, err
	}
	filter, err := q.toFilter()
	if err != nil {
		return nil, 0, err
	}

	logs, total, err := s.auditRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, apperror.Persistence("list audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for i := range logs {
		res = append(res, toAuditLogResponse(&logs[i]))
	}
	return res, total, nil
}

func (q AuditQuery) toFilter() (repository.AuditFilter, error) {
	filter := repository.AuditFilter{EntityID: q.EntityID, Action: q.Action}
	fields := map[string][]string{}

	if q.UserID != "" {
		id, err := uuid.Parse(q.UserID)
		if err != nil {
			fields["user_id"] = []string{"The user id must be a valid UUID."}
		} else {
			filter.UserID = &id
		}
	}
	if q.From != "" {
		from, err := time.Parse(auditDateLayout, q.From)
		if err != nil {
			fields["from"] = []string{"The from date must match the format YYYY-MM-DD."}
		} else {
			filter.From = &from
		}
	}
	if q.To != "" {
		to, err := time.Parse(auditDateLayout, q.To)
		if err != nil {
			fields["to"] = []string{"The to date must match the format YYYY-MM-DD."}
		} else {
			end := to.AddDate(0, 0, 1)
			filter.To = &end
		}
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		fields["to"] = append(fields["to"], "The to date must be a date after or equal to from.")
	}

	if len(fields) > 0 {
		return filter, apperror.Validation(fields)
	}
	return filter, nil
}

func toAuditLogResponse(l *model.AuditLog) AuditLogResponse {
	resp := AuditLogResponse{
		ID:         l.ID.String(),
		Username:   "System",
		Action:     l.Action,
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		Details:    json.RawMessage("{}"),
		CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if l.UserID != nil {
		id := l.UserID.String()
		resp.UserID = &id
	}
	if l.User != nil {
		resp.Username = l.User.Username
	}
	if json.Valid([]byte(l.Details)) {
		resp.Details = json.RawMessage(l.Details)
	}
	return resp
}

// recordAudit writes an audit row in the caller's transaction. actor is nil
// for unauthenticated API calls.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actor *uuid.UUID, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		logger.WarnContext(ctx, "failed to encode audit details", "action", action, "error", err)
		raw = []byte("{}")
	}
	entry := &model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return apperror.Persistence("write audit log", err)
	}
	return nil
}
