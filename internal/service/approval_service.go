package service

import (
	"context"
	"errors"
	"time"

	"chargedesk/internal/apperror"
	"chargedesk/internal/cache"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"
	"chargedesk/internal/workflow"

	"github.com/google/uuid"
)

// Notifier hands workflow events to delivery. It must not block.
type Notifier interface {
	Notify(ctx context.Context, events []workflow.Event)
}

type ApprovalService interface {
	Submit(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error)
	ApproveByFinance(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error)
	ApproveByCEO(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error)
	Reject(ctx context.Context, actor uuid.UUID, id uuid.UUID, reason string) (*ChargeRangeResponse, error)
}

type approvalService struct {
	txManager    repository.TransactionManager
	chargeRanges repository.ChargeRangeRepository
	types        repository.TransactionTypeRepository
	auditRepo    repository.AuditRepository
	access       AccessControl
	schedule     cache.ScheduleCache
	notifier     Notifier
	now          func() time.Time
}

func NewApprovalService(
	txManager repository.TransactionManager,
	chargeRanges repository.ChargeRangeRepository,
	types repository.TransactionTypeRepository,
	auditRepo repository.AuditRepository,
	access AccessControl,
	schedule cache.ScheduleCache,
	notifier Notifier,
) ApprovalService {
	return &approvalService{
		txManager:    txManager,
		chargeRanges: chargeRanges,
		types:        types,
		auditRepo:    auditRepo,
		access:       access,
		schedule:     schedule,
		notifier:     notifier,
		now:          time.Now,
	}
}

var auditActions = map[workflow.Action]string{
	workflow.ActionSubmit:         model.ActionSubmitChargeRange,
	workflow.ActionApproveFinance: model.ActionFinanceApproveChargeRange,
	workflow.ActionApproveCEO:     model.ActionCEOApproveChargeRange,
	workflow.ActionReject:         model.ActionRejectChargeRange,
}

func (s *approvalService) Submit(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error) {
	return s.transition(ctx, workflow.ActionSubmit, actor, id, "")
}

func (s *approvalService) ApproveByFinance(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error) {
	return s.transition(ctx, workflow.ActionApproveFinance, actor, id, "")
}

// ApproveByCEO activates the range, so it fails with ErrOverlappingRange when
// another active approved range of the type covers part of the interval.
func (s *approvalService) ApproveByCEO(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error) {
	return s.transition(ctx, workflow.ActionApproveCEO, actor, id, "")
}

func (s *approvalService) Reject(ctx context.Context, actor uuid.UUID, id uuid.UUID, reason string) (*ChargeRangeResponse, error) {
	return s.transition(ctx, workflow.ActionReject, actor, id, reason)
}

// transition authorizes the actor, then reads, checks and writes the range in
// one transaction. The write only lands while the row still holds the status
// that was read, so of two concurrent calls at most one succeeds. Events are
// handed to the notifier after commit.
func (s *approvalService) transition(ctx context.Context, action workflow.Action, actor uuid.UUID, id uuid.UUID, reason string) (*ChargeRangeResponse, error) {
	if err := authorize(ctx, s.access, actor, workflow.RequiredPermissions(action)...); err != nil {
		return nil, err
	}

	var t workflow.Transition
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.chargeRanges.FindByID(txCtx, id)
		if err != nil {
			return notFoundOr(err, apperror.ErrChargeRangeNotFound, "load charge range")
		}

		t, err = workflow.Apply(*current, action, actor, reason, s.now())
		if err != nil {
			return err
		}

		if action == workflow.ActionApproveCEO {
			if err := ensureNoOverlap(txCtx, s.types, s.chargeRanges, current); err != nil {
				return err
			}
		}

		if err := s.chargeRanges.UpdateStatusIfCurrent(txCtx, id, t.From, t.Changes); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperror.StaleTransition(string(action))
			}
			return apperror.Persistence(string(action)+" charge range", err)
		}

		details := map[string]interface{}{"from": t.From, "to": t.To}
		if action == workflow.ActionReject {
			details["reason"] = reason
		}
		return recordAudit(txCtx, s.auditRepo, &actor, auditActions[action], id.String(), "", details)
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInvalidTransition {
			logger.WarnContext(ctx, "charge range transition refused", "action", action, "charge_range_id", id, "error", err)
		}
		return nil, err
	}

	logger.InfoContext(ctx, "charge range transitioned",
		"action", action, "charge_range_id", id, "from", t.From, "to", t.To, "actor", actor)

	if action == workflow.ActionApproveCEO && t.Result.TransactionType != nil {
		invalidateSchedule(ctx, s.schedule, t.Result.TransactionType.Code)
	}
	if s.notifier != nil && len(t.Events) > 0 {
		s.notifier.Notify(context.WithoutCancel(ctx), t.Events)
	}

	// t.Result still carries the associations loaded before the write
	result := &t.Result
	if fresh, err := s.chargeRanges.FindByID(ctx, id); err != nil {
		logger.WarnContext(ctx, "failed to reload charge range after transition", "charge_range_id", id, "error", err)
	} else {
		result = fresh
	}
	resp := toChargeRangeResponse(result)
	return &resp, nil
}
