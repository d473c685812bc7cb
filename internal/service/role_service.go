package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chargedesk/internal/apperror"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	MyPermissions(ctx context.Context, actor uuid.UUID) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
	SeedDefaultUsers(ctx context.Context) error
}

type roleService struct {
	txManager repository.TransactionManager
	roles     repository.RoleRepository
	users     repository.UserRepository
	access    AccessControl
}

func NewRoleService(txManager repository.TransactionManager, roles repository.RoleRepository, users repository.UserRepository, access AccessControl) RoleService {
	return &roleService{txManager: txManager, roles: roles, users: users, access: access}
}

var defaultPermissions = []model.Permission{
	{Code: model.PermViewChargeRange, Name: "View charge ranges", Group: "charge_ranges"},
	{Code: model.PermCreateChargeRange, Name: "Create charge ranges", Group: "charge_ranges"},
	{Code: model.PermEditChargeRange, Name: "Edit charge ranges", Group: "charge_ranges"},
	{Code: model.PermDeleteChargeRange, Name: "Delete charge ranges", Group: "charge_ranges"},
	{Code: model.PermToggleChargeRange, Name: "Activate or deactivate charge ranges", Group: "charge_ranges"},
	{Code: model.PermSubmitForApproval, Name: "Submit charge ranges for approval", Group: "approvals"},
	{Code: model.PermApproveFinance, Name: "Approve as finance", Group: "approvals"},
	{Code: model.PermApproveCEO, Name: "Approve as CEO", Group: "approvals"},
	{Code: model.PermRejectChargeRange, Name: "Reject charge ranges", Group: "approvals"},
	{Code: model.PermViewTransactionType, Name: "View transaction types", Group: "transaction_types"},
	{Code: model.PermCreateTransactionType, Name: "Create transaction types", Group: "transaction_types"},
	{Code: model.PermEditTransactionType, Name: "Edit transaction types", Group: "transaction_types"},
	{Code: model.PermDeleteTransactionType, Name: "Delete transaction types", Group: "transaction_types"},
	{Code: model.PermViewAuditLog, Name: "View audit log", Group: "audit"},
	{Code: model.PermViewDashboard, Name: "View dashboard", Group: "dashboard"},
}

type roleDefinition struct {
	Description string
	PermCodes   []string
}

func defaultRoles() map[string]roleDefinition {
	all := make([]string, 0, len(defaultPermissions))
	for _, p := range defaultPermissions {
		all = append(all, p.Code)
	}

	return map[string]roleDefinition{
		model.RoleSuperAdmin: {
			Description: "Full access to the charge schedule",
			PermCodes:   all,
		},
		model.RoleTeamMember: {
			Description: "Drafts charge ranges and submits them for approval",
			PermCodes: []string{
				model.PermViewChargeRange, model.PermCreateChargeRange,
				model.PermEditChargeRange, model.PermDeleteChargeRange,
				model.PermSubmitForApproval, model.PermViewTransactionType,
			},
		},
		model.RoleFinanceApprover: {
			Description: "First approval stage",
			PermCodes: []string{
				model.PermViewChargeRange, model.PermViewTransactionType,
				model.PermApproveFinance, model.PermRejectChargeRange,
				model.PermViewDashboard,
			},
		},
		model.RoleCEO: {
			Description: "Final approval stage",
			PermCodes: []string{
				model.PermViewChargeRange, model.PermViewTransactionType,
				model.PermApproveCEO, model.PermRejectChargeRange,
				model.PermToggleChargeRange, model.PermViewDashboard,
				model.PermViewAuditLog,
			},
		},
	}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, apperror.Persistence("list roles", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) MyPermissions(ctx context.Context, actor uuid.UUID) ([]string, error) {
	codes, err := s.access.Permissions(ctx, actor)
	if err != nil {
		return nil, err
	}
	sort.Strings(codes)
	return codes, nil
}

// SeedDefaultRolesAndPermissions upserts the permission catalogue and the four
// system roles. It is idempotent.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range defaultPermissions {
			p := defaultPermissions[i]
			if err := s.roles.FindOrCreatePermission(txCtx, &p); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
		}

		for name, def := range defaultRoles() {
			role, err := s.roles.FindByName(txCtx, name)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("failed to load role '%s': %w", name, err)
				}
				role = &model.Role{Name: name, Description: def.Description, IsSystem: true}
				if err := s.roles.Create(txCtx, role); err != nil {
					return fmt.Errorf("failed to seed role '%s': %w", name, err)
				}
			}
			if err := s.roles.ReplacePermissions(txCtx, role, def.PermCodes); err != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", name, err)
			}
		}
		return nil
	})
}

// SeedDefaultUsers creates one user per system role so a fresh install can
// exercise the approval chain.
func (s *roleService) SeedDefaultUsers(ctx context.Context) error {
	seed := []model.User{
		{Username: "team", Email: "team@chargedesk.local", Role: model.RoleTeamMember},
		{Username: "finance", Email: "finance@chargedesk.local", Role: model.RoleFinanceApprover},
		{Username: "ceo", Email: "ceo@chargedesk.local", Role: model.RoleCEO},
		{Username: "admin", Email: "admin@chargedesk.local", Role: model.RoleSuperAdmin},
	}

	for i := range seed {
		u := seed[i]
		_, err := s.users.GetByEmail(ctx, u.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up user '%s': %w", u.Email, err)
		}
		if err := s.users.Create(ctx, &u); err != nil {
			return fmt.Errorf("failed to seed user '%s': %w", u.Email, err)
		}
	}
	return nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, PermissionResponse{
			ID:    p.ID.String(),
			Code:  p.Code,
			Name:  p.Name,
			Group: p.Group,
		})
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
