package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chargedesk/internal/apperror"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessControl answers whether an actor holds a permission.
type AccessControl interface {
	Can(ctx context.Context, actorID uuid.UUID, permission string) (bool, error)
	Permissions(ctx context.Context, actorID uuid.UUID) ([]string, error)
}

// permCacheEntry stores cached permission codes for a role with TTL
type permCacheEntry struct {
	codes     map[string]bool
	expiresAt time.Time
}

type rbacAccessControl struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	permCache sync.Map // roleName -> permCacheEntry
	ttl       time.Duration
	now       func() time.Time
}

// NewAccessControl resolves actor -> role -> permission codes. Role lookups are
// cached for ttl.
func NewAccessControl(users repository.UserRepository, roles repository.RoleRepository, ttl time.Duration) AccessControl {
	return &rbacAccessControl{users: users, roles: roles, ttl: ttl, now: time.Now}
}

func (a *rbacAccessControl) Can(ctx context.Context, actorID uuid.UUID, permission string) (bool, error) {
	codes, err := a.roleCodes(ctx, actorID)
	if err != nil {
		return false, err
	}
	return codes[permission], nil
}

func (a *rbacAccessControl) Permissions(ctx context.Context, actorID uuid.UUID) ([]string, error) {
	codes, err := a.roleCodes(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(codes))
	for code := range codes {
		out = append(out, code)
	}
	return out, nil
}

// roleCodes returns an empty set for unknown actors.
func (a *rbacAccessControl) roleCodes(ctx context.Context, actorID uuid.UUID) (map[string]bool, error) {
	user, err := a.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[string]bool{}, nil
		}
		return nil, apperror.Persistence("load actor", err)
	}

	if entry, ok := a.permCache.Load(user.Role); ok {
		cached := entry.(permCacheEntry)
		if a.now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	list, err := a.roles.GetPermissionsByRoleName(ctx, user.Role)
	if err != nil {
		return nil, apperror.Persistence(fmt.Sprintf("load permissions of role %q", user.Role), err)
	}
	codes := make(map[string]bool, len(list))
	for _, c := range list {
		codes[c] = true
	}

	a.permCache.Store(user.Role, permCacheEntry{codes: codes, expiresAt: a.now().Add(a.ttl)})
	return codes, nil
}

// authorize passes when the actor holds at least one of perms.
func authorize(ctx context.Context, ac AccessControl, actorID uuid.UUID, perms ...string) error {
	for _, p := range perms {
		ok, err := ac.Can(ctx, actorID, p)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	if len(perms) == 0 {
		return apperror.ErrForbidden
	}
	return apperror.Forbidden(perms[0])
}
