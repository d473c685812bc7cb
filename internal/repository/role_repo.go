package repository

import (
	"context"

	"chargedesk/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	FindByName(ctx context.Context, name string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	FindOrCreatePermission(ctx context.Context, perm *model.Permission) error
	ReplacePermissions(ctx context.Context, role *model.Role, codes []string) error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Create(role).Error
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Order("name asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// GetPermissionsByRoleName joins roles to permissions in one query. An unknown
// role yields an empty slice.
func (r *roleRepository) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	var codes []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT p.code FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		INNER JOIN roles r ON r.id = rp.role_id
		WHERE r.name = ?
	`, roleName).Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *roleRepository) FindOrCreatePermission(ctx context.Context, perm *model.Permission) error {
	return GetDB(ctx, r.db).
		Where("code = ?", perm.Code).
		Assign(model.Permission{Name: perm.Name, Group: perm.Group}).
		FirstOrCreate(perm).Error
}

func (r *roleRepository) ReplacePermissions(ctx context.Context, role *model.Role, codes []string) error {
	db := GetDB(ctx, r.db)

	var perms []model.Permission
	if len(codes) > 0 {
		if err := db.Where("code IN ?", codes).Find(&perms).Error; err != nil {
			return err
		}
	}

	return db.Model(role).Association("Permissions").Replace(perms)
}
