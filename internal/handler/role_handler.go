package handler

import (
	"net/http"

	"chargedesk/internal/middleware"
	"chargedesk/internal/model"
	"chargedesk/internal/service"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
	checker     middleware.PermissionChecker
}

func NewRoleHandler(roleService service.RoleService, checker middleware.PermissionChecker) *RoleHandler {
	return &RoleHandler{roleService: roleService, checker: checker}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/roles", middleware.RequirePermission(h.checker, model.PermViewAuditLog), h.ListRoles)
	router.GET("/api/me/permissions", h.MyPermissions)
}

// ListRoles returns all roles with their permissions
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// MyPermissions lists the permission codes of the caller
func (h *RoleHandler) MyPermissions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	perms, err := h.roleService.MyPermissions(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"permissions": perms}))
}
