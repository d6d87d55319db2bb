package admin

import (
	"net/url"
	"strings"

	"github.com/nftlevel-next/internal/authz"
	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/logger"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetOperatorRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 获取当前操作员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.OperatorRoles(operatorID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	policies := make([]authz.Policy, 0)
	for _, role := range roles {
		rolePolicies, policyErr := h.AuthzService.RolePolicies(role)
		if policyErr != nil {
			respondError(c, response.CodeInternal, "error.internal", policyErr)
			return
		}
		policies = append(policies, rolePolicies...)
	}
	response.Success(c, gin.H{
		"operator_id": operatorID,
		"is_super":    currentOperatorIsSuper(c),
		"roles":       roles,
		"policies":    policies,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	logger.Infow("admin_authz_role_created",
		"operator_id", currentOperatorID(c),
		"role", role,
	)
	response.Success(c, gin.H{"role": role})
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}
	policies, err := h.AuthzService.RolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.policy_invalid", err)
		return
	}
	logger.Infow("admin_authz_policy_granted",
		"operator_id", currentOperatorID(c),
		"role", req.Role,
		"object", authz.NormalizeObject(req.Object),
		"action", authz.NormalizeAction(req.Action),
	)
	response.Success(c, nil)
}

// GetOperatorRoles 获取指定操作员角色
func (h *Handler) GetOperatorRoles(c *gin.Context) {
	operatorID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.OperatorRoles(operatorID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"operator_id": operatorID, "roles": roles})
}

// SetOperatorRoles 覆盖设置指定操作员角色
func (h *Handler) SetOperatorRoles(c *gin.Context) {
	operatorID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req authzSetOperatorRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.AssignRoles(operatorID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	roles, err := h.AuthzService.OperatorRoles(operatorID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	logger.Infow("admin_authz_operator_roles_updated",
		"operator_id", currentOperatorID(c),
		"target_operator_id", operatorID,
		"roles", roles,
	)
	response.Success(c, gin.H{"operator_id": operatorID, "roles": roles})
}

func decodeRoleParam(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return strings.TrimSpace(decoded)
}
