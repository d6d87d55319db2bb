package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix        = "/api/v1"
	casbinTableName    = "casbin_rule"
	operatorSubjectFmt = "operator:%d"
	rolePrefix         = "role:"
	roleAnchor         = "role:__anchor__"
)

// ErrUnavailable 授权服务未初始化
var ErrUnavailable = errors.New("authz service unavailable")

const operatorRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 运维后台授权服务（casbin RBAC，策略持久化在 casbin_rule 表）
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(operatorRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Authorize 判断运维账号能否以 method 访问 path
func (s *Service) Authorize(operatorID uint, path, method string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForOperator(operatorID), NormalizeObject(path), NormalizeAction(method))
}

// EnsureRole 确保角色存在，返回规范化后的角色名
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	if normalized == roleAnchor {
		return "", fmt.Errorf("reserved role is not allowed")
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, nil
}

// ListRoles 列出全部角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	seen := make(map[string]struct{})
	for _, rule := range rules {
		for _, item := range rule {
			if strings.HasPrefix(item, rolePrefix) && item != roleAnchor {
				seen[item] = struct{}{}
			}
		}
	}
	return sortedKeys(seen), nil
}

// GrantRolePolicy 为角色授予路径权限
func (s *Service) GrantRolePolicy(role, object, action string) error {
	normalizedRole, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	act := NormalizeAction(action)
	if act == "" {
		return fmt.Errorf("action is required")
	}
	if _, err := s.enforcer.AddPolicy(normalizedRole, NormalizeObject(object), act); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RolePolicies 查询角色直接持有的策略
func (s *Service) RolePolicies(role string) ([]Policy, error) {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalizedRole)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{Subject: rule[0], Object: rule[1], Action: rule[2]})
	}
	return policies, nil
}

// AssignRoles 覆盖设置运维账号的角色
func (s *Service) AssignRoles(operatorID uint, roles []string) error {
	if operatorID == 0 {
		return fmt.Errorf("operator id is required")
	}
	if err := s.ready(); err != nil {
		return err
	}
	subject := SubjectForOperator(operatorID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear operator roles failed: %w", err)
	}
	for _, role := range roles {
		normalizedRole, err := s.EnsureRole(role)
		if err != nil {
			return err
		}
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, normalizedRole); err != nil {
			return fmt.Errorf("assign operator role failed: %w", err)
		}
	}
	return nil
}

// OperatorRoles 查询运维账号的角色
func (s *Service) OperatorRoles(operatorID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForOperator(operatorID))
	if err != nil {
		return nil, fmt.Errorf("get operator roles failed: %w", err)
	}
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if strings.HasPrefix(role, rolePrefix) && role != roleAnchor {
			seen[role] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SubjectForOperator 生成运维账号主体标识
func SubjectForOperator(operatorID uint) string {
	return fmt.Sprintf(operatorSubjectFmt, operatorID)
}

// NormalizeRole 统一角色名称
func NormalizeRole(role string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	normalized = strings.TrimPrefix(normalized, rolePrefix)
	if normalized == "" {
		return "", fmt.Errorf("role is required")
	}
	return rolePrefix + normalized, nil
}

// NormalizeObject 去掉 /api/v1 前缀，统一授权资源路径
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	return strings.TrimPrefix(normalized, apiV1Prefix)
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
