package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 引擎运维预置角色
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "scheduler",
			Inherits: []string{"auditor"},
			Policies: []Policy{
				{Object: "/admin/jobs/accrual-tick", Action: "POST"},
				{Object: "/admin/jobs/deactivation-check", Action: "POST"},
			},
		},
		{
			Role:     "finance",
			Inherits: []string{"auditor"},
			Policies: []Policy{
				{Object: "/admin/purchases/:id/payout", Action: "POST"},
				{Object: "/admin/withdrawals/:id/review", Action: "POST"},
			},
		},
		{
			Role:     "superuser",
			Inherits: []string{"scheduler", "finance"},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略（重复执行无副作用）
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}
