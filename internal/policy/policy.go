// Package policy 集中定义建议生命周期各动作的角色权限规则。
// 所有层都只通过这里判断权限，控制器与服务不得自行比较角色字符串。
package policy

import (
	"suggestion_backend/internal/model"
)

// CanSubmit 安全管理员与运行管理员不提交建议，其余角色均可
func CanSubmit(role model.UserRole) bool {
	return role != model.RoleSafetyAdmin && role != model.RoleOperationAdmin
}

// CanFirstReview 一级审核：部门经理，或与建议同班组的值班主任
func CanFirstReview(role model.UserRole, team model.Team, s *model.Suggestion) bool {
	if role == model.RoleDepartmentManager {
		return true
	}
	return role == model.RoleShiftSupervisor && team == s.Team
}

// CanSecondReview 二级审核：部门经理全部可审；安全管理员只审安全类，
// 运行管理员只审非安全类
func CanSecondReview(role model.UserRole, s *model.Suggestion) bool {
	switch role {
	case model.RoleDepartmentManager:
		return true
	case model.RoleSafetyAdmin:
		return s.Type == model.TypeSafety
	case model.RoleOperationAdmin:
		return s.Type != model.TypeSafety
	}
	return false
}

// CanScore 评分权限与二级审核同一划分
func CanScore(role model.UserRole, s *model.Suggestion) bool {
	return CanSecondReview(role, s)
}

// CanUpdateImplementation 落实状态更新权限
func CanUpdateImplementation(role model.UserRole) bool {
	switch role {
	case model.RoleDepartmentManager, model.RoleSafetyAdmin, model.RoleOperationAdmin:
		return true
	}
	return false
}

// CanDelete 部门经理可删任意建议；提交人在二审通过前可删自己的
func CanDelete(role model.UserRole, actorID uint, s *model.Suggestion) bool {
	if role == model.RoleDepartmentManager {
		return true
	}
	if actorID != s.SubmitterID {
		return false
	}
	return !(s.SecondReview.Done() && s.SecondReview.Result == model.ReviewApproved)
}

// CanEdit 仅提交人在一级审核前可编辑
func CanEdit(role model.UserRole, actorID uint, s *model.Suggestion) bool {
	return actorID == s.SubmitterID && s.ReviewStatus == model.StatusPendingFirstReview
}
