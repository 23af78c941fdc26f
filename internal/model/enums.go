package model

// 本文件是全系统唯一的枚举定义处，任何展示层只读取这里的值，
// 不允许在其他层复制这些常量表。

type UserRole string

const (
	RoleDepartmentManager UserRole = "department_manager"
	RoleShiftSupervisor   UserRole = "shift_supervisor"
	RoleSafetyAdmin       UserRole = "safety_admin"
	RoleOperationAdmin    UserRole = "operation_admin"
	RoleTeamMember        UserRole = "team_member"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleDepartmentManager, RoleShiftSupervisor, RoleSafetyAdmin, RoleOperationAdmin, RoleTeamMember:
		return true
	}
	return false
}

type Team string

const (
	TeamA    Team = "team_a"
	TeamB    Team = "team_b"
	TeamC    Team = "team_c"
	TeamD    Team = "team_d"
	TeamNone Team = "none"
)

// TeamNames 班组键值到展示名的映射
var TeamNames = map[Team]string{
	TeamA:    "甲班",
	TeamB:    "乙班",
	TeamC:    "丙班",
	TeamD:    "丁班",
	TeamNone: "无班组",
}

func (t Team) Valid() bool {
	_, ok := TeamNames[t]
	return ok
}

// NormalizeTeam 同时接受键值（team_a）与展示名（甲班），其余输入原样返回
func NormalizeTeam(s string) Team {
	if Team(s).Valid() {
		return Team(s)
	}
	for key, name := range TeamNames {
		if name == s {
			return key
		}
	}
	return Team(s)
}

type SuggestionType string

const (
	TypeSafety     SuggestionType = "safety"
	TypeElectrical SuggestionType = "electrical"
	TypeMechanical SuggestionType = "mechanical"
	TypeAutomation SuggestionType = "automation"
	TypeMonitoring SuggestionType = "monitoring"
	TypeOther      SuggestionType = "other"
)

// TypeNames 建议类型展示名
var TypeNames = map[SuggestionType]string{
	TypeSafety:     "安全类",
	TypeElectrical: "电气类",
	TypeMechanical: "机械类",
	TypeAutomation: "自动化类",
	TypeMonitoring: "仪表监控类",
	TypeOther:      "其他",
}

func (t SuggestionType) Valid() bool {
	_, ok := TypeNames[t]
	return ok
}

type ReviewStatus string

const (
	StatusPendingFirstReview  ReviewStatus = "pending_first_review"
	StatusPendingSecondReview ReviewStatus = "pending_second_review"
	StatusApproved            ReviewStatus = "approved"
	StatusRejected            ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPendingFirstReview, StatusPendingSecondReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type ReviewResult string

const (
	ReviewApproved ReviewResult = "approved"
	ReviewRejected ReviewResult = "rejected"
)

type ImplementationStatus string

const (
	ImplNotStarted ImplementationStatus = "not_started"
	ImplContacting ImplementationStatus = "contacting"
	ImplInProgress ImplementationStatus = "in_progress"
	ImplDelayed    ImplementationStatus = "delayed"
	ImplCompleted  ImplementationStatus = "completed"
	ImplCancelled  ImplementationStatus = "cancelled"
)

func (s ImplementationStatus) Valid() bool {
	_, ok := implementationTransitions[s]
	return ok
}

// implementationTransitions 落实子状态机的邻接表。
// COMPLETED 为终态；CANCELLED 允许重新联系后恢复。
var implementationTransitions = map[ImplementationStatus][]ImplementationStatus{
	ImplNotStarted: {ImplContacting, ImplCancelled},
	ImplContacting: {ImplInProgress, ImplCancelled},
	ImplInProgress: {ImplCompleted, ImplDelayed, ImplCancelled},
	ImplDelayed:    {ImplInProgress, ImplCompleted, ImplCancelled},
	ImplCompleted:  {},
	ImplCancelled:  {ImplContacting},
}

// CanTransitionImplementation 判断落实状态迁移是否合法
func CanTransitionImplementation(from, to ImplementationStatus) bool {
	for _, next := range implementationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
