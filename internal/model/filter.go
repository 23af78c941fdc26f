package model

// ListScope 调用方显式声明的列表口径
type ListScope string

const (
	ScopeDefault        ListScope = ""            // 按角色推导默认口径
	ScopeMine           ListScope = "mine"        // 只看我提交的
	ScopeResponsibility ListScope = "responsible" // 只看我负责落实的
)

// SuggestionFilter 列表查询条件。总数统计与分页使用同一份最终条件，
// 角色默认口径收窄发生在统计之前。
type SuggestionFilter struct {
	ReviewStatuses         []ReviewStatus
	Types                  []SuggestionType
	Teams                  []Team
	TitleLike              string
	ImplementationStatuses []ImplementationStatus
	SubmitterID            uint
	ResponsiblePersons     []string
	ExcludeTypes           []SuggestionType

	Scope   ListScope
	ActorID uint

	// ForceEmpty 请求的口径与角色允许范围无交集时置位，列表恒为空
	ForceEmpty bool

	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}
