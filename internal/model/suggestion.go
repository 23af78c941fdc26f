package model

import (
	"time"
)

// ReviewRecord 一级/二级审核记录，审核提交后只写一次
type ReviewRecord struct {
	ReviewerID *uint        `json:"reviewerId"`
	Result     ReviewResult `gorm:"size:20" json:"result,omitempty"`
	Comments   string       `gorm:"type:text" json:"comments,omitempty"`
	ReviewedAt *time.Time   `json:"reviewedAt"`
}

func (r ReviewRecord) Done() bool {
	return r.ReviewerID != nil
}

// ImplementationState 审核通过后的落实跟踪字段
type ImplementationState struct {
	Status            ImplementationStatus `gorm:"size:20" json:"status,omitempty"`
	ResponsiblePerson string               `gorm:"size:100" json:"responsiblePerson,omitempty"`
	StartDate         *time.Time           `json:"startDate"`
	PlannedEndDate    *time.Time           `json:"plannedEndDate"`
	ActualEndDate     *time.Time           `json:"actualEndDate"`
	Notes             string               `gorm:"type:text" json:"notes,omitempty"`
	CompletionRate    int                  `gorm:"default:0" json:"completionRate"`
}

// ScoreState 当前评分，历史值在 ScoreRecord 中保留
type ScoreState struct {
	Score      *float64   `json:"score"`
	ScorerID   *uint      `json:"scorerId"`
	ScorerRole UserRole   `gorm:"size:30" json:"scorerRole,omitempty"`
	ScoredAt   *time.Time `json:"scoredAt"`
}

// Suggestion 合理化建议聚合根
// swagger:model Suggestion
type Suggestion struct {
	BaseModel
	Title           string         `gorm:"size:100;not null" json:"title"`
	Type            SuggestionType `gorm:"size:20;not null;index" json:"type"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	ExpectedBenefit string         `gorm:"type:text" json:"expectedBenefit"`
	SubmitterID     uint           `gorm:"index;not null" json:"submitterId"`
	Team            Team           `gorm:"size:20;index;default:'none'" json:"team"`

	ReviewStatus ReviewStatus `gorm:"size:30;index;default:'pending_first_review'" json:"reviewStatus"`
	FirstReview  ReviewRecord `gorm:"embedded;embeddedPrefix:first_review_" json:"firstReview"`
	SecondReview ReviewRecord `gorm:"embedded;embeddedPrefix:second_review_" json:"secondReview"`

	Implementation ImplementationState `gorm:"embedded;embeddedPrefix:impl_" json:"implementation"`
	Scoring        ScoreState          `gorm:"embedded;embeddedPrefix:score_" json:"scoring"`

	// 乐观锁版本号，所有状态迁移都以条件更新方式提交
	Version uint `gorm:"default:0" json:"-"`

	Attachments           []SuggestionAttachment `gorm:"foreignKey:SuggestionID" json:"attachments,omitempty"`
	ImplementationHistory []ImplementationRecord `gorm:"foreignKey:SuggestionID" json:"implementationHistory,omitempty"`
	ScoreHistory          []ScoreRecord          `gorm:"foreignKey:SuggestionID" json:"scoreHistory,omitempty"`
	Comments              []SuggestionComment    `gorm:"foreignKey:SuggestionID" json:"comments,omitempty"`
}

func (Suggestion) TableName() string {
	return "suggestions"
}

// SuggestionAttachment 附件元数据，文件内容存放在对象存储
type SuggestionAttachment struct {
	BaseModel
	SuggestionID uint   `gorm:"index;not null" json:"suggestionId"`
	StoredName   string `gorm:"size:255;not null" json:"filename"`
	OriginalName string `gorm:"size:255;not null" json:"originalname"`
	MimeType     string `gorm:"size:100" json:"mimetype"`
	Size         int64  `json:"size"`
}

func (SuggestionAttachment) TableName() string {
	return "suggestion_attachments"
}

// ImplementationRecord 落实历史，按插入顺序只追加
type ImplementationRecord struct {
	BaseModel
	SuggestionID uint                 `gorm:"index;not null" json:"suggestionId"`
	Status       ImplementationStatus `gorm:"size:20;not null" json:"status"`
	UpdatedBy    uint                 `gorm:"not null" json:"updatedBy"`
	Notes        string               `gorm:"type:text" json:"notes,omitempty"`
}

func (ImplementationRecord) TableName() string {
	return "suggestion_implementation_records"
}

// ScoreRecord 被覆盖前的历史评分
type ScoreRecord struct {
	BaseModel
	SuggestionID uint     `gorm:"index;not null" json:"suggestionId"`
	Score        float64  `json:"score"`
	ScorerID     uint     `json:"scorerId"`
	ScorerRole   UserRole `gorm:"size:30" json:"scorerRole"`
	ScoredAt     time.Time `json:"scoredAt"`
}

func (ScoreRecord) TableName() string {
	return "suggestion_score_records"
}

// SuggestionComment 评论，只追加
type SuggestionComment struct {
	BaseModel
	SuggestionID uint   `gorm:"index;not null" json:"suggestionId"`
	AuthorID     uint   `gorm:"not null" json:"authorId"`
	Content      string `gorm:"type:text;not null" json:"content"`
}

func (SuggestionComment) TableName() string {
	return "suggestion_comments"
}
