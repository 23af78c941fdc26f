package repository

import (
	"errors"
	"strings"
	"suggestion_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleVersion 条件更新未命中任何行，说明聚合已被并发修改
var ErrStaleVersion = errors.New("suggestion modified concurrently")

type SuggestionRepository struct {
	DB *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{DB: db}
}

func (r *SuggestionRepository) Create(s *model.Suggestion) error {
	return r.DB.Create(s).Error
}

func (r *SuggestionRepository) FindByID(id uint) (*model.Suggestion, error) {
	var s model.Suggestion
	err := r.DB.
		Preload("Attachments").
		Preload("ImplementationHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("ScoreHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveWithVersion 以乐观锁提交聚合变更。同一事务内追加新的历史行，
// 版本号不匹配时整体回滚并返回 ErrStaleVersion。
func (r *SuggestionRepository) SaveWithVersion(s *model.Suggestion, expected uint) error {
	s.Version = expected + 1
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Suggestion{}).
			Where("id = ? AND version = ?", s.ID, expected).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(s)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleVersion
		}

		for i := range s.ImplementationHistory {
			if s.ImplementationHistory[i].ID == 0 {
				s.ImplementationHistory[i].SuggestionID = s.ID
				if err := tx.Create(&s.ImplementationHistory[i]).Error; err != nil {
					return err
				}
			}
		}
		for i := range s.ScoreHistory {
			if s.ScoreHistory[i].ID == 0 {
				s.ScoreHistory[i].SuggestionID = s.ID
				if err := tx.Create(&s.ScoreHistory[i]).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *SuggestionRepository) AddComment(c *model.SuggestionComment) error {
	return r.DB.Create(c).Error
}

func (r *SuggestionRepository) AddAttachment(a *model.SuggestionAttachment) error {
	return r.DB.Create(a).Error
}

func (r *SuggestionRepository) CountAttachments(suggestionID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SuggestionAttachment{}).
		Where("suggestion_id = ?", suggestionID).Count(&count).Error
	return count, err
}

func (r *SuggestionRepository) FindAttachment(suggestionID, attachmentID uint) (*model.SuggestionAttachment, error) {
	var a model.SuggestionAttachment
	err := r.DB.Where("suggestion_id = ?", suggestionID).First(&a, attachmentID).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete 删除聚合及全部子记录，单事务完成
func (r *SuggestionRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("suggestion_id = ?", id).Delete(&model.SuggestionAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("suggestion_id = ?", id).Delete(&model.ImplementationRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("suggestion_id = ?", id).Delete(&model.ScoreRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("suggestion_id = ?", id).Delete(&model.SuggestionComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Suggestion{}, id).Error
	})
}

// sortColumns 列表排序字段白名单，嵌套字段映射到实际列名
var sortColumns = map[string]string{
	"createdAt":            "created_at",
	"updatedAt":            "updated_at",
	"title":                "title",
	"type":                 "type",
	"team":                 "team",
	"reviewStatus":         "review_status",
	"implementationStatus": "impl_status",
	"score":                "score_score",
	"scoring.score":        "score_score",
	"completionRate":       "impl_completion_rate",
}

// List 按最终过滤条件返回一页数据与总数。总数在同一条件上统计，
// 角色口径收窄已在条件中生效。
func (r *SuggestionRepository) List(f *model.SuggestionFilter) ([]model.Suggestion, int64, error) {
	q := r.applyFilter(r.DB.Model(&model.Suggestion{}), f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 10
	}

	items := []model.Suggestion{}
	err := q.Order(r.orderClause(f)).
		Offset((page - 1) * limit).
		Limit(limit).
		Preload("Attachments").
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *SuggestionRepository) applyFilter(q *gorm.DB, f *model.SuggestionFilter) *gorm.DB {
	if f.ForceEmpty {
		return q.Where("1 = 0")
	}
	if len(f.ReviewStatuses) > 0 {
		q = q.Where("review_status IN ?", f.ReviewStatuses)
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	}
	if len(f.ExcludeTypes) > 0 {
		q = q.Where("type NOT IN ?", f.ExcludeTypes)
	}
	if len(f.Teams) > 0 {
		q = q.Where("team IN ?", f.Teams)
	}
	if f.TitleLike != "" {
		q = q.Where("title LIKE ?", "%"+f.TitleLike+"%")
	}
	if len(f.ImplementationStatuses) > 0 {
		q = q.Where("impl_status IN ?", f.ImplementationStatuses)
	}
	if f.SubmitterID != 0 {
		q = q.Where("submitter_id = ?", f.SubmitterID)
	}
	if len(f.ResponsiblePersons) > 0 {
		q = q.Where("impl_responsible_person IN ?", f.ResponsiblePersons)
	}
	return q
}

func (r *SuggestionRepository) orderClause(f *model.SuggestionFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		return "created_at DESC"
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}
	return col + " " + order
}
