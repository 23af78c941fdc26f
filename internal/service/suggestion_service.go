package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"suggestion_backend/internal/model"
	"suggestion_backend/internal/policy"
	"suggestion_backend/internal/repository"
	"suggestion_backend/internal/util"
	"suggestion_backend/pkg/logger"
	"suggestion_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	detailCacheKeyPrefix = "suggestion:detail:"
	detailCacheTTL       = 10 * time.Minute
)

// SuggestionStore 生命周期引擎依赖的持久化接口，由 repository 实现
type SuggestionStore interface {
	Create(*model.Suggestion) error
	FindByID(uint) (*model.Suggestion, error)
	List(*model.SuggestionFilter) ([]model.Suggestion, int64, error)
	SaveWithVersion(*model.Suggestion, uint) error
	AddComment(*model.SuggestionComment) error
	AddAttachment(*model.SuggestionAttachment) error
	CountAttachments(uint) (int64, error)
	FindAttachment(uint, uint) (*model.SuggestionAttachment, error)
	Delete(uint) error
}

// ReviewNotifier 审核结果通知，允许失败（实现方自行记日志）
type ReviewNotifier interface {
	ReviewDecided(s *model.Suggestion, stage string)
}

type SuggestionService struct {
	Store    SuggestionStore
	Storage  *StorageService
	Notifier ReviewNotifier
	Redis    *redis.Client
}

func NewSuggestionService(store SuggestionStore, storage *StorageService, notifier ReviewNotifier, rdb *redis.Client) *SuggestionService {
	return &SuggestionService{
		Store:    store,
		Storage:  storage,
		Notifier: notifier,
		Redis:    rdb,
	}
}

type CreateSuggestionRequest struct {
	Title           string               `json:"title" binding:"required"`
	Type            model.SuggestionType `json:"type" binding:"required"`
	Content         string               `json:"content" binding:"required"`
	ExpectedBenefit string               `json:"expectedBenefit"`
}

type ReviewRequest struct {
	SuggestionID uint   `json:"suggestionId" binding:"required"`
	ReviewType   string `json:"reviewType" binding:"required,oneof=first second"`
	Result       string `json:"result" binding:"required,oneof=approve reject"`
	Comments     string `json:"comments"`
}

type ImplementationUpdateRequest struct {
	Status            model.ImplementationStatus `json:"status" binding:"required"`
	ResponsiblePerson string                     `json:"responsiblePerson"`
	StartDate         string                     `json:"startDate"`
	PlannedEndDate    string                     `json:"plannedCompletionDate"`
	ActualEndDate     string                     `json:"actualCompletionDate"`
	Notes             string                     `json:"notes"`
	CompletionRate    *int                       `json:"completionRate"`
}

type EditSuggestionRequest struct {
	Title           string               `json:"title"`
	Type            model.SuggestionType `json:"type"`
	Content         string               `json:"content"`
	ExpectedBenefit string               `json:"expectedBenefit"`
	Reason          string               `json:"reason"`
}

// DeleteResult 删除结果。附件清理是尽力而为，失败文件单独上报。
type DeleteResult struct {
	Deleted           bool     `json:"deleted"`
	FailedAttachments []string `json:"failedAttachments,omitempty"`
}

func (s *SuggestionService) load(id uint) (*model.Suggestion, error) {
	sug, err := s.Store.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFoundErr("建议不存在（id=%d）", id)
		}
		return nil, util.Internal(err)
	}
	return sug, nil
}

func (s *SuggestionService) save(sug *model.Suggestion, expected uint) error {
	if err := s.Store.SaveWithVersion(sug, expected); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return &util.AppError{
				Kind:    util.KindInvalidState,
				Message: "建议已被并发修改，请刷新后重试",
			}
		}
		return util.Internal(err)
	}
	s.invalidate(sug.ID)
	return nil
}

func (s *SuggestionService) invalidate(id uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(context.Background(), fmt.Sprintf("%s%d", detailCacheKeyPrefix, id))
}

func validateContent(title string, t model.SuggestionType, content string) error {
	if title == "" || utf8.RuneCountInString(title) > 100 {
		return util.Validation("标题不能为空且不超过 100 字")
	}
	if !t.Valid() {
		return util.Validation("无效的建议类型：%s", t)
	}
	if utf8.RuneCountInString(content) < 20 {
		return util.Validation("建议内容不少于 20 字")
	}
	return nil
}

// Create 提交建议，初始状态为待一级审核，班组取自提交人身份
func (s *SuggestionService) Create(actor *util.Claims, req *CreateSuggestionRequest) (*model.Suggestion, error) {
	if !policy.CanSubmit(actor.Role) {
		return nil, util.ForbiddenErr("角色 %s 不能提交建议", actor.Role)
	}
	if err := validateContent(req.Title, req.Type, req.Content); err != nil {
		return nil, err
	}

	sug := &model.Suggestion{
		Title:           req.Title,
		Type:            req.Type,
		Content:         req.Content,
		ExpectedBenefit: req.ExpectedBenefit,
		SubmitterID:     actor.UserID,
		Team:            actor.Team,
		ReviewStatus:    model.StatusPendingFirstReview,
	}
	if sug.Team == "" {
		sug.Team = model.TeamNone
	}

	if err := s.Store.Create(sug); err != nil {
		return nil, util.Internal(err)
	}
	return sug, nil
}

// SubmitReview 一级/二级审核入口。状态已前移后重复提交返回 InvalidState，
// 并发下由乐观锁保证至多一次迁移成功。
func (s *SuggestionService) SubmitReview(actor *util.Claims, req *ReviewRequest) (*model.Suggestion, error) {
	sug, err := s.load(req.SuggestionID)
	if err != nil {
		return nil, err
	}
	expected := sug.Version

	now := time.Now()
	reviewerID := actor.UserID
	record := model.ReviewRecord{
		ReviewerID: &reviewerID,
		Comments:   req.Comments,
		ReviewedAt: &now,
	}

	var stage string
	switch req.ReviewType {
	case "first":
		stage = "first_review"
		if sug.ReviewStatus != model.StatusPendingFirstReview {
			return nil, util.InvalidState(string(sug.ReviewStatus), string(model.StatusPendingFirstReview))
		}
		if !policy.CanFirstReview(actor.Role, actor.Team, sug) {
			return nil, util.ForbiddenErr("一级审核需要部门经理或本班组值班主任（当前角色：%s）", actor.Role)
		}
		if req.Result == "approve" {
			record.Result = model.ReviewApproved
			sug.ReviewStatus = model.StatusPendingSecondReview
		} else {
			record.Result = model.ReviewRejected
			sug.ReviewStatus = model.StatusRejected
		}
		sug.FirstReview = record

	case "second":
		stage = "second_review"
		if sug.ReviewStatus != model.StatusPendingSecondReview {
			return nil, util.InvalidState(string(sug.ReviewStatus), string(model.StatusPendingSecondReview))
		}
		if !policy.CanSecondReview(actor.Role, sug) {
			return nil, util.ForbiddenErr("该建议的二级审核不属于当前角色 %s 的职责范围", actor.Role)
		}
		if req.Result == "approve" {
			record.Result = model.ReviewApproved
			sug.ReviewStatus = model.StatusApproved
			// 进入落实阶段，初始化子状态机并写入首条历史
			sug.Implementation.Status = model.ImplNotStarted
			sug.ImplementationHistory = append(sug.ImplementationHistory, model.ImplementationRecord{
				SuggestionID: sug.ID,
				Status:       model.ImplNotStarted,
				UpdatedBy:    actor.UserID,
				Notes:        "二级审核通过，建议进入落实阶段",
			})
		} else {
			record.Result = model.ReviewRejected
			sug.ReviewStatus = model.StatusRejected
		}
		sug.SecondReview = record

	default:
		return nil, util.Validation("无效的审核类型：%s", req.ReviewType)
	}

	if err := s.save(sug, expected); err != nil {
		return nil, err
	}

	monitoring.SuggestionTransitions.WithLabelValues(stage, string(record.Result)).Inc()
	if s.Notifier != nil {
		go s.Notifier.ReviewDecided(sug, stage)
	}
	return sug, nil
}

// UpdateImplementation 落实状态更新。仅限已通过二审的建议，
// 且必须满足子状态机邻接表。
func (s *SuggestionService) UpdateImplementation(actor *util.Claims, id uint, req *ImplementationUpdateRequest) (*model.Suggestion, error) {
	sug, err := s.load(id)
	if err != nil {
		return nil, err
	}
	expected := sug.Version

	if sug.ReviewStatus != model.StatusApproved {
		return nil, util.InvalidState(string(sug.ReviewStatus), string(model.StatusApproved))
	}
	if !policy.CanUpdateImplementation(actor.Role) {
		return nil, util.ForbiddenErr("角色 %s 不能更新落实状态", actor.Role)
	}
	if !req.Status.Valid() {
		return nil, util.Validation("无效的落实状态：%s", req.Status)
	}

	statusChanged := req.Status != sug.Implementation.Status
	if statusChanged && !model.CanTransitionImplementation(sug.Implementation.Status, req.Status) {
		return nil, util.InvalidTransition(string(sug.Implementation.Status), string(req.Status))
	}

	if req.CompletionRate != nil {
		if *req.CompletionRate < 0 || *req.CompletionRate > 100 {
			return nil, util.Validation("完成率必须在 0 到 100 之间")
		}
		sug.Implementation.CompletionRate = *req.CompletionRate
	}
	if req.ResponsiblePerson != "" {
		sug.Implementation.ResponsiblePerson = req.ResponsiblePerson
	}
	if err := applyDate(req.StartDate, &sug.Implementation.StartDate); err != nil {
		return nil, err
	}
	if err := applyDate(req.PlannedEndDate, &sug.Implementation.PlannedEndDate); err != nil {
		return nil, err
	}
	if err := applyDate(req.ActualEndDate, &sug.Implementation.ActualEndDate); err != nil {
		return nil, err
	}
	if req.Notes != "" {
		sug.Implementation.Notes = req.Notes
	}
	sug.Implementation.Status = req.Status
	if req.Status == model.ImplCompleted && sug.Implementation.CompletionRate == 0 {
		sug.Implementation.CompletionRate = 100
	}

	// 状态变化或有备注时追加历史
	if statusChanged || req.Notes != "" {
		sug.ImplementationHistory = append(sug.ImplementationHistory, model.ImplementationRecord{
			SuggestionID: sug.ID,
			Status:       req.Status,
			UpdatedBy:    actor.UserID,
			Notes:        req.Notes,
		})
	}

	if err := s.save(sug, expected); err != nil {
		return nil, err
	}
	monitoring.SuggestionTransitions.WithLabelValues("implementation", string(req.Status)).Inc()
	return sug, nil
}

func applyDate(value string, target **time.Time) error {
	if value == "" {
		return nil
	}
	t, err := time.Parse(util.DateFormat, value)
	if err != nil {
		return util.Validation("日期格式应为 %s：%s", util.DateFormat, value)
	}
	*target = &t
	return nil
}

// Score 评分。重复评分时先把旧值压入历史再覆盖。
func (s *SuggestionService) Score(actor *util.Claims, id uint, score float64) (*model.Suggestion, error) {
	sug, err := s.load(id)
	if err != nil {
		return nil, err
	}
	expected := sug.Version

	if sug.ReviewStatus != model.StatusApproved {
		return nil, util.InvalidState(string(sug.ReviewStatus), string(model.StatusApproved))
	}
	if !policy.CanScore(actor.Role, sug) {
		return nil, util.ForbiddenErr("该建议的评分不属于当前角色 %s 的职责范围", actor.Role)
	}
	if score < 0 || score > 10 {
		return nil, util.Validation("评分必须在 0 到 10 之间")
	}

	if sug.Scoring.Score != nil {
		prior := model.ScoreRecord{
			SuggestionID: sug.ID,
			Score:        *sug.Scoring.Score,
			ScorerRole:   sug.Scoring.ScorerRole,
		}
		if sug.Scoring.ScorerID != nil {
			prior.ScorerID = *sug.Scoring.ScorerID
		}
		if sug.Scoring.ScoredAt != nil {
			prior.ScoredAt = *sug.Scoring.ScoredAt
		}
		sug.ScoreHistory = append(sug.ScoreHistory, prior)
	}

	now := time.Now()
	scorerID := actor.UserID
	sug.Scoring = model.ScoreState{
		Score:      &score,
		ScorerID:   &scorerID,
		ScorerRole: actor.Role,
		ScoredAt:   &now,
	}

	if err := s.save(sug, expected); err != nil {
		return nil, err
	}
	monitoring.SuggestionTransitions.WithLabelValues("score", "scored").Inc()
	return sug, nil
}

// Edit 提交人在一级审核前修改建议内容
func (s *SuggestionService) Edit(actor *util.Claims, id uint, req *EditSuggestionRequest) (*model.Suggestion, error) {
	sug, err := s.load(id)
	if err != nil {
		return nil, err
	}
	expected := sug.Version

	if !policy.CanEdit(actor.Role, actor.UserID, sug) {
		return nil, util.ForbiddenErr("仅提交人可在一级审核前编辑建议（当前状态：%s）", sug.ReviewStatus)
	}

	if req.Title != "" {
		sug.Title = req.Title
	}
	if req.Type != "" {
		sug.Type = req.Type
	}
	if req.Content != "" {
		sug.Content = req.Content
	}
	if req.ExpectedBenefit != "" {
		sug.ExpectedBenefit = req.ExpectedBenefit
	}
	if err := validateContent(sug.Title, sug.Type, sug.Content); err != nil {
		return nil, err
	}

	if err := s.save(sug, expected); err != nil {
		return nil, err
	}

	// 修改说明以评论形式留痕
	if req.Reason != "" {
		comment := &model.SuggestionComment{
			SuggestionID: sug.ID,
			AuthorID:     actor.UserID,
			Content:      "修改说明：" + req.Reason,
		}
		if err := s.Store.AddComment(comment); err != nil {
			logger.Log.Warn("failed to record edit reason", zap.Uint("id", sug.ID), zap.Error(err))
		}
	}
	return sug, nil
}

// Delete 删除建议记录后尽力清理附件文件，清理失败不回滚删除
func (s *SuggestionService) Delete(actor *util.Claims, id uint) (*DeleteResult, error) {
	sug, err := s.load(id)
	if err != nil {
		return nil, err
	}

	if !policy.CanDelete(actor.Role, actor.UserID, sug) {
		return nil, util.ForbiddenErr("仅部门经理或提交人（二审通过前）可删除建议")
	}

	if err := s.Store.Delete(id); err != nil {
		return nil, util.Internal(err)
	}
	s.invalidate(id)

	result := &DeleteResult{Deleted: true}
	if s.Storage != nil {
		for _, a := range sug.Attachments {
			if err := s.Storage.Delete(context.Background(), a.StoredName); err != nil {
				logger.Log.Warn("attachment cleanup failed",
					zap.Uint("suggestionId", id),
					zap.String("file", a.StoredName),
					zap.Error(err),
				)
				result.FailedAttachments = append(result.FailedAttachments, a.OriginalName)
			}
		}
	}
	return result, nil
}

// AddComment 评论只追加，授权通过后不会被拒绝
func (s *SuggestionService) AddComment(actor *util.Claims, id uint, content string) (*model.SuggestionComment, error) {
	if content == "" {
		return nil, util.Validation("评论内容不能为空")
	}
	sug, err := s.load(id)
	if err != nil {
		return nil, err
	}

	comment := &model.SuggestionComment{
		SuggestionID: sug.ID,
		AuthorID:     actor.UserID,
		Content:      content,
	}
	if err := s.Store.AddComment(comment); err != nil {
		return nil, util.Internal(err)
	}
	s.invalidate(id)
	return comment, nil
}

// Get 详情读取，带 Redis 缓存
func (s *SuggestionService) Get(id uint) (*model.Suggestion, error) {
	key := fmt.Sprintf("%s%d", detailCacheKeyPrefix, id)
	if s.Redis != nil {
		if raw, err := s.Redis.Get(context.Background(), key).Result(); err == nil {
			var cached model.Suggestion
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return &cached, nil
			}
		}
	}

	sug, err := s.load(id)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(sug); err == nil {
			s.Redis.Set(context.Background(), key, raw, detailCacheTTL)
		}
	}
	return sug, nil
}

// List 角色默认口径 + 调用方过滤条件，总数与分页基于同一份最终条件
func (s *SuggestionService) List(actor *util.Claims, f *model.SuggestionFilter) ([]model.Suggestion, int64, error) {
	ApplyRoleScope(actor, f)
	items, total, err := s.Store.List(f)
	if err != nil {
		return nil, 0, util.Internal(err)
	}
	return items, total, nil
}

// ApplyRoleScope 在调用方未显式要求"我提交的/我负责的"时套用角色默认口径：
// 班组成员只看自己提交的；值班主任限定本班组；安全管理员限定安全类；
// 运行管理员排除安全类；部门经理不收窄。
func ApplyRoleScope(actor *util.Claims, f *model.SuggestionFilter) {
	f.ActorID = actor.UserID

	switch f.Scope {
	case model.ScopeMine:
		f.SubmitterID = actor.UserID
		return
	case model.ScopeResponsibility:
		f.ResponsiblePersons = []string{actor.Name}
		return
	}

	switch actor.Role {
	case model.RoleTeamMember:
		f.SubmitterID = actor.UserID
	case model.RoleShiftSupervisor:
		if len(f.Teams) == 0 {
			f.Teams = []model.Team{actor.Team}
		} else if !containsTeam(f.Teams, actor.Team) {
			// 请求了别的班组：收紧为空结果而不是放宽口径
			f.ForceEmpty = true
		} else {
			f.Teams = []model.Team{actor.Team}
		}
	case model.RoleSafetyAdmin:
		if len(f.Types) > 0 && !containsType(f.Types, model.TypeSafety) {
			f.ForceEmpty = true
		} else {
			f.Types = []model.SuggestionType{model.TypeSafety}
		}
	case model.RoleOperationAdmin:
		f.ExcludeTypes = append(f.ExcludeTypes, model.TypeSafety)
	}
}

func containsType(types []model.SuggestionType, t model.SuggestionType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func containsTeam(teams []model.Team, t model.Team) bool {
	for _, x := range teams {
		if x == t {
			return true
		}
	}
	return false
}
