package service

import (
	"os"
	"strings"
	"testing"

	"suggestion_backend/internal/model"
	"suggestion_backend/internal/repository"
	"suggestion_backend/internal/util"
	"suggestion_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeStore 内存实现，版本语义与 repository 保持一致
type fakeStore struct {
	suggestions map[uint]*model.Suggestion
	comments    []model.SuggestionComment
	attachments []model.SuggestionAttachment
	nextID      uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{suggestions: map[uint]*model.Suggestion{}}
}

func (f *fakeStore) Create(s *model.Suggestion) error {
	f.nextID++
	s.ID = f.nextID
	c := *s
	f.suggestions[s.ID] = &c
	return nil
}

func (f *fakeStore) FindByID(id uint) (*model.Suggestion, error) {
	stored, ok := f.suggestions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *stored
	c.ImplementationHistory = append([]model.ImplementationRecord{}, stored.ImplementationHistory...)
	c.ScoreHistory = append([]model.ScoreRecord{}, stored.ScoreHistory...)
	c.Attachments = append([]model.SuggestionAttachment{}, stored.Attachments...)
	return &c, nil
}

func (f *fakeStore) SaveWithVersion(s *model.Suggestion, expected uint) error {
	stored, ok := f.suggestions[s.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != expected {
		return repository.ErrStaleVersion
	}
	s.Version = expected + 1
	for i := range s.ImplementationHistory {
		if s.ImplementationHistory[i].ID == 0 {
			f.nextID++
			s.ImplementationHistory[i].ID = f.nextID
			s.ImplementationHistory[i].SuggestionID = s.ID
		}
	}
	for i := range s.ScoreHistory {
		if s.ScoreHistory[i].ID == 0 {
			f.nextID++
			s.ScoreHistory[i].ID = f.nextID
			s.ScoreHistory[i].SuggestionID = s.ID
		}
	}
	c := *s
	f.suggestions[s.ID] = &c
	return nil
}

func (f *fakeStore) List(filter *model.SuggestionFilter) ([]model.Suggestion, int64, error) {
	matched := []model.Suggestion{}
	for id := uint(1); id <= f.nextID; id++ {
		s, ok := f.suggestions[id]
		if !ok || !f.matches(s, filter) {
			continue
		}
		matched = append(matched, *s)
	}
	total := int64(len(matched))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []model.Suggestion{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeStore) matches(s *model.Suggestion, filter *model.SuggestionFilter) bool {
	if filter.ForceEmpty {
		return false
	}
	if filter.SubmitterID != 0 && s.SubmitterID != filter.SubmitterID {
		return false
	}
	if len(filter.Teams) > 0 && !teamIn(s.Team, filter.Teams) {
		return false
	}
	if len(filter.Types) > 0 && !typeIn(s.Type, filter.Types) {
		return false
	}
	if len(filter.ExcludeTypes) > 0 && typeIn(s.Type, filter.ExcludeTypes) {
		return false
	}
	if len(filter.ReviewStatuses) > 0 {
		found := false
		for _, st := range filter.ReviewStatuses {
			if s.ReviewStatus == st {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if filter.TitleLike != "" && !strings.Contains(s.Title, filter.TitleLike) {
		return false
	}
	if len(filter.ResponsiblePersons) > 0 {
		found := false
		for _, p := range filter.ResponsiblePersons {
			if s.Implementation.ResponsiblePerson == p {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func teamIn(t model.Team, teams []model.Team) bool {
	for _, x := range teams {
		if x == t {
			return true
		}
	}
	return false
}

func typeIn(t model.SuggestionType, types []model.SuggestionType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (f *fakeStore) AddComment(c *model.SuggestionComment) error {
	f.nextID++
	c.ID = f.nextID
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeStore) AddAttachment(a *model.SuggestionAttachment) error {
	f.nextID++
	a.ID = f.nextID
	f.attachments = append(f.attachments, *a)
	if s, ok := f.suggestions[a.SuggestionID]; ok {
		s.Attachments = append(s.Attachments, *a)
	}
	return nil
}

func (f *fakeStore) CountAttachments(suggestionID uint) (int64, error) {
	var n int64
	for _, a := range f.attachments {
		if a.SuggestionID == suggestionID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindAttachment(suggestionID, attachmentID uint) (*model.SuggestionAttachment, error) {
	for i := range f.attachments {
		if f.attachments[i].SuggestionID == suggestionID && f.attachments[i].ID == attachmentID {
			a := f.attachments[i]
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) Delete(id uint) error {
	if _, ok := f.suggestions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.suggestions, id)
	return nil
}

func newTestService() (*SuggestionService, *fakeStore) {
	store := newFakeStore()
	return NewSuggestionService(store, nil, nil, nil), store
}

func claims(id uint, name string, role model.UserRole, team model.Team) *util.Claims {
	return &util.Claims{UserID: id, Name: name, Role: role, Team: team}
}

const longContent = "为了提升现场作业的安全水平，建议对高压区域的巡检流程做如下调整。"

func mustCreate(t *testing.T, svc *SuggestionService, actor *util.Claims, typ model.SuggestionType) *model.Suggestion {
	t.Helper()
	sug, err := svc.Create(actor, &CreateSuggestionRequest{
		Title:   "关于巡检流程的建议",
		Type:    typ,
		Content: longContent,
	})
	require.NoError(t, err)
	return sug
}

func requireKind(t *testing.T, err error, kind util.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, util.AsAppError(err).Kind)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)

	t.Run("内容过短", func(t *testing.T) {
		_, err := svc.Create(member, &CreateSuggestionRequest{
			Title: "标题", Type: model.TypeSafety, Content: "太短",
		})
		requireKind(t, err, util.KindValidation)
	})

	t.Run("类型非法", func(t *testing.T) {
		_, err := svc.Create(member, &CreateSuggestionRequest{
			Title: "标题", Type: "video", Content: longContent,
		})
		requireKind(t, err, util.KindValidation)
	})

	t.Run("管理员不能提交", func(t *testing.T) {
		admin := claims(2, "李四", model.RoleSafetyAdmin, model.TeamNone)
		_, err := svc.Create(admin, &CreateSuggestionRequest{
			Title: "标题", Type: model.TypeSafety, Content: longContent,
		})
		requireKind(t, err, util.KindForbidden)
	})

	t.Run("提交成功", func(t *testing.T) {
		sug := mustCreate(t, svc, member, model.TypeSafety)
		assert.Equal(t, model.StatusPendingFirstReview, sug.ReviewStatus)
		assert.Equal(t, model.TeamA, sug.Team)
		assert.Equal(t, uint(1), sug.SubmitterID)
	})
}

func TestFirstReview(t *testing.T) {
	svc, _ := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	sug := mustCreate(t, svc, member, model.TypeElectrical)

	t.Run("跨班组值班主任被拒", func(t *testing.T) {
		other := claims(2, "王五", model.RoleShiftSupervisor, model.TeamB)
		_, err := svc.SubmitReview(other, &ReviewRequest{
			SuggestionID: sug.ID, ReviewType: "first", Result: "approve",
		})
		requireKind(t, err, util.KindForbidden)
	})

	supervisor := claims(3, "赵六", model.RoleShiftSupervisor, model.TeamA)

	t.Run("同班组值班主任通过", func(t *testing.T) {
		updated, err := svc.SubmitReview(supervisor, &ReviewRequest{
			SuggestionID: sug.ID, ReviewType: "first", Result: "approve", Comments: "同意",
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusPendingSecondReview, updated.ReviewStatus)
		require.NotNil(t, updated.FirstReview.ReviewerID)
		assert.Equal(t, uint(3), *updated.FirstReview.ReviewerID)
		assert.Equal(t, model.ReviewApproved, updated.FirstReview.Result)
	})

	t.Run("重复一级审核报状态错误", func(t *testing.T) {
		_, err := svc.SubmitReview(supervisor, &ReviewRequest{
			SuggestionID: sug.ID, ReviewType: "first", Result: "approve",
		})
		requireKind(t, err, util.KindInvalidState)
	})

	t.Run("建议不存在", func(t *testing.T) {
		_, err := svc.SubmitReview(supervisor, &ReviewRequest{
			SuggestionID: 999, ReviewType: "first", Result: "approve",
		})
		requireKind(t, err, util.KindNotFound)
	})
}

func TestFirstReviewReject(t *testing.T) {
	svc, _ := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	sug := mustCreate(t, svc, member, model.TypeMechanical)

	manager := claims(2, "经理", model.RoleDepartmentManager, model.TeamNone)
	updated, err := svc.SubmitReview(manager, &ReviewRequest{
		SuggestionID: sug.ID, ReviewType: "first", Result: "reject", Comments: "不具备可行性",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, updated.ReviewStatus)

	// 驳回为终态，落实更新与评分均不可用
	_, err = svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{Status: model.ImplContacting})
	requireKind(t, err, util.KindInvalidState)
	_, err = svc.Score(manager, sug.ID, 5)
	requireKind(t, err, util.KindInvalidState)
}

func TestSecondReview(t *testing.T) {
	svc, _ := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	supervisor := claims(2, "赵六", model.RoleShiftSupervisor, model.TeamA)
	sug := mustCreate(t, svc, member, model.TypeSafety)

	t.Run("未过一级不能二级审核", func(t *testing.T) {
		manager := claims(3, "经理", model.RoleDepartmentManager, model.TeamNone)
		_, err := svc.SubmitReview(manager, &ReviewRequest{
			SuggestionID: sug.ID, ReviewType: "second", Result: "approve",
		})
		requireKind(t, err, util.KindInvalidState)
	})

	_, err := svc.SubmitReview(supervisor, &ReviewRequest{
		SuggestionID: sug.ID, ReviewType: "first", Result: "approve",
	})
	require.NoError(t, err)

	t.Run("运行管理员不能二审安全类", func(t *testing.T) {
		opAdmin := claims(4, "运行", model.RoleOperationAdmin, model.TeamNone)
		_, err := svc.SubmitReview(opAdmin, &ReviewRequest{
			SuggestionID: sug.ID, ReviewType: "second", Result: "approve",
		})
		requireKind(t, err, util.KindForbidden)
	})

	t.Run("安全管理员通过后初始化落实状态", func(t *testing.T) {
		safetyAdmin := claims(5, "安全", model.RoleSafetyAdmin, model.TeamNone)
		updated, err := svc.SubmitReview(safetyAdmin, &ReviewRequest{
			SuggestionID: sug.ID, ReviewType: "second", Result: "approve",
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, updated.ReviewStatus)
		assert.Equal(t, model.ImplNotStarted, updated.Implementation.Status)
		require.Len(t, updated.ImplementationHistory, 1)
		assert.Equal(t, model.ImplNotStarted, updated.ImplementationHistory[0].Status)
	})
}

func TestUpdateImplementation(t *testing.T) {
	svc, _ := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	manager := claims(2, "经理", model.RoleDepartmentManager, model.TeamNone)
	sug := mustCreate(t, svc, member, model.TypeAutomation)

	_, err := svc.SubmitReview(manager, &ReviewRequest{SuggestionID: sug.ID, ReviewType: "first", Result: "approve"})
	require.NoError(t, err)
	_, err = svc.SubmitReview(manager, &ReviewRequest{SuggestionID: sug.ID, ReviewType: "second", Result: "approve"})
	require.NoError(t, err)

	t.Run("班组成员不能更新落实", func(t *testing.T) {
		_, err := svc.UpdateImplementation(member, sug.ID, &ImplementationUpdateRequest{Status: model.ImplContacting})
		requireKind(t, err, util.KindForbidden)
	})

	t.Run("跳过对接直接进行中被拒", func(t *testing.T) {
		_, err := svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{Status: model.ImplInProgress})
		requireKind(t, err, util.KindInvalidTransition)
	})

	t.Run("日期格式错误", func(t *testing.T) {
		_, err := svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{
			Status: model.ImplContacting, StartDate: "2026/01/01",
		})
		requireKind(t, err, util.KindValidation)
	})

	t.Run("完成率越界", func(t *testing.T) {
		rate := 120
		_, err := svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{
			Status: model.ImplContacting, CompletionRate: &rate,
		})
		requireKind(t, err, util.KindValidation)
	})

	t.Run("合法迁移链", func(t *testing.T) {
		updated, err := svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{
			Status:            model.ImplContacting,
			ResponsiblePerson: "张工",
			StartDate:         "2026-08-01",
			Notes:             "已联系责任班组",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ImplContacting, updated.Implementation.Status)
		assert.Equal(t, "张工", updated.Implementation.ResponsiblePerson)
		require.NotNil(t, updated.Implementation.StartDate)
		// 二审通过一条 + 本次一条
		assert.Len(t, updated.ImplementationHistory, 2)

		updated, err = svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{Status: model.ImplInProgress})
		require.NoError(t, err)
		assert.Equal(t, model.ImplInProgress, updated.Implementation.Status)

		updated, err = svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{Status: model.ImplCompleted})
		require.NoError(t, err)
		assert.Equal(t, model.ImplCompleted, updated.Implementation.Status)
		// 完成时完成率自动补到 100
		assert.Equal(t, 100, updated.Implementation.CompletionRate)
	})

	t.Run("终态不能再迁移", func(t *testing.T) {
		_, err := svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{Status: model.ImplCancelled})
		requireKind(t, err, util.KindInvalidTransition)
	})

	t.Run("状态不变仅补备注", func(t *testing.T) {
		updated, err := svc.UpdateImplementation(manager, sug.ID, &ImplementationUpdateRequest{
			Status: model.ImplCompleted, Notes: "验收材料已归档",
		})
		require.NoError(t, err)
		assert.Equal(t, "验收材料已归档", updated.Implementation.Notes)
	})
}

func TestScore(t *testing.T) {
	svc, _ := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	manager := claims(2, "经理", model.RoleDepartmentManager, model.TeamNone)
	safetyAdmin := claims(3, "安全", model.RoleSafetyAdmin, model.TeamNone)
	sug := mustCreate(t, svc, member, model.TypeSafety)

	t.Run("未通过二审不能评分", func(t *testing.T) {
		_, err := svc.Score(manager, sug.ID, 8)
		requireKind(t, err, util.KindInvalidState)
	})

	_, err := svc.SubmitReview(manager, &ReviewRequest{SuggestionID: sug.ID, ReviewType: "first", Result: "approve"})
	require.NoError(t, err)
	_, err = svc.SubmitReview(safetyAdmin, &ReviewRequest{SuggestionID: sug.ID, ReviewType: "second", Result: "approve"})
	require.NoError(t, err)

	t.Run("评分越界", func(t *testing.T) {
		_, err := svc.Score(safetyAdmin, sug.ID, 10.5)
		requireKind(t, err, util.KindValidation)
	})

	t.Run("运行管理员不能给安全类评分", func(t *testing.T) {
		opAdmin := claims(4, "运行", model.RoleOperationAdmin, model.TeamNone)
		_, err := svc.Score(opAdmin, sug.ID, 7)
		requireKind(t, err, util.KindForbidden)
	})

	t.Run("重复评分旧值入历史", func(t *testing.T) {
		updated, err := svc.Score(safetyAdmin, sug.ID, 8.5)
		require.NoError(t, err)
		require.NotNil(t, updated.Scoring.Score)
		assert.Equal(t, 8.5, *updated.Scoring.Score)
		assert.Empty(t, updated.ScoreHistory)

		updated, err = svc.Score(manager, sug.ID, 9.0)
		require.NoError(t, err)
		assert.Equal(t, 9.0, *updated.Scoring.Score)
		assert.Equal(t, model.RoleDepartmentManager, updated.Scoring.ScorerRole)
		require.Len(t, updated.ScoreHistory, 1)
		assert.Equal(t, 8.5, updated.ScoreHistory[0].Score)
		assert.Equal(t, model.RoleSafetyAdmin, updated.ScoreHistory[0].ScorerRole)

		updated, err = svc.Score(manager, sug.ID, 9.5)
		require.NoError(t, err)
		assert.Len(t, updated.ScoreHistory, 2)
	})
}

func TestEditAndDelete(t *testing.T) {
	svc, store := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	manager := claims(2, "经理", model.RoleDepartmentManager, model.TeamNone)
	sug := mustCreate(t, svc, member, model.TypeMechanical)

	t.Run("非提交人不能编辑", func(t *testing.T) {
		_, err := svc.Edit(manager, sug.ID, &EditSuggestionRequest{Title: "改标题"})
		requireKind(t, err, util.KindForbidden)
	})

	t.Run("提交人一审前可编辑并留痕", func(t *testing.T) {
		updated, err := svc.Edit(member, sug.ID, &EditSuggestionRequest{
			Title:  "修订后的建议标题",
			Reason: "补充了现场数据",
		})
		require.NoError(t, err)
		assert.Equal(t, "修订后的建议标题", updated.Title)
		require.Len(t, store.comments, 1)
		assert.Equal(t, "修改说明：补充了现场数据", store.comments[0].Content)
	})

	_, err := svc.SubmitReview(manager, &ReviewRequest{SuggestionID: sug.ID, ReviewType: "first", Result: "approve"})
	require.NoError(t, err)

	t.Run("一审后不能再编辑", func(t *testing.T) {
		_, err := svc.Edit(member, sug.ID, &EditSuggestionRequest{Title: "再改"})
		requireKind(t, err, util.KindForbidden)
	})

	t.Run("二审通过前提交人可删除", func(t *testing.T) {
		other := mustCreate(t, svc, member, model.TypeOther)
		result, err := svc.Delete(member, other.ID)
		require.NoError(t, err)
		assert.True(t, result.Deleted)
		_, err = svc.Get(other.ID)
		requireKind(t, err, util.KindNotFound)
	})

	_, err = svc.SubmitReview(manager, &ReviewRequest{SuggestionID: sug.ID, ReviewType: "second", Result: "approve"})
	require.NoError(t, err)

	t.Run("二审通过后提交人不能删除", func(t *testing.T) {
		_, err := svc.Delete(member, sug.ID)
		requireKind(t, err, util.KindForbidden)
	})

	t.Run("部门经理始终可删除", func(t *testing.T) {
		result, err := svc.Delete(manager, sug.ID)
		require.NoError(t, err)
		assert.True(t, result.Deleted)
	})
}

func TestConcurrentModification(t *testing.T) {
	svc, store := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	manager := claims(2, "经理", model.RoleDepartmentManager, model.TeamNone)
	sug := mustCreate(t, svc, member, model.TypeElectrical)

	// 模拟另一请求先行提交，版本号前移
	store.suggestions[sug.ID].Version++

	_, err := svc.SubmitReview(manager, &ReviewRequest{
		SuggestionID: sug.ID, ReviewType: "first", Result: "approve",
	})
	requireKind(t, err, util.KindInvalidState)
}

// 完整生命周期：提交 -> 一级审核 -> 二级审核 -> 落实 -> 评分
func TestFullLifecycle(t *testing.T) {
	svc, _ := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	supervisor := claims(2, "赵六", model.RoleShiftSupervisor, model.TeamA)
	safetyAdmin := claims(3, "安全", model.RoleSafetyAdmin, model.TeamNone)
	manager := claims(4, "经理", model.RoleDepartmentManager, model.TeamNone)

	sug := mustCreate(t, svc, member, model.TypeSafety)
	require.Equal(t, model.StatusPendingFirstReview, sug.ReviewStatus)

	_, err := svc.SubmitReview(supervisor, &ReviewRequest{
		SuggestionID: sug.ID, ReviewType: "first", Result: "approve", Comments: "建议可行",
	})
	require.NoError(t, err)

	updated, err := svc.SubmitReview(safetyAdmin, &ReviewRequest{
		SuggestionID: sug.ID, ReviewType: "second", Result: "approve",
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, updated.ReviewStatus)
	require.Equal(t, model.ImplNotStarted, updated.Implementation.Status)

	_, err = svc.UpdateImplementation(safetyAdmin, sug.ID, &ImplementationUpdateRequest{
		Status: model.ImplContacting, ResponsiblePerson: "张工",
	})
	require.NoError(t, err)
	updated, err = svc.UpdateImplementation(safetyAdmin, sug.ID, &ImplementationUpdateRequest{
		Status: model.ImplInProgress,
	})
	require.NoError(t, err)
	require.Equal(t, "张工", updated.Implementation.ResponsiblePerson)

	_, err = svc.Score(safetyAdmin, sug.ID, 8.5)
	require.NoError(t, err)
	final, err := svc.Score(manager, sug.ID, 9.0)
	require.NoError(t, err)

	assert.Equal(t, 9.0, *final.Scoring.Score)
	require.Len(t, final.ScoreHistory, 1)
	assert.Equal(t, 8.5, final.ScoreHistory[0].Score)
	// 落实历史：二审初始化 + 两次状态迁移
	assert.Len(t, final.ImplementationHistory, 3)
}

func TestAddComment(t *testing.T) {
	svc, store := newTestService()
	member := claims(1, "张三", model.RoleTeamMember, model.TeamA)
	sug := mustCreate(t, svc, member, model.TypeOther)

	_, err := svc.AddComment(member, sug.ID, "")
	requireKind(t, err, util.KindValidation)

	comment, err := svc.AddComment(member, sug.ID, "请尽快安排审核")
	require.NoError(t, err)
	assert.Equal(t, sug.ID, comment.SuggestionID)
	assert.Len(t, store.comments, 1)
}
