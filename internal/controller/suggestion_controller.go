package controller

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"suggestion_backend/internal/model"
	"suggestion_backend/internal/service"
	"suggestion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SuggestionController struct {
	SuggestionService *service.SuggestionService
}

func NewSuggestionController(suggestionService *service.SuggestionService) *SuggestionController {
	return &SuggestionController{SuggestionService: suggestionService}
}

// @Summary 提交合理化建议
// @Tags 建议
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.CreateSuggestionRequest true "建议内容"
// @Success 201 {object} util.Response
// @Router /api/suggestions [post]
func (c *SuggestionController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateSuggestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sug, err := c.SuggestionService.Create(user, &req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Created(ctx, sug)
}

// @Summary 建议列表
// @Tags 建议
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Param sortBy query string false "排序字段"
// @Param sortOrder query string false "asc/desc"
// @Param title query string false "标题模糊匹配"
// @Param type query string false "类型，逗号分隔"
// @Param team query string false "班组，逗号分隔，接受键值或展示名"
// @Param reviewStatus query string false "审核状态，逗号分隔"
// @Param implementationStatus query string false "落实状态，逗号分隔"
// @Param submitterId query int false "提交人ID"
// @Param responsiblePersonId query string false "落实负责人，逗号分隔"
// @Param scope query string false "mine=我提交的 responsible=我负责的"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/suggestions [get]
func (c *SuggestionController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	f := parseSuggestionFilter(ctx)

	items, total, err := c.SuggestionService.List(user, f)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	})
}

func parseSuggestionFilter(ctx *gin.Context) *model.SuggestionFilter {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limitStr := ctx.Query("limit")
	if limitStr == "" {
		limitStr = ctx.DefaultQuery("pageSize", "10")
	}
	limit, _ := strconv.Atoi(limitStr)

	f := &model.SuggestionFilter{
		TitleLike: ctx.Query("title"),
		SortBy:    ctx.Query("sortBy"),
		SortOrder: ctx.Query("sortOrder"),
		Scope:     model.ListScope(ctx.Query("scope")),
		Page:      page,
		Limit:     limit,
	}

	for _, v := range splitCSV(ctx.Query("type")) {
		f.Types = append(f.Types, model.SuggestionType(v))
	}
	for _, v := range splitCSV(ctx.Query("team")) {
		f.Teams = append(f.Teams, model.NormalizeTeam(v))
	}
	for _, v := range splitCSV(ctx.Query("reviewStatus")) {
		f.ReviewStatuses = append(f.ReviewStatuses, model.ReviewStatus(v))
	}
	for _, v := range splitCSV(ctx.Query("implementationStatus")) {
		f.ImplementationStatuses = append(f.ImplementationStatuses, model.ImplementationStatus(v))
	}
	f.ResponsiblePersons = splitCSV(ctx.Query("responsiblePersonId"))

	if v := ctx.Query("submitterId"); v != "" {
		f.SubmitterID = util.MustParseUint(v)
	}

	return f
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// @Summary 建议详情
// @Tags 建议
// @Security BearerAuth
// @Produce json
// @Param id path int true "建议ID"
// @Success 200 {object} util.Response
// @Router /api/suggestions/{id} [get]
func (c *SuggestionController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	sug, err := c.SuggestionService.Get(id)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, sug)
}

// @Summary 提交审核结论（一级/二级）
// @Tags 建议
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.ReviewRequest true "审核结论"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "状态不允许"
// @Failure 403 {object} util.Response "无审核权限"
// @Router /api/suggestions/review [post]
func (c *SuggestionController) Review(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sug, err := c.SuggestionService.SubmitReview(user, &req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, sug)
}

// @Summary 更新落实状态
// @Tags 建议
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "建议ID"
// @Param body body service.ImplementationUpdateRequest true "落实信息"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "非法状态迁移"
// @Router /api/suggestions/{id}/implementation [put]
func (c *SuggestionController) UpdateImplementation(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.ImplementationUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sug, err := c.SuggestionService.UpdateImplementation(user, id, &req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, sug)
}

type scoreRequest struct {
	Score *float64 `json:"score" binding:"required"`
}

// @Summary 建议评分
// @Tags 建议
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "建议ID"
// @Param body body scoreRequest true "0-10 分"
// @Success 200 {object} util.Response
// @Router /api/suggestions/{id}/score [post]
func (c *SuggestionController) Score(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req scoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sug, err := c.SuggestionService.Score(user, id, *req.Score)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, sug)
}

// @Summary 编辑建议（一级审核前）
// @Tags 建议
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "建议ID"
// @Param body body service.EditSuggestionRequest true "修改内容"
// @Success 200 {object} util.Response
// @Router /api/suggestions/{id} [put]
func (c *SuggestionController) Edit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.EditSuggestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sug, err := c.SuggestionService.Edit(user, id, &req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, sug)
}

// @Summary 删除建议
// @Tags 建议
// @Security BearerAuth
// @Produce json
// @Param id path int true "建议ID"
// @Success 200 {object} util.Response
// @Router /api/suggestions/{id} [delete]
func (c *SuggestionController) Delete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.SuggestionService.Delete(user, id)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, result)
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// @Summary 添加评论
// @Tags 建议
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "建议ID"
// @Param body body commentRequest true "评论内容"
// @Success 201 {object} util.Response
// @Router /api/suggestions/{id}/comments [post]
func (c *SuggestionController) AddComment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	comment, err := c.SuggestionService.AddComment(user, id, req.Content)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Created(ctx, comment)
}

// @Summary 上传附件
// @Tags 建议
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "建议ID"
// @Param file formData file true "附件文件"
// @Success 201 {object} util.Response
// @Router /api/suggestions/{id}/attachments [post]
func (c *SuggestionController) UploadAttachment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}
	if fileHeader.Size > util.MaxAttachmentSize {
		util.BadRequest(ctx, "附件大小不能超过 10MB")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	defer file.Close()

	mimeType, err := util.ValidateMimeType(file, util.AllowedAttachmentMimes)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		util.Fail(ctx, err)
		return
	}

	att, upErr := c.SuggestionService.UploadAttachment(user, id, fileHeader.Filename, mimeType, fileHeader.Size, file)
	if upErr != nil {
		util.Fail(ctx, upErr)
		return
	}

	util.Created(ctx, att)
}

// @Summary 下载附件
// @Tags 建议
// @Security BearerAuth
// @Produce octet-stream
// @Param id path int true "建议ID"
// @Param attachmentId path int true "附件ID"
// @Success 200 {file} binary
// @Router /api/suggestions/{id}/attachments/{attachmentId} [get]
func (c *SuggestionController) DownloadAttachment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	attID, ok := pathID(ctx, "attachmentId")
	if !ok {
		return
	}

	att, reader, err := c.SuggestionService.OpenAttachment(id, attID)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	defer reader.Close()

	ctx.Header("Content-Disposition", "attachment; filename=\""+att.OriginalName+"\"")
	ctx.DataFromReader(http.StatusOK, att.Size, att.MimeType, reader, nil)
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
