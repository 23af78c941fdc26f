package controller

import (
	"suggestion_backend/internal/model"
	"suggestion_backend/internal/service"
	"suggestion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// Register godoc
// @Summary 注册新用户
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(&req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Created(ctx, user)
}

// Login godoc
// @Summary 用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.LoginRequest true "登录信息"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "账号或密码错误"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Login(&req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// GetProfile godoc
// @Summary 获取当前用户信息
// @Tags 认证
// @Security BearerAuth
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.AuthService.Profile(user.UserID)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, profile)
}

// ListUsers godoc
// @Summary 用户列表（部门经理）
// @Tags 认证
// @Security BearerAuth
// @Produce json
// @Param role query string false "角色"
// @Param team query string false "班组"
// @Success 200 {object} util.Response
// @Router /api/users [get]
func (c *AuthController) ListUsers(ctx *gin.Context) {
	role := model.UserRole(ctx.Query("role"))
	team := model.NormalizeTeam(ctx.Query("team"))
	if ctx.Query("team") == "" {
		team = ""
	}

	users, err := c.AuthService.ListUsers(role, team)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, users)
}
