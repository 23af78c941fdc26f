package service

import (
	"errors"

	"suggestion_backend/internal/config"
	"suggestion_backend/internal/model"
	"suggestion_backend/internal/repository"
	"suggestion_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Config   *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{UserRepo: userRepo, Config: cfg}
}

type RegisterRequest struct {
	Name     string         `json:"name" binding:"required"`
	Account  string         `json:"account" binding:"required"`
	Password string         `json:"password" binding:"required,min=8"`
	Role     model.UserRole `json:"role" binding:"required"`
	Team     model.Team     `json:"team"`
}

type LoginRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(req *RegisterRequest) (*model.User, error) {
	if !req.Role.Valid() {
		return nil, util.Validation("无效的角色：%s", req.Role)
	}
	team := req.Team
	if team == "" {
		team = model.TeamNone
	}
	if !team.Valid() {
		return nil, util.Validation("无效的班组：%s", req.Team)
	}

	if _, err := s.UserRepo.FindByAccount(req.Account); err == nil {
		return nil, util.Validation("账号 %s 已被注册", req.Account)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.Internal(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, util.Internal(err)
	}

	user := &model.User{
		Name:     req.Name,
		Account:  req.Account,
		Password: string(hashed),
		Role:     req.Role,
		Team:     team,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, util.Internal(err)
	}
	return user, nil
}

func (s *AuthService) Login(req *LoginRequest) (*LoginResult, error) {
	user, err := s.UserRepo.FindByAccount(req.Account)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.Validation("账号或密码错误")
		}
		return nil, util.Internal(err)
	}
	if user.Disabled {
		return nil, util.ForbiddenErr("账号已被停用")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.Validation("账号或密码错误")
	}

	token, err := util.GenerateJWT(user, s.Config.JWT.Secret, s.Config.JWT.ExpireTime)
	if err != nil {
		return nil, util.Internal(err)
	}

	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) Profile(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFoundErr("用户不存在")
		}
		return nil, util.Internal(err)
	}
	return user, nil
}

func (s *AuthService) ListUsers(role model.UserRole, team model.Team) ([]model.User, error) {
	users, err := s.UserRepo.List(role, team)
	if err != nil {
		return nil, util.Internal(err)
	}
	return users, nil
}
