package repository

import (
	"suggestion_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByAccount(account string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("account = ?", account).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(role model.UserRole, team model.Team) ([]model.User, error) {
	var users []model.User
	q := r.DB.Model(&model.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if team != "" {
		q = q.Where("team = ?", team)
	}
	err := q.Order("id ASC").Find(&users).Error
	return users, err
}
