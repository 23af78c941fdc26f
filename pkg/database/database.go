package database

import (
	"fmt"
	"log"
	"suggestion_backend/internal/config"
	"suggestion_backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Suggestion{},
		&model.SuggestionAttachment{},
		&model.ImplementationRecord{},
		&model.ScoreRecord{},
		&model.SuggestionComment{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 首次启动时创建默认部门经理账号，密码需在上线后修改
	var count int64
	db.Model(&model.User{}).Count(&count)
	if count == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte("admin123456"), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		admin := &model.User{
			Name:     "系统管理员",
			Account:  "admin",
			Password: string(hashed),
			Role:     model.RoleDepartmentManager,
			Team:     model.TeamNone,
		}
		db.Create(admin)
		log.Println("Default department manager account created: admin")
	}

	return db, nil
}
