package model

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Account  string   `gorm:"size:100;unique;not null" json:"account"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:30;not null;default:'team_member'" json:"role"`
	Team     Team     `gorm:"size:20;default:'none'" json:"team"`
	Disabled bool     `gorm:"default:false" json:"disabled"`
}

func (User) TableName() string {
	return "users"
}
