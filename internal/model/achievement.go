package model

import "time"

// Achievement 成就目录，由种子脚本写入，核心流程只读
type Achievement struct {
	ObjectBase
	// false = LESCO, true = LIBRAS
	Type    bool      `gorm:"index:idx_achievement_type_name" json:"type"`
	Name    string    `gorm:"index:idx_achievement_type_name;size:150;not null" json:"name"`
	Content string    `gorm:"size:255" json:"content"`
	Date    time.Time `json:"date"`
}

func (Achievement) TableName() string {
	return "achievements"
}

type UserAchievement struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	UserID        string    `gorm:"uniqueIndex:idx_user_achievement;type:varchar(24)" json:"userId"`
	AchievementID string    `gorm:"uniqueIndex:idx_user_achievement;type:varchar(24)" json:"achievementId"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
