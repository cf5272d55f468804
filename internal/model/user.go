package model

import (
	"strings"
	"time"
)

// swagger:model User
type User struct {
	ObjectBase
	FirebaseUID string `gorm:"size:128;uniqueIndex" json:"firebaseUid"`
	// false = 学生, true = 教师
	Type      bool   `gorm:"default:false" json:"type"`
	Name      string `gorm:"size:100" json:"name"`
	FirstName string `gorm:"size:100" json:"firstName"`
	LastName  string `gorm:"size:100" json:"lastName"`
	Email     string `gorm:"size:100" json:"email"`

	StreakCurrent        int       `gorm:"default:0" json:"streakCurrent"`
	StreakLastConnection time.Time `json:"streakLastConnection"`

	LescoSkills  int `gorm:"default:0" json:"lescoSkills"`
	LescoLevel   int `gorm:"default:0" json:"lescoLevel"`
	LibrasSkills int `gorm:"default:0" json:"librasSkills"`
	LibrasLevel  int `gorm:"default:0" json:"librasLevel"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName 用于新闻标题的展示名
func (u *User) DisplayName() string {
	if u == nil {
		return "Usuario"
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if email := strings.TrimSpace(u.Email); email != "" {
		return email
	}
	return "Usuario"
}

// TrackProgress 返回指定轨道的等级与技能点
func (u *User) TrackProgress(track Track) (level, skills int) {
	if track == TrackLibras {
		return u.LibrasLevel, u.LibrasSkills
	}
	return u.LescoLevel, u.LescoSkills
}

type UserFollow struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	FollowerID string    `gorm:"uniqueIndex:idx_follower_followee;type:varchar(24)" json:"followerId"`
	FolloweeID string    `gorm:"uniqueIndex:idx_follower_followee;type:varchar(24)" json:"followeeId"`
}

func (UserFollow) TableName() string {
	return "user_follows"
}
