package model

import "time"

type News struct {
	ObjectBase
	UserID      string        `gorm:"index;type:varchar(24)" json:"userId"`
	Title       string        `gorm:"size:500;not null" json:"title"`
	Description string        `gorm:"size:500" json:"description"`
	Likes       int           `gorm:"default:0" json:"likes"`
	Date        time.Time     `gorm:"index" json:"date"`
	Comments    []NewsComment `gorm:"foreignKey:NewsID;constraint:OnDelete:CASCADE" json:"comments"`
}

func (News) TableName() string {
	return "news"
}

type NewsComment struct {
	ObjectBase
	NewsID  string    `gorm:"index;type:varchar(24)" json:"newsId"`
	UserID  string    `gorm:"index;type:varchar(24)" json:"userId"`
	Comment string    `gorm:"type:text" json:"comment"`
	Date    time.Time `json:"date"`
}

func (NewsComment) TableName() string {
	return "news_comments"
}

type NewsLike struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	NewsID    string    `gorm:"uniqueIndex:idx_news_user;type:varchar(24)" json:"newsId"`
	UserID    string    `gorm:"uniqueIndex:idx_news_user;type:varchar(24)" json:"userId"`
}

func (NewsLike) TableName() string {
	return "news_likes"
}
