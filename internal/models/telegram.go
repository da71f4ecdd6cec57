package models

import "time"

type TgOperator struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TgUsername string `gorm:"not null"`
}

type TgReviewsChannel struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	InviteLink string `gorm:"not null"`
}

// TgBot is a shop bot. TgID and TgUsername come from Telegram and are only
// written by the registration workflow; TgID never changes once set.
type TgBot struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Token      string `gorm:"uniqueIndex;not null"`
	TgID       int64  `gorm:"uniqueIndex;not null"`
	TgUsername string
	IsRunning  bool

	TgOperatorID       *uint
	TgOperator         *TgOperator
	TgReviewsChannelID *uint
	TgReviewsChannel   *TgReviewsChannel
}

// TgCustomer rows are written by the shop bots when a user first orders.
type TgCustomer struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TgID        int64 `gorm:"uniqueIndex"`
	TgFirstName string
	TgLastName  string
	TgUsername  string
}
