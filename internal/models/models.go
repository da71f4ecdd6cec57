package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type City struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `gorm:"uniqueIndex;not null"`

	Districts []District `gorm:"constraint:OnDelete:CASCADE"`
}

type District struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name   string `gorm:"not null"`
	CityID uint   `gorm:"index;not null"`
	City   City
}

type Product struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name        string `gorm:"not null"`
	Description string

	ProductUnits []ProductUnit `gorm:"constraint:OnDelete:CASCADE"`
}

// Count types a product unit can be sold in.
const (
	CountTypeGram  = "g"
	CountTypePiece = "pcs"
	CountTypeMl    = "ml"
)

var CountTypes = []string{CountTypeGram, CountTypePiece, CountTypeMl}

type ProductUnit struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Count     decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	CountType string          `gorm:"not null"` // g | pcs | ml
	ProductID uint            `gorm:"index;not null"`
	Product   Product
}

// Label renders the unit the way staff refer to it, e.g. "Coffee 250 g".
// Product must be preloaded for the name to appear.
func (u ProductUnit) Label() string {
	s := u.Count.String() + " " + u.CountType
	if u.Product.Name != "" {
		s = u.Product.Name + " " + s
	}
	return s
}

// DistrictProductUnit is the price of one product unit in one district.
type DistrictProductUnit struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	DistrictID    uint `gorm:"uniqueIndex:idx_district_unit;not null"`
	District      District
	ProductUnitID uint `gorm:"uniqueIndex:idx_district_unit;not null"`
	ProductUnit   ProductUnit
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

type Bank struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `gorm:"uniqueIndex;not null"`
}

type BankAccount struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	CardNumber  string `gorm:"not null"`
	PhoneNumber string
	BankID      uint `gorm:"index;not null"`
	Bank        Bank
}

type QiwiWalletAccount struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	PhoneNumber string `gorm:"not null"`
	Nickname    string
}

// Order statuses. Orders are created by the shop bots; staff only move them
// between statuses.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderCompleted = "completed"
	OrderCanceled  = "canceled"
)

var OrderStatuses = []string{OrderPending, OrderPaid, OrderCompleted, OrderCanceled}

type Order struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Price  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status string          `gorm:"index;not null;default:pending"`

	TgCustomerID        uint `gorm:"index;not null"`
	TgCustomer          TgCustomer
	DistrictID          uint `gorm:"not null"`
	District            District
	ProductUnitID       uint `gorm:"not null"`
	ProductUnit         ProductUnit
	BankAccountID       *uint
	BankAccount         *BankAccount
	QiwiWalletAccountID *uint
	QiwiWalletAccount   *QiwiWalletAccount
}

// AdminSession backs the admin login cookie.
type AdminSession struct {
	ID        uint      `gorm:"primaryKey"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}
