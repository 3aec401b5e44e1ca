package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ArrearStatus tracks an arrear through reminders and payments:
//
//	pending  -> reminded -> paid
//	pending  -> partial  -> paid
type ArrearStatus string

const (
	ArrearPending  ArrearStatus = "pending"
	ArrearPartial  ArrearStatus = "partial"
	ArrearPaid     ArrearStatus = "paid"
	ArrearReminded ArrearStatus = "reminded"
)

// Valid reports whether s is a known arrear status.
func (s ArrearStatus) Valid() bool {
	switch s {
	case ArrearPending, ArrearPartial, ArrearPaid, ArrearReminded:
		return true
	}
	return false
}

// Arrear is an overdue amount for a flat in a month ("YYYY-MM").
// Amount is what is still outstanding.
type Arrear struct {
	Base
	OwnerID            string          `json:"ownerId" gorm:"type:varchar(36);not null;index"`
	FlatID             string          `json:"flatId" gorm:"type:varchar(36);not null;uniqueIndex:idx_arrear_flat_month,priority:1"`
	Month              string          `json:"month" gorm:"type:varchar(7);not null;uniqueIndex:idx_arrear_flat_month,priority:2"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaidAmount         decimal.Decimal `json:"paidAmount" gorm:"type:numeric(12,2);not null;default:0"`
	Status             ArrearStatus    `json:"status" gorm:"type:varchar(10);not null;default:'pending';index"`
	LastReminderSentAt *time.Time      `json:"lastReminderSentAt"`

	Owner *Owner `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Flat  *Flat  `json:"flat,omitempty" gorm:"foreignKey:FlatID"`
}

// AfterFind rounds stored amounts to two places.
func (a *Arrear) AfterFind(tx *gorm.DB) error {
	a.Amount = a.Amount.Round(2)
	a.PaidAmount = a.PaidAmount.Round(2)
	return nil
}

// ArrearMonth formats a period as the "YYYY-MM" key used by arrears.
func ArrearMonth(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
