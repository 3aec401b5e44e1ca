package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillStatus is the payment state of a bill.
type BillStatus string

const (
	BillPaid   BillStatus = "Paid"
	BillUnpaid BillStatus = "Unpaid"
)

// Valid reports whether s is a known bill status.
func (s BillStatus) Valid() bool {
	return s == BillPaid || s == BillUnpaid
}

// Bill is one flat's dues for a month. There is at most one bill per
// (flat, month, year); common expenses accumulate into it. PaidAmount is
// what has been settled so far, through the bill or its arrear.
type Bill struct {
	Base
	FlatID        string          `json:"flatId" gorm:"type:varchar(36);not null;uniqueIndex:idx_bill_period,priority:1"`
	OwnerID       string          `json:"ownerId" gorm:"type:varchar(36);not null;index"`
	Month         string          `json:"month" gorm:"type:varchar(10);not null;uniqueIndex:idx_bill_period,priority:2"`
	Year          int             `json:"year" gorm:"not null;uniqueIndex:idx_bill_period,priority:3"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaidAmount    decimal.Decimal `json:"paidAmount" gorm:"type:numeric(12,2);not null;default:0"`
	Status        BillStatus      `json:"status" gorm:"type:varchar(10);not null;default:'Unpaid';index"`
	GeneratedDate time.Time       `json:"generatedDate" gorm:"not null"`
	DueDate       time.Time       `json:"dueDate" gorm:"not null"`
	PaymentDate   *time.Time      `json:"paymentDate"`
	Category      *string         `json:"category"`

	Flat  *Flat  `json:"flat,omitempty" gorm:"foreignKey:FlatID"`
	Owner *Owner `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

// AfterFind normalises amounts that were accumulated in SQL; sqlite keeps
// NUMERIC columns as floating point.
func (b *Bill) AfterFind(tx *gorm.DB) error {
	b.Amount = b.Amount.Round(2)
	b.PaidAmount = b.PaidAmount.Round(2)
	return nil
}

// Outstanding is what is still owed on the bill.
func (b *Bill) Outstanding() decimal.Decimal {
	if b.PaidAmount.GreaterThanOrEqual(b.Amount) {
		return decimal.Zero
	}
	return b.Amount.Sub(b.PaidAmount)
}

// ParseMonth accepts a long or short English month name or a number 1-12.
func ParseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return time.Month(n), nil
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}
