package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionType selects how a common expense is split across flats.
type DistributionType string

const (
	// DistributionFixed records a lump sum at apartment level; no bills.
	DistributionFixed   DistributionType = "fixed"
	DistributionPerFlat DistributionType = "per_flat"
	DistributionPerSqft DistributionType = "per_sqft"
)

// Valid reports whether d is a known distribution type.
func (d DistributionType) Valid() bool {
	switch d {
	case DistributionFixed, DistributionPerFlat, DistributionPerSqft:
		return true
	}
	return false
}

// CommonExpense is the immutable record of one distribution event.
type CommonExpense struct {
	Base
	ApartmentID      string           `json:"apartmentId" gorm:"type:varchar(36);not null;uniqueIndex:idx_expense_identity,priority:1"`
	Title            string           `json:"title" gorm:"type:varchar(150);not null;uniqueIndex:idx_expense_identity,priority:2"`
	Month            string           `json:"month" gorm:"type:varchar(10);not null;uniqueIndex:idx_expense_identity,priority:3"`
	Year             int              `json:"year" gorm:"not null;uniqueIndex:idx_expense_identity,priority:4"`
	Description      string           `json:"description" gorm:"type:text"`
	TotalAmount      decimal.Decimal  `json:"totalAmount" gorm:"type:numeric(12,2);not null"`
	DistributionType DistributionType `json:"distributionType" gorm:"type:varchar(10);not null"`
	ExpenseDate      time.Time        `json:"expenseDate" gorm:"not null"`
	CreatedBy        string           `json:"createdBy" gorm:"type:varchar(36)"`

	Apartment *Apartment `json:"apartment,omitempty" gorm:"foreignKey:ApartmentID"`
}
