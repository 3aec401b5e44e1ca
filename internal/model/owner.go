package model

import "time"

// OwnerStatus is the account state of an owner.
type OwnerStatus string

const (
	OwnerActive   OwnerStatus = "active"
	OwnerInactive OwnerStatus = "inactive"
)

// Owner is a flat owner. Email is optional but unique when present.
type Owner struct {
	Base
	Name          string      `json:"name" gorm:"type:varchar(100);not null"`
	Email         *string     `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Phone         string      `json:"phone" gorm:"type:varchar(20)"`
	FlatID        *string     `json:"flatId" gorm:"type:varchar(36);index"`
	Password      string      `json:"-" gorm:"type:varchar(255)"`
	Status        OwnerStatus `json:"status" gorm:"type:varchar(10);not null;default:'active'"`
	OwnershipDate *time.Time  `json:"ownershipDate"`

	Flat *Flat `json:"flat,omitempty" gorm:"foreignKey:FlatID"`
}

// HasContact reports whether a reminder can reach the owner.
func (o *Owner) HasContact() bool {
	return o.Phone != "" || (o.Email != nil && *o.Email != "")
}

// TransferType distinguishes first assignments from transfers.
type TransferType string

const (
	TransferAssignment TransferType = "assignment"
	TransferTransfer   TransferType = "transfer"
)

// OwnershipHistory is the append-only audit trail of flat pairings.
type OwnershipHistory struct {
	Base
	FlatID          string       `json:"flatId" gorm:"type:varchar(36);not null;index"`
	PreviousOwnerID *string      `json:"previousOwnerId" gorm:"type:varchar(36)"`
	NewOwnerID      string       `json:"newOwnerId" gorm:"type:varchar(36);not null"`
	TransferDate    time.Time    `json:"transferDate" gorm:"not null"`
	TransferredBy   string       `json:"transferredBy" gorm:"type:varchar(36)"`
	TransferType    TransferType `json:"transferType" gorm:"type:varchar(20);not null"`
}
