package model

import "github.com/shopspring/decimal"

// Apartment is a building managed by the society.
type Apartment struct {
	Base
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Address     string `json:"address" gorm:"type:text"`
	TotalFloors int    `json:"totalFloors" gorm:"not null"`
}

// Flat is a unit inside an apartment. IsOccupied mirrors OwnerID != nil.
type Flat struct {
	Base
	ApartmentID       string          `json:"apartmentId" gorm:"type:varchar(36);not null;uniqueIndex:idx_flat_apartment_number,priority:1"`
	FlatNumber        string          `json:"flatNumber" gorm:"type:varchar(20);not null;uniqueIndex:idx_flat_apartment_number,priority:2"`
	Floor             int             `json:"floor"`
	UnitType          string          `json:"unitType" gorm:"type:varchar(20)"`
	AreaSqft          decimal.Decimal `json:"areaSqft" gorm:"type:numeric(12,2);not null;default:0"`
	IsOccupied        bool            `json:"isOccupied" gorm:"not null;default:false;index"`
	OwnerID           *string         `json:"ownerId" gorm:"type:varchar(36);index"`
	MaintenanceCharge decimal.Decimal `json:"maintenanceCharge" gorm:"type:numeric(12,2);not null;default:0"`

	Apartment *Apartment `json:"apartment,omitempty" gorm:"foreignKey:ApartmentID"`
	Owner     *Owner     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}
