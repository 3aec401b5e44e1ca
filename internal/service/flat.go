package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FlatInput creates a flat.
type FlatInput struct {
	ApartmentID       string
	FlatNumber        string
	Floor             int
	UnitType          string
	AreaSqft          decimal.Decimal
	MaintenanceCharge decimal.Decimal
}

// FlatUpdate changes the fields that are set. Ownership changes go through
// OwnershipService.
type FlatUpdate struct {
	FlatNumber        *string
	Floor             *int
	UnitType          *string
	AreaSqft          *decimal.Decimal
	MaintenanceCharge *decimal.Decimal
}

// FlatFilter narrows List; zero values match everything.
type FlatFilter struct {
	ApartmentID string
	Occupied    *bool
}

type FlatService struct {
	base
}

func NewFlatService(db *gorm.DB, log *zap.Logger, opts ...Option) *FlatService {
	return &FlatService{base: newBase(db, log, opts)}
}

func (s *FlatService) List(ctx context.Context, f FlatFilter) ([]model.Flat, error) {
	defer prometheus.TrackDBOperation("query")()

	q := s.conn(ctx).Preload("Apartment").Preload("Owner")
	if f.ApartmentID != "" {
		q = q.Where("apartment_id = ?", f.ApartmentID)
	}
	if f.Occupied != nil {
		q = q.Where("is_occupied = ?", *f.Occupied)
	}
	var flats []model.Flat
	if err := q.Order("apartment_id, flat_number").Find(&flats).Error; err != nil {
		return nil, err
	}
	return flats, nil
}

// Get returns the flat with its apartment and owner.
func (s *FlatService) Get(ctx context.Context, id string) (*model.Flat, error) {
	var flat model.Flat
	if err := s.conn(ctx).Preload("Apartment").Preload("Owner").First(&flat, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "flat")
	}
	return &flat, nil
}

func (s *FlatService) Create(ctx context.Context, in FlatInput) (*model.Flat, error) {
	in.FlatNumber = strings.TrimSpace(in.FlatNumber)
	if in.FlatNumber == "" {
		return nil, invalid("flatNumber is required")
	}
	if in.AreaSqft.IsNegative() || in.MaintenanceCharge.IsNegative() {
		return nil, invalid("areaSqft and maintenanceCharge must not be negative")
	}

	var apartment model.Apartment
	if err := s.conn(ctx).First(&apartment, "id = ?", in.ApartmentID).Error; err != nil {
		return nil, lookupErr(err, "apartment")
	}
	if in.Floor < 0 || in.Floor > apartment.TotalFloors {
		return nil, invalid("floor must be between 0 and %d", apartment.TotalFloors)
	}

	flat := model.Flat{
		ApartmentID:       in.ApartmentID,
		FlatNumber:        in.FlatNumber,
		Floor:             in.Floor,
		UnitType:          in.UnitType,
		AreaSqft:          in.AreaSqft.Round(2),
		MaintenanceCharge: in.MaintenanceCharge.Round(2),
	}
	defer prometheus.TrackDBOperation("insert")()
	if err := s.conn(ctx).Create(&flat).Error; err != nil {
		return nil, writeErr(err, "flat %s already exists in this apartment", in.FlatNumber)
	}
	prometheus.RecordEntityOperation("flat", "create")
	s.logger(ctx).Info("Flat created", zap.String("flat_id", flat.ID), zap.String("apartment_id", flat.ApartmentID))
	return s.Get(ctx, flat.ID)
}

func (s *FlatService) Update(ctx context.Context, id string, in FlatUpdate) (*model.Flat, error) {
	flat, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.FlatNumber != nil {
		number := strings.TrimSpace(*in.FlatNumber)
		if number == "" {
			return nil, invalid("flatNumber must not be empty")
		}
		updates["flat_number"] = number
	}
	if in.Floor != nil {
		if *in.Floor < 0 || (flat.Apartment != nil && *in.Floor > flat.Apartment.TotalFloors) {
			return nil, invalid("floor is outside the apartment")
		}
		updates["floor"] = *in.Floor
	}
	if in.UnitType != nil {
		updates["unit_type"] = *in.UnitType
	}
	if in.AreaSqft != nil {
		if in.AreaSqft.IsNegative() {
			return nil, invalid("areaSqft must not be negative")
		}
		updates["area_sqft"] = in.AreaSqft.Round(2)
	}
	if in.MaintenanceCharge != nil {
		if in.MaintenanceCharge.IsNegative() {
			return nil, invalid("maintenanceCharge must not be negative")
		}
		updates["maintenance_charge"] = in.MaintenanceCharge.Round(2)
	}
	if len(updates) == 0 {
		return flat, nil
	}

	defer prometheus.TrackDBOperation("update")()
	if err := s.conn(ctx).Model(&model.Flat{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, writeErr(err, "flat number already exists in this apartment")
	}
	prometheus.RecordEntityOperation("flat", "update")
	return s.Get(ctx, id)
}

// Delete removes a flat that has no owner and no bills.
func (s *FlatService) Delete(ctx context.Context, id string) error {
	flat, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if flat.OwnerID != nil {
		return conflict("flat %s still has an owner", flat.FlatNumber)
	}
	for _, dep := range []struct {
		model interface{}
		name  string
	}{
		{&model.Bill{}, "bills"},
		{&model.Arrear{}, "arrears"},
	} {
		var n int64
		if err := s.conn(ctx).Model(dep.model).Where("flat_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("flat %s has %d %s", flat.FlatNumber, n, dep.name)
		}
	}

	defer prometheus.TrackDBOperation("delete")()
	if err := s.conn(ctx).Delete(&model.Flat{}, "id = ?", id).Error; err != nil {
		return err
	}
	prometheus.RecordEntityOperation("flat", "delete")
	s.logger(ctx).Info("Flat deleted", zap.String("flat_id", id))
	return nil
}
