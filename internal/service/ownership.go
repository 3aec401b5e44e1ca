package service

import (
	"context"

	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OwnershipService pairs owners with flats. Flat.OwnerID and Owner.FlatID
// only ever change together, inside one transaction.
type OwnershipService struct {
	base
}

func NewOwnershipService(db *gorm.DB, log *zap.Logger, opts ...Option) *OwnershipService {
	return &OwnershipService{base: newBase(db, log, opts)}
}

// Assign makes ownerID the owner of flatID. A previous owner of the flat is
// released, and so is the owner's previous flat.
func (s *OwnershipService) Assign(ctx context.Context, flatID, ownerID, adminID string) (*model.Flat, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		flat, owner, err := loadPair(tx, flatID, ownerID)
		if err != nil {
			return err
		}
		if flat.OwnerID != nil && *flat.OwnerID == owner.ID {
			return nil
		}
		kind := model.TransferAssignment
		if flat.OwnerID != nil {
			kind = model.TransferTransfer
		}
		return s.pair(tx, flat, owner, adminID, kind)
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordEntityOperation("flat", "assign_owner")
	return s.flat(ctx, flatID)
}

// Transfer hands an owned flat to a different owner.
func (s *OwnershipService) Transfer(ctx context.Context, flatID, newOwnerID, adminID string) (*model.Flat, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		flat, owner, err := loadPair(tx, flatID, newOwnerID)
		if err != nil {
			return err
		}
		if flat.OwnerID == nil {
			return invalid("flat %s has no current owner; assign instead", flat.FlatNumber)
		}
		if *flat.OwnerID == owner.ID {
			return invalid("owner already holds flat %s", flat.FlatNumber)
		}
		return s.pair(tx, flat, owner, adminID, model.TransferTransfer)
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordEntityOperation("flat", "transfer_ownership")
	return s.flat(ctx, flatID)
}

// Unassign releases the flat's owner.
func (s *OwnershipService) Unassign(ctx context.Context, flatID, adminID string) (*model.Flat, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var flat model.Flat
		if err := tx.First(&flat, "id = ?", flatID).Error; err != nil {
			return lookupErr(err, "flat")
		}
		if flat.OwnerID == nil {
			return invalid("flat %s has no owner", flat.FlatNumber)
		}
		if err := releaseOwner(tx, *flat.OwnerID); err != nil {
			return err
		}
		if err := releaseFlat(tx, flat.ID); err != nil {
			return err
		}
		s.logger(ctx).Info("Owner unassigned",
			zap.String("flat_id", flat.ID),
			zap.String("owner_id", *flat.OwnerID),
			zap.String("admin_id", adminID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordEntityOperation("flat", "unassign_owner")
	return s.flat(ctx, flatID)
}

// History lists the flat's ownership changes, newest first.
func (s *OwnershipService) History(ctx context.Context, flatID string) ([]model.OwnershipHistory, error) {
	var n int64
	if err := s.conn(ctx).Model(&model.Flat{}).Where("id = ?", flatID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, notFound("flat")
	}
	var history []model.OwnershipHistory
	err := s.conn(ctx).Where("flat_id = ?", flatID).Order("transfer_date DESC, created_at DESC").Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (s *OwnershipService) pair(tx *gorm.DB, flat *model.Flat, owner *model.Owner, adminID string, kind model.TransferType) error {
	defer prometheus.TrackDBOperation("update")()
	previous := flat.OwnerID

	if previous != nil {
		if err := releaseOwner(tx, *previous); err != nil {
			return err
		}
	}
	if owner.FlatID != nil && *owner.FlatID != flat.ID {
		if err := releaseFlat(tx, *owner.FlatID); err != nil {
			return err
		}
	}

	now := s.clock()
	if err := tx.Model(&model.Owner{}).Where("id = ?", owner.ID).
		Updates(map[string]interface{}{"flat_id": flat.ID, "ownership_date": now}).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.Flat{}).Where("id = ?", flat.ID).
		Updates(map[string]interface{}{"owner_id": owner.ID, "is_occupied": true}).Error; err != nil {
		return err
	}

	s.logger(tx.Statement.Context).Info("Ownership changed",
		zap.String("flat_id", flat.ID),
		zap.String("owner_id", owner.ID),
		zap.String("type", string(kind)))
	return tx.Create(&model.OwnershipHistory{
		FlatID:          flat.ID,
		PreviousOwnerID: previous,
		NewOwnerID:      owner.ID,
		TransferDate:    now,
		TransferredBy:   adminID,
		TransferType:    kind,
	}).Error
}

func (s *OwnershipService) flat(ctx context.Context, id string) (*model.Flat, error) {
	var flat model.Flat
	if err := s.conn(ctx).Preload("Apartment").Preload("Owner").First(&flat, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "flat")
	}
	return &flat, nil
}

func loadPair(tx *gorm.DB, flatID, ownerID string) (*model.Flat, *model.Owner, error) {
	var flat model.Flat
	if err := tx.First(&flat, "id = ?", flatID).Error; err != nil {
		return nil, nil, lookupErr(err, "flat")
	}
	var owner model.Owner
	if err := tx.First(&owner, "id = ?", ownerID).Error; err != nil {
		return nil, nil, lookupErr(err, "owner")
	}
	return &flat, &owner, nil
}

func releaseOwner(tx *gorm.DB, ownerID string) error {
	return tx.Model(&model.Owner{}).Where("id = ?", ownerID).
		Updates(map[string]interface{}{"flat_id": nil, "ownership_date": nil}).Error
}

func releaseFlat(tx *gorm.DB, flatID string) error {
	return tx.Model(&model.Flat{}).Where("id = ?", flatID).
		Updates(map[string]interface{}{"owner_id": nil, "is_occupied": false}).Error
}
