package service

import (
	"context"
	"strings"

	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OwnerInput creates an owner. An owner without a password cannot log in.
type OwnerInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Status   model.OwnerStatus
}

// OwnerUpdate changes the fields that are set.
type OwnerUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Password *string
	Status   *model.OwnerStatus
}

// OwnerFilter narrows List. Search matches name, email or phone.
type OwnerFilter struct {
	Status model.OwnerStatus
	Search string
}

type OwnerService struct {
	base
}

func NewOwnerService(db *gorm.DB, log *zap.Logger, opts ...Option) *OwnerService {
	return &OwnerService{base: newBase(db, log, opts)}
}

func (s *OwnerService) List(ctx context.Context, f OwnerFilter) ([]model.Owner, error) {
	defer prometheus.TrackDBOperation("query")()

	q := s.conn(ctx).Preload("Flat.Apartment")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}
	var owners []model.Owner
	if err := q.Order("name").Find(&owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

// Unassigned lists owners not paired with any flat.
func (s *OwnerService) Unassigned(ctx context.Context) ([]model.Owner, error) {
	var owners []model.Owner
	if err := s.conn(ctx).Where("flat_id IS NULL").Order("name").Find(&owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

func (s *OwnerService) Get(ctx context.Context, id string) (*model.Owner, error) {
	var owner model.Owner
	if err := s.conn(ctx).Preload("Flat.Apartment").First(&owner, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "owner")
	}
	return &owner, nil
}

func (s *OwnerService) Create(ctx context.Context, in OwnerInput) (*model.Owner, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("name is required")
	}
	if in.Status == "" {
		in.Status = model.OwnerActive
	}
	if in.Status != model.OwnerActive && in.Status != model.OwnerInactive {
		return nil, invalid("unknown status %q", in.Status)
	}

	owner := model.Owner{Name: in.Name, Phone: strings.TrimSpace(in.Phone), Status: in.Status}
	if email := normalizeEmail(in.Email); email != "" {
		if err := s.ensureEmailFree(ctx, email, ""); err != nil {
			return nil, err
		}
		owner.Email = &email
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		owner.Password = hash
	}

	defer prometheus.TrackDBOperation("insert")()
	if err := s.conn(ctx).Create(&owner).Error; err != nil {
		return nil, writeErr(err, "email already registered")
	}
	prometheus.RecordEntityOperation("owner", "create")
	s.logger(ctx).Info("Owner created", zap.String("owner_id", owner.ID))
	return &owner, nil
}

func (s *OwnerService) Update(ctx context.Context, id string, in OwnerUpdate) (*model.Owner, error) {
	owner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		updates["name"] = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			updates["email"] = nil
		} else {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
			updates["email"] = email
		}
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Status != nil {
		if *in.Status != model.OwnerActive && *in.Status != model.OwnerInactive {
			return nil, invalid("unknown status %q", *in.Status)
		}
		updates["status"] = *in.Status
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}
	if len(updates) == 0 {
		return owner, nil
	}

	defer prometheus.TrackDBOperation("update")()
	if err := s.conn(ctx).Model(&model.Owner{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, writeErr(err, "email already registered")
	}
	prometheus.RecordEntityOperation("owner", "update")
	return s.Get(ctx, id)
}

// Delete removes an owner that holds no flat and has no bills or arrears.
func (s *OwnerService) Delete(ctx context.Context, id string) error {
	owner, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if owner.FlatID != nil {
		return conflict("owner is still assigned to a flat")
	}
	for _, dep := range []struct {
		model interface{}
		name  string
	}{
		{&model.Bill{}, "bills"},
		{&model.Arrear{}, "arrears"},
	} {
		var n int64
		if err := s.conn(ctx).Model(dep.model).Where("owner_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("owner has %d %s", n, dep.name)
		}
	}

	defer prometheus.TrackDBOperation("delete")()
	if err := s.conn(ctx).Delete(&model.Owner{}, "id = ?", id).Error; err != nil {
		return err
	}
	prometheus.RecordEntityOperation("owner", "delete")
	s.logger(ctx).Info("Owner deleted", zap.String("owner_id", id))
	return nil
}

func (s *OwnerService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	q := s.conn(ctx).Model(&model.Owner{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict("email already registered")
	}
	return nil
}
