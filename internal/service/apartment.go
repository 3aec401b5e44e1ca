package service

import (
	"context"
	"strings"

	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApartmentInput creates an apartment.
type ApartmentInput struct {
	Name        string
	Address     string
	TotalFloors int
}

// ApartmentUpdate changes the fields that are set.
type ApartmentUpdate struct {
	Name        *string
	Address     *string
	TotalFloors *int
}

// ApartmentSummary is an apartment with its flat counts.
type ApartmentSummary struct {
	model.Apartment
	FlatCount     int64 `json:"flatCount"`
	OccupiedCount int64 `json:"occupiedCount"`
}

type ApartmentService struct {
	base
}

func NewApartmentService(db *gorm.DB, log *zap.Logger, opts ...Option) *ApartmentService {
	return &ApartmentService{base: newBase(db, log, opts)}
}

func (s *ApartmentService) List(ctx context.Context) ([]ApartmentSummary, error) {
	defer prometheus.TrackDBOperation("query")()

	var apartments []model.Apartment
	if err := s.conn(ctx).Order("name").Find(&apartments).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		ApartmentID string
		Flats       int64
		Occupied    int64
	}
	err := s.conn(ctx).Model(&model.Flat{}).
		Select("apartment_id, COUNT(*) AS flats, SUM(CASE WHEN is_occupied THEN 1 ELSE 0 END) AS occupied").
		Group("apartment_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byApartment := make(map[string]int, len(counts))
	for i, c := range counts {
		byApartment[c.ApartmentID] = i
	}

	out := make([]ApartmentSummary, len(apartments))
	for i, a := range apartments {
		out[i] = ApartmentSummary{Apartment: a}
		if j, ok := byApartment[a.ID]; ok {
			out[i].FlatCount = counts[j].Flats
			out[i].OccupiedCount = counts[j].Occupied
		}
	}
	return out, nil
}

func (s *ApartmentService) Get(ctx context.Context, id string) (*model.Apartment, error) {
	var apartment model.Apartment
	if err := s.conn(ctx).First(&apartment, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "apartment")
	}
	return &apartment, nil
}

func (s *ApartmentService) Create(ctx context.Context, in ApartmentInput) (*model.Apartment, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("name is required")
	}
	if in.TotalFloors <= 0 {
		return nil, invalid("totalFloors must be greater than zero")
	}

	apartment := model.Apartment{Name: in.Name, Address: in.Address, TotalFloors: in.TotalFloors}
	defer prometheus.TrackDBOperation("insert")()
	if err := s.conn(ctx).Create(&apartment).Error; err != nil {
		return nil, err
	}
	prometheus.RecordEntityOperation("apartment", "create")
	s.logger(ctx).Info("Apartment created", zap.String("apartment_id", apartment.ID))
	return &apartment, nil
}

func (s *ApartmentService) Update(ctx context.Context, id string, in ApartmentUpdate) (*model.Apartment, error) {
	apartment, err := s.Get(ctx, id)
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
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.TotalFloors != nil {
		if *in.TotalFloors <= 0 {
			return nil, invalid("totalFloors must be greater than zero")
		}
		updates["total_floors"] = *in.TotalFloors
	}
	if len(updates) == 0 {
		return apartment, nil
	}

	defer prometheus.TrackDBOperation("update")()
	if err := s.conn(ctx).Model(apartment).Updates(updates).Error; err != nil {
		return nil, err
	}
	prometheus.RecordEntityOperation("apartment", "update")
	return s.Get(ctx, id)
}

// Delete removes an apartment that has no flats.
func (s *ApartmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	var flats int64
	if err := s.conn(ctx).Model(&model.Flat{}).Where("apartment_id = ?", id).Count(&flats).Error; err != nil {
		return err
	}
	if flats > 0 {
		return conflict("apartment still has %d flats", flats)
	}

	defer prometheus.TrackDBOperation("delete")()
	if err := s.conn(ctx).Delete(&model.Apartment{}, "id = ?", id).Error; err != nil {
		return err
	}
	prometheus.RecordEntityOperation("apartment", "delete")
	s.logger(ctx).Info("Apartment deleted", zap.String("apartment_id", id))
	return nil
}
