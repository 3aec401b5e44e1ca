package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/calculator"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Allocation outcomes.
const (
	AllocationCreated = "created"
	AllocationUpdated = "updated"
	AllocationSkipped = "skipped"
)

// DistributeInput describes a common expense to record and split.
type DistributeInput struct {
	ApartmentID      string
	Title            string
	Description      string
	Amount           decimal.Decimal
	Date             string
	DistributionType model.DistributionType
	CreatedBy        string
}

// Allocation is what one flat was charged.
type Allocation struct {
	FlatID     string          `json:"flatId"`
	FlatNumber string          `json:"flatNumber"`
	OwnerID    string          `json:"ownerId,omitempty"`
	Share      decimal.Decimal `json:"share"`
	Result     string          `json:"result"`
	BillID     string          `json:"billId,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// Distribution is the recorded expense and its per-flat outcome.
type Distribution struct {
	Expense     model.CommonExpense `json:"expense"`
	Allocations []Allocation        `json:"allocations"`
}

// ExpenseFilter narrows List; zero values match everything.
type ExpenseFilter struct {
	ApartmentID string
	Month       string
	Year        int
}

type ExpenseService struct {
	base
}

func NewExpenseService(db *gorm.DB, log *zap.Logger, opts ...Option) *ExpenseService {
	return &ExpenseService{base: newBase(db, log, opts)}
}

// ParseDate accepts YYYY-MM-DD or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalid("date %q must be YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// Distribute records a common expense and adds each occupied flat's share
// to its bill for the expense month, creating the bill when there is none.
// Everything happens in one transaction.
func (s *ExpenseService) Distribute(ctx context.Context, in DistributeInput) (*Distribution, error) {
	log := s.logger(ctx)

	amount := in.Amount.Round(calculator.Places)
	if !amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}
	if !in.DistributionType.Valid() {
		return nil, invalid("distributionType must be one of fixed, per_flat, per_sqft")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	var apartment model.Apartment
	if err := s.conn(ctx).First(&apartment, "id = ?", in.ApartmentID).Error; err != nil {
		return nil, lookupErr(err, "apartment")
	}

	var flats []model.Flat
	err = s.conn(ctx).Preload("Owner").
		Where("apartment_id = ? AND is_occupied = ?", apartment.ID, true).
		Order("flat_number").
		Find(&flats).Error
	if err != nil {
		return nil, err
	}
	if len(flats) == 0 {
		return nil, invalid("no occupied flats")
	}

	shares, err := s.shares(amount, in.DistributionType, flats)
	if err != nil {
		return nil, err
	}

	out := &Distribution{
		Expense: model.CommonExpense{
			ApartmentID:      apartment.ID,
			Title:            title,
			Month:            date.Month().String(),
			Year:             date.Year(),
			Description:      in.Description,
			TotalAmount:      amount,
			DistributionType: in.DistributionType,
			ExpenseDate:      date,
			CreatedBy:        in.CreatedBy,
		},
		Allocations: []Allocation{},
	}
	now := s.clock()
	due := date.AddDate(0, 1, 0)

	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		defer prometheus.TrackDBOperation("insert")()
		if err := tx.Create(&out.Expense).Error; err != nil {
			return writeErr(err, "expense %q already recorded for %s %d", title, out.Expense.Month, out.Expense.Year)
		}

		for i, share := range shares {
			flat := flats[i]
			alloc := Allocation{FlatID: flat.ID, FlatNumber: flat.FlatNumber, Share: share}
			switch {
			case flat.OwnerID == nil:
				alloc.Result, alloc.Reason = AllocationSkipped, "flat has no owner"
				log.Warn("Skipping flat without owner", zap.String("flat_id", flat.ID))
			case !share.IsPositive():
				alloc.Result, alloc.Reason = AllocationSkipped, "share is zero"
			default:
				alloc.OwnerID = *flat.OwnerID
				bill := model.Bill{
					FlatID:        flat.ID,
					OwnerID:       *flat.OwnerID,
					Month:         out.Expense.Month,
					Year:          out.Expense.Year,
					Amount:        share,
					Status:        model.BillUnpaid,
					GeneratedDate: now,
					DueDate:       due,
				}
				result, err := accumulate(tx, &bill)
				if err != nil {
					return err
				}
				alloc.Result, alloc.BillID = result, bill.ID
				prometheus.RecordBillWrite("expense", result)
			}
			out.Allocations = append(out.Allocations, alloc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordExpense(string(in.DistributionType))
	log.Info("Expense distributed",
		zap.String("expense_id", out.Expense.ID),
		zap.String("apartment_id", apartment.ID),
		zap.String("distribution_type", string(in.DistributionType)),
		zap.String("amount", amount.String()),
		zap.Int("allocations", len(out.Allocations)))
	return out, nil
}

func (s *ExpenseService) shares(amount decimal.Decimal, kind model.DistributionType, flats []model.Flat) ([]decimal.Decimal, error) {
	var (
		shares []decimal.Decimal
		err    error
	)
	switch kind {
	case model.DistributionFixed:
		return nil, nil
	case model.DistributionPerFlat:
		shares, err = calculator.Equal(amount, len(flats))
	case model.DistributionPerSqft:
		areas := make([]decimal.Decimal, len(flats))
		for i, f := range flats {
			areas[i] = f.AreaSqft
		}
		shares, err = calculator.Allocate(amount, areas)
	}
	switch {
	case errors.Is(err, calculator.ErrZeroTotalWeight):
		return nil, invalid("total area is zero")
	case err != nil:
		return nil, invalid("%v", err)
	}
	return shares, nil
}

// accumulate adds bill.Amount to the existing bill for the same flat and
// period, or inserts bill when there is none. bill.ID is set either way.
// A paid bill that receives a new share is owed again and goes back to Unpaid.
func accumulate(tx *gorm.DB, bill *model.Bill) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		res := tx.Model(&model.Bill{}).
			Where("flat_id = ? AND month = ? AND year = ?", bill.FlatID, bill.Month, bill.Year).
			Updates(map[string]interface{}{
				"amount":       gorm.Expr("amount + ?", bill.Amount),
				"status":       model.BillUnpaid,
				"payment_date": nil,
			})
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected > 0 {
			var existing model.Bill
			err := tx.Select("id").
				Where("flat_id = ? AND month = ? AND year = ?", bill.FlatID, bill.Month, bill.Year).
				First(&existing).Error
			if err != nil {
				return "", err
			}
			bill.ID = existing.ID
			return AllocationUpdated, nil
		}

		bill.ID = ""
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(bill)
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected > 0 {
			return AllocationCreated, nil
		}
		// another writer created the bill between the two statements
	}
	return "", conflict("bill for flat changed concurrently; retry")
}

// List returns recorded expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, f ExpenseFilter) ([]model.CommonExpense, error) {
	defer prometheus.TrackDBOperation("query")()

	q := s.conn(ctx).Preload("Apartment")
	if f.ApartmentID != "" {
		q = q.Where("apartment_id = ?", f.ApartmentID)
	}
	if f.Month != "" {
		month, err := model.ParseMonth(f.Month)
		if err != nil {
			return nil, invalid("%v", err)
		}
		q = q.Where("month = ?", month.String())
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	var expenses []model.CommonExpense
	if err := q.Order("expense_date DESC, created_at DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}
