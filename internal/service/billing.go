package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dueDay is the day of month generated maintenance bills fall due.
const dueDay = 10

// GenerateInput selects the period and optionally one apartment.
type GenerateInput struct {
	Month       string
	Year        int
	ApartmentID string
}

// GenerateResult counts bills created and flats that already had one.
type GenerateResult struct {
	Month   string `json:"month"`
	Year    int    `json:"year"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

// BillFilter narrows bill listings; zero values match everything.
type BillFilter struct {
	ApartmentID string
	FlatID      string
	OwnerID     string
	Month       string
	Year        int
	Status      model.BillStatus
}

// BillUpdate changes the fields that are set.
type BillUpdate struct {
	Status  *model.BillStatus
	Amount  *decimal.Decimal
	DueDate *time.Time
}

type BillingService struct {
	base
	defaultCharge decimal.Decimal
}

// NewBillingService charges defaultCharge to flats without a maintenance charge.
func NewBillingService(db *gorm.DB, log *zap.Logger, defaultCharge decimal.Decimal, opts ...Option) *BillingService {
	return &BillingService{base: newBase(db, log, opts), defaultCharge: defaultCharge}
}

// Generate creates the monthly maintenance bill for every owned flat that has
// none for the period. Running it again for the same period creates nothing.
func (s *BillingService) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	log := s.logger(ctx)
	month, err := model.ParseMonth(in.Month)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if in.Year < 1900 || in.Year > 9999 {
		return nil, invalid("year %d out of range", in.Year)
	}

	q := s.conn(ctx).Where("owner_id IS NOT NULL")
	if in.ApartmentID != "" {
		q = q.Where("apartment_id = ?", in.ApartmentID)
	}
	var flats []model.Flat
	if err := q.Find(&flats).Error; err != nil {
		return nil, err
	}

	res := &GenerateResult{Month: month.String(), Year: in.Year}
	now := s.clock()
	due := time.Date(in.Year, month, dueDay, 0, 0, 0, 0, time.UTC)

	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		defer prometheus.TrackDBOperation("insert")()
		for _, flat := range flats {
			amount := flat.MaintenanceCharge
			if !amount.IsPositive() {
				amount = s.defaultCharge
			}
			bill := model.Bill{
				FlatID:        flat.ID,
				OwnerID:       *flat.OwnerID,
				Month:         res.Month,
				Year:          in.Year,
				Amount:        amount.Round(2),
				Status:        model.BillUnpaid,
				GeneratedDate: now,
				DueDate:       due,
			}
			r := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&bill)
			if r.Error != nil {
				return r.Error
			}
			if r.RowsAffected == 0 {
				res.Skipped++
				continue
			}
			res.Created++
			prometheus.RecordBillWrite("monthly", "created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Bills generated",
		zap.String("month", res.Month),
		zap.Int("year", res.Year),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// List returns bills with their flat and owner, newest first.
func (s *BillingService) List(ctx context.Context, f BillFilter) ([]model.Bill, error) {
	defer prometheus.TrackDBOperation("query")()

	q := s.conn(ctx).Preload("Flat.Apartment").Preload("Owner")
	if f.ApartmentID != "" {
		q = q.Where("flat_id IN (?)", s.conn(ctx).Model(&model.Flat{}).Select("id").Where("apartment_id = ?", f.ApartmentID))
	}
	if f.FlatID != "" {
		q = q.Where("flat_id = ?", f.FlatID)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
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
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, invalid("unknown status %q", f.Status)
		}
		q = q.Where("status = ?", f.Status)
	}

	var bills []model.Bill
	if err := q.Order("generated_date DESC, year DESC").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// Get returns one bill with its flat and owner.
func (s *BillingService) Get(ctx context.Context, id string) (*model.Bill, error) {
	var bill model.Bill
	if err := s.conn(ctx).Preload("Flat.Apartment").Preload("Owner").First(&bill, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "bill")
	}
	return &bill, nil
}

// Update edits a bill. Marking it Paid stamps the payment date and settles
// its arrear; marking it Unpaid clears the payment.
func (s *BillingService) Update(ctx context.Context, id string, in BillUpdate) (*model.Bill, error) {
	bill, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, invalid("amount must not be negative")
		}
		updates["amount"] = in.Amount.Round(2)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, invalid("unknown status %q", *in.Status)
		}
		if *in.Status != bill.Status {
			updates["status"] = *in.Status
			if *in.Status == model.BillPaid {
				updates["payment_date"] = s.clock()
				updates["paid_amount"] = gorm.Expr("amount")
				if in.Amount != nil {
					updates["paid_amount"] = in.Amount.Round(2)
				}
			} else {
				updates["payment_date"] = nil
				updates["paid_amount"] = decimal.Zero
			}
		}
	}
	if in.DueDate != nil {
		updates["due_date"] = in.DueDate.UTC()
	}
	if len(updates) == 0 {
		return bill, nil
	}

	defer prometheus.TrackDBOperation("update")()
	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Bill{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if in.Status == nil || *in.Status != model.BillPaid || bill.Status == model.BillPaid {
			return nil
		}
		var paid model.Bill
		if err := tx.First(&paid, "id = ?", id).Error; err != nil {
			return err
		}
		return settleArrear(tx, &paid)
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordEntityOperation("bill", "update")
	s.logger(ctx).Info("Bill updated", zap.String("bill_id", id))
	return s.Get(ctx, id)
}

// Pay marks one of the owner's own bills paid and settles the arrear raised
// from it. There is no gateway behind it.
func (s *BillingService) Pay(ctx context.Context, ownerID, billID string) (*model.Bill, error) {
	var bill model.Bill
	if err := s.conn(ctx).Where("id = ? AND owner_id = ?", billID, ownerID).First(&bill).Error; err != nil {
		return nil, lookupErr(err, "bill")
	}
	if bill.Status == model.BillPaid {
		return nil, conflict("bill is already paid")
	}

	defer prometheus.TrackDBOperation("update")()
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Bill{}).
			Where("id = ? AND status = ?", billID, model.BillUnpaid).
			Updates(map[string]interface{}{
				"status":       model.BillPaid,
				"payment_date": s.clock(),
				"paid_amount":  gorm.Expr("amount"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict("bill is already paid")
		}
		return settleArrear(tx, &bill)
	})
	if err != nil {
		return nil, err
	}
	s.logger(ctx).Info("Bill paid", zap.String("bill_id", billID), zap.String("owner_id", ownerID))
	return s.Get(ctx, billID)
}

// settleArrear closes the open arrear raised from bill, if any. What was
// still outstanding moves to paid_amount.
func settleArrear(tx *gorm.DB, bill *model.Bill) error {
	month, err := model.ParseMonth(bill.Month)
	if err != nil {
		return fmt.Errorf("bill %s: %w", bill.ID, err)
	}
	var arrear model.Arrear
	err = tx.Where("flat_id = ? AND month = ? AND status <> ?", bill.FlatID, model.ArrearMonth(bill.Year, month), model.ArrearPaid).
		Limit(1).Find(&arrear).Error
	if err != nil || arrear.ID == "" {
		return err
	}
	return tx.Model(&model.Arrear{}).Where("id = ?", arrear.ID).Updates(map[string]interface{}{
		"amount":      decimal.Zero,
		"paid_amount": arrear.PaidAmount.Add(arrear.Amount),
		"status":      model.ArrearPaid,
	}).Error
}
