package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/notify"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArrearFilter narrows List. Year matches the "YYYY-" prefix of the month;
// Search is matched against owner name, flat number and apartment name.
type ArrearFilter struct {
	ApartmentID string
	Month       string
	Year        int
	Status      model.ArrearStatus
	Search      string
}

// ArrearInput records an arrear by hand.
type ArrearInput struct {
	FlatID string
	Month  string
	Amount decimal.Decimal
}

// SyncResult counts arrears raised or refreshed from overdue bills.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type ArrearService struct {
	base
	notifier notify.Notifier
}

func NewArrearService(db *gorm.DB, log *zap.Logger, notifier notify.Notifier, opts ...Option) *ArrearService {
	return &ArrearService{base: newBase(db, log, opts), notifier: notifier}
}

func (s *ArrearService) List(ctx context.Context, f ArrearFilter) ([]model.Arrear, error) {
	defer prometheus.TrackDBOperation("query")()

	q := s.conn(ctx).Preload("Owner").Preload("Flat.Apartment")
	if f.ApartmentID != "" {
		q = q.Where("flat_id IN (?)", s.conn(ctx).Model(&model.Flat{}).Select("id").Where("apartment_id = ?", f.ApartmentID))
	}
	if f.Month != "" {
		q = q.Where("month = ?", f.Month)
	}
	if f.Year != 0 {
		q = q.Where("month LIKE ?", fmt.Sprintf("%04d-%%", f.Year))
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, invalid("unknown status %q", f.Status)
		}
		q = q.Where("status = ?", f.Status)
	}

	var arrears []model.Arrear
	if err := q.Order("month DESC, created_at DESC").Find(&arrears).Error; err != nil {
		return nil, err
	}
	return filterArrears(arrears, f.Search), nil
}

func filterArrears(arrears []model.Arrear, search string) []model.Arrear {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return arrears
	}
	out := arrears[:0]
	for _, a := range arrears {
		var fields []string
		if a.Owner != nil {
			fields = append(fields, a.Owner.Name)
		}
		if a.Flat != nil {
			fields = append(fields, a.Flat.FlatNumber)
			if a.Flat.Apartment != nil {
				fields = append(fields, a.Flat.Apartment.Name)
			}
		}
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), term) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// ForOwner lists the owner's own arrears.
func (s *ArrearService) ForOwner(ctx context.Context, ownerID string) ([]model.Arrear, error) {
	var arrears []model.Arrear
	err := s.conn(ctx).Preload("Flat.Apartment").
		Where("owner_id = ?", ownerID).
		Order("month DESC").
		Find(&arrears).Error
	if err != nil {
		return nil, err
	}
	return arrears, nil
}

func (s *ArrearService) Get(ctx context.Context, id string) (*model.Arrear, error) {
	var arrear model.Arrear
	if err := s.conn(ctx).Preload("Owner").Preload("Flat.Apartment").First(&arrear, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "arrear")
	}
	return &arrear, nil
}

// Create raises an arrear against the flat's current owner.
func (s *ArrearService) Create(ctx context.Context, in ArrearInput) (*model.Arrear, error) {
	if _, err := time.Parse("2006-01", in.Month); err != nil {
		return nil, invalid("month %q must be YYYY-MM", in.Month)
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}

	var flat model.Flat
	if err := s.conn(ctx).First(&flat, "id = ?", in.FlatID).Error; err != nil {
		return nil, lookupErr(err, "flat")
	}
	if flat.OwnerID == nil {
		return nil, invalid("flat %s has no owner", flat.FlatNumber)
	}

	arrear := model.Arrear{
		OwnerID:    *flat.OwnerID,
		FlatID:     flat.ID,
		Month:      in.Month,
		Amount:     amount,
		PaidAmount: decimal.Zero,
		Status:     model.ArrearPending,
	}
	defer prometheus.TrackDBOperation("insert")()
	if err := s.conn(ctx).Create(&arrear).Error; err != nil {
		return nil, writeErr(err, "flat %s already has an arrear for %s", flat.FlatNumber, in.Month)
	}
	prometheus.RecordEntityOperation("arrear", "create")
	s.logger(ctx).Info("Arrear created", zap.String("arrear_id", arrear.ID), zap.String("flat_id", flat.ID))
	return s.Get(ctx, arrear.ID)
}

// Sync raises a pending arrear for every unpaid bill past its due date.
// Arrears already raised are brought in line with what the bill still owes,
// which changes when expenses are added to the bill after the arrear.
func (s *ArrearService) Sync(ctx context.Context) (*SyncResult, error) {
	now := s.clock()
	var bills []model.Bill
	err := s.conn(ctx).
		Where("status = ? AND due_date < ?", model.BillUnpaid, now).
		Order("year, generated_date").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		defer prometheus.TrackDBOperation("insert")()
		for _, bill := range bills {
			month, err := model.ParseMonth(bill.Month)
			if err != nil {
				return fmt.Errorf("bill %s: %w", bill.ID, err)
			}
			outstanding := bill.Outstanding()
			if !outstanding.IsPositive() {
				res.Skipped++
				continue
			}
			arrear := model.Arrear{
				OwnerID:    bill.OwnerID,
				FlatID:     bill.FlatID,
				Month:      model.ArrearMonth(bill.Year, month),
				Amount:     outstanding,
				PaidAmount: decimal.Zero,
				Status:     model.ArrearPending,
			}
			r := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&arrear)
			if r.Error != nil {
				return r.Error
			}
			if r.RowsAffected > 0 {
				res.Created++
				continue
			}

			updated, err := refreshArrear(tx, &arrear, outstanding)
			if err != nil {
				return err
			}
			if updated {
				res.Updated++
			} else {
				res.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger(ctx).Info("Arrears synced",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// refreshArrear sets the outstanding amount of the existing arrear for the
// same flat and month. A settled arrear whose bill is owed again reopens.
func refreshArrear(tx *gorm.DB, key *model.Arrear, outstanding decimal.Decimal) (bool, error) {
	var existing model.Arrear
	if err := tx.Where("flat_id = ? AND month = ?", key.FlatID, key.Month).First(&existing).Error; err != nil {
		return false, err
	}
	if existing.Amount.Equal(outstanding) {
		return false, nil
	}

	updates := map[string]interface{}{"amount": outstanding}
	if existing.Status == model.ArrearPaid {
		updates["status"] = model.ArrearPending
		if existing.PaidAmount.IsPositive() {
			updates["status"] = model.ArrearPartial
		}
	}
	if err := tx.Model(&model.Arrear{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return false, err
	}
	return true, nil
}

// applyToBill credits an arrear payment to the bill the arrear was raised
// from. Arrears entered by hand may have no bill.
func (s *ArrearService) applyToBill(tx *gorm.DB, arrear *model.Arrear, amount decimal.Decimal, settled bool) error {
	period, err := time.Parse("2006-01", arrear.Month)
	if err != nil {
		return fmt.Errorf("arrear %s: %w", arrear.ID, err)
	}
	updates := map[string]interface{}{"paid_amount": gorm.Expr("paid_amount + ?", amount)}
	if settled {
		updates["status"] = model.BillPaid
		updates["payment_date"] = s.clock()
	}
	return tx.Model(&model.Bill{}).
		Where("flat_id = ? AND month = ? AND year = ?", arrear.FlatID, period.Month().String(), period.Year()).
		Updates(updates).Error
}

// ReminderText is the message sent to an owner about an arrear.
func ReminderText(name, flatNo, month string, amount decimal.Decimal) string {
	return fmt.Sprintf("Dear %s, your maintenance dues of Rs. %s for flat %s (%s) are pending. Please pay at the earliest.",
		name, amount.StringFixed(2), flatNo, month)
}

// SendReminder notifies the owner of an unpaid arrear. A pending arrear
// becomes reminded; the reminder time is recorded either way.
func (s *ArrearService) SendReminder(ctx context.Context, id string) (*model.Arrear, error) {
	log := s.logger(ctx)
	arrear, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if arrear.Status == model.ArrearPaid {
		return nil, conflict("arrear is already paid")
	}
	if arrear.Owner == nil || !arrear.Owner.HasContact() {
		prometheus.RecordReminder("no_contact")
		return nil, &Error{Kind: ErrNoContact, Message: "owner has no phone or email"}
	}

	flatNo := ""
	if arrear.Flat != nil {
		flatNo = arrear.Flat.FlatNumber
	}
	msg := notify.Message{
		Name:  arrear.Owner.Name,
		Phone: arrear.Owner.Phone,
		Body:  ReminderText(arrear.Owner.Name, flatNo, arrear.Month, arrear.Amount),
	}
	if arrear.Owner.Email != nil {
		msg.Email = *arrear.Owner.Email
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Error("Reminder dispatch failed", zap.String("arrear_id", id), zap.Error(err))
		prometheus.RecordReminder("failed")
		return nil, &Error{Kind: ErrDispatch, Message: "failed to send reminder", Err: err}
	}

	updates := map[string]interface{}{"last_reminder_sent_at": s.clock()}
	if arrear.Status == model.ArrearPending {
		updates["status"] = model.ArrearReminded
	}
	defer prometheus.TrackDBOperation("update")()
	if err := s.conn(ctx).Model(&model.Arrear{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	prometheus.RecordReminder("sent")
	log.Info("Reminder sent", zap.String("arrear_id", id), zap.String("owner_id", arrear.OwnerID))
	return s.Get(ctx, id)
}

// RecordPayment applies a payment against the outstanding amount.
func (s *ArrearService) RecordPayment(ctx context.Context, id string, amount decimal.Decimal) (*model.Arrear, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}

	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var arrear model.Arrear
		if err := tx.First(&arrear, "id = ?", id).Error; err != nil {
			return lookupErr(err, "arrear")
		}
		if arrear.Status == model.ArrearPaid {
			return conflict("arrear is already paid")
		}
		if amount.GreaterThan(arrear.Amount) {
			return invalid("payment of %s exceeds outstanding %s", amount.StringFixed(2), arrear.Amount.StringFixed(2))
		}

		outstanding := arrear.Amount.Sub(amount)
		status := model.ArrearPartial
		if outstanding.IsZero() {
			status = model.ArrearPaid
		}
		err := tx.Model(&model.Arrear{}).Where("id = ?", id).Updates(map[string]interface{}{
			"amount":      outstanding,
			"paid_amount": arrear.PaidAmount.Add(amount),
			"status":      status,
		}).Error
		if err != nil {
			return err
		}
		return s.applyToBill(tx, &arrear, amount, status == model.ArrearPaid)
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordEntityOperation("arrear", "payment")
	s.logger(ctx).Info("Arrear payment recorded", zap.String("arrear_id", id), zap.String("amount", amount.String()))
	return s.Get(ctx, id)
}
