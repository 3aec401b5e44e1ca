package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	recentBills   = 3
	trendMonths   = 6
	otherCategory = "Other"
)

// TrendPoint is the amount billed in one month.
type TrendPoint struct {
	Year   int             `json:"year"`
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryAmount is the amount billed under one category.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Dashboard summarises an owner's bills.
type Dashboard struct {
	CurrentDue       decimal.Decimal  `json:"currentDue"`
	RecentBills      []model.Bill     `json:"recentBills"`
	PaymentTrend     []TrendPoint     `json:"paymentTrend"`
	ExpenseBreakdown []CategoryAmount `json:"expenseBreakdown"`
}

type DashboardService struct {
	base
}

func NewDashboardService(db *gorm.DB, log *zap.Logger, opts ...Option) *DashboardService {
	return &DashboardService{base: newBase(db, log, opts)}
}

func (s *DashboardService) ForOwner(ctx context.Context, ownerID string) (*Dashboard, error) {
	defer prometheus.TrackDBOperation("query")()

	now := s.clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	trendStart := monthStart.AddDate(0, -(trendMonths - 1), 0)

	d := &Dashboard{CurrentDue: decimal.Zero, RecentBills: []model.Bill{}}

	var unpaid []model.Bill
	if err := s.conn(ctx).Select("amount", "paid_amount").Where("owner_id = ? AND status = ?", ownerID, model.BillUnpaid).Find(&unpaid).Error; err != nil {
		return nil, err
	}
	for i := range unpaid {
		d.CurrentDue = d.CurrentDue.Add(unpaid[i].Outstanding())
	}

	if err := s.conn(ctx).Preload("Flat").
		Where("owner_id = ?", ownerID).
		Order("generated_date DESC").
		Limit(recentBills).
		Find(&d.RecentBills).Error; err != nil {
		return nil, err
	}

	var window []model.Bill
	if err := s.conn(ctx).
		Where("owner_id = ? AND generated_date >= ?", ownerID, trendStart).
		Order("generated_date").
		Find(&window).Error; err != nil {
		return nil, err
	}
	d.PaymentTrend = trend(window)
	d.ExpenseBreakdown = breakdown(window, monthStart)
	return d, nil
}

// trend sums bills by the month they were generated in, oldest first.
// bills must be ordered by generated date.
func trend(bills []model.Bill) []TrendPoint {
	points := []TrendPoint{}
	for _, b := range bills {
		y, m := b.GeneratedDate.UTC().Year(), b.GeneratedDate.UTC().Month()
		if n := len(points); n > 0 && points[n-1].Year == y && points[n-1].Month == m.String() {
			points[n-1].Amount = points[n-1].Amount.Add(b.Amount)
			continue
		}
		points = append(points, TrendPoint{Year: y, Month: m.String(), Amount: b.Amount})
	}
	return points
}

// breakdown sums bills generated since monthStart by category.
func breakdown(bills []model.Bill, monthStart time.Time) []CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, b := range bills {
		if b.GeneratedDate.Before(monthStart) {
			continue
		}
		category := otherCategory
		if b.Category != nil && *b.Category != "" {
			category = *b.Category
		}
		sums[category] = sums[category].Add(b.Amount)
	}
	out := make([]CategoryAmount, 0, len(sums))
	for c, amount := range sums {
		out = append(out, CategoryAmount{Category: c, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
