package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/society-service/internal/model"
)

func TestOwnerDashboard(t *testing.T) {
	f := newFixture(t)
	svc := NewDashboardService(f.db, f.log, WithClock(fixedClock))

	a := f.apartment("Lotus", 3)
	fl := f.flat(a.ID, "101", "900")
	o := f.owner("Asha", "", "1")
	f.occupy(fl, o)

	water := "Water"
	bill := func(month time.Month, year int, amount string, status model.BillStatus, category *string) {
		generated := time.Date(year, month, 1, 8, 0, 0, 0, time.UTC)
		require.NoError(t, f.db.Create(&model.Bill{
			FlatID: fl.ID, OwnerID: o.ID, Month: month.String(), Year: year,
			Amount: dec(amount), Status: status, GeneratedDate: generated,
			DueDate: generated.AddDate(0, 0, 9), Category: category,
		}).Error)
	}
	bill(time.August, 2023, "999", model.BillUnpaid, nil) // outside the trend window
	bill(time.December, 2023, "1500", model.BillPaid, nil)
	bill(time.January, 2024, "1500", model.BillPaid, nil)
	bill(time.February, 2024, "1600", model.BillUnpaid, nil)
	bill(time.March, 2024, "1700", model.BillUnpaid, &water)

	d, err := svc.ForOwner(f.ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, "4299.00", d.CurrentDue.StringFixed(2))

	require.Len(t, d.RecentBills, 3)
	assert.Equal(t, "March", d.RecentBills[0].Month)
	assert.Equal(t, "January", d.RecentBills[2].Month)

	require.Len(t, d.PaymentTrend, 4)
	assert.Equal(t, 2023, d.PaymentTrend[0].Year)
	assert.Equal(t, "December", d.PaymentTrend[0].Month)
	assert.Equal(t, "1500.00", d.PaymentTrend[0].Amount.StringFixed(2))
	assert.Equal(t, "March", d.PaymentTrend[3].Month)

	require.Len(t, d.ExpenseBreakdown, 1)
	assert.Equal(t, "Water", d.ExpenseBreakdown[0].Category)
	assert.Equal(t, "1700.00", d.ExpenseBreakdown[0].Amount.StringFixed(2))
}

func TestBreakdownDefaultsToOther(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	empty := ""
	bills := []model.Bill{
		{GeneratedDate: start, Amount: dec("100")},
		{GeneratedDate: start.AddDate(0, 0, 3), Amount: dec("50"), Category: &empty},
		{GeneratedDate: start.AddDate(0, -1, 0), Amount: dec("70")},
	}
	got := breakdown(bills, start)
	require.Len(t, got, 1)
	assert.Equal(t, "Other", got[0].Category)
	assert.Equal(t, "150", got[0].Amount.String())
}
