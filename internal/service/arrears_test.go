package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/notify"
)

type fakeNotifier struct {
	sent []notify.Message
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (f *fixture) arrear(fl *model.Flat, month, amount string) *model.Arrear {
	f.t.Helper()
	a := &model.Arrear{
		OwnerID: *fl.OwnerID, FlatID: fl.ID, Month: month,
		Amount: dec(amount), PaidAmount: dec("0"), Status: model.ArrearPending,
	}
	require.NoError(f.t, f.db.Create(a).Error)
	return a
}

func TestReminderWithoutContactIsRejected(t *testing.T) {
	f := newFixture(t)
	n := &fakeNotifier{}
	svc := NewArrearService(f.db, f.log, n, WithClock(fixedClock))

	a := f.apartment("Lotus", 3)
	fl := f.flat(a.ID, "101", "900")
	f.occupy(fl, f.owner("Silent", "", ""))
	arrear := f.arrear(fl, "2024-02", "1500")

	_, err := svc.SendReminder(f.ctx, arrear.ID)
	assert.ErrorIs(t, err, ErrNoContact)
	assert.Empty(t, n.sent)

	stored, err := svc.Get(f.ctx, arrear.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArrearPending, stored.Status)
	assert.Nil(t, stored.LastReminderSentAt)
}

func TestReminderMarksArrearReminded(t *testing.T) {
	f := newFixture(t)
	n := &fakeNotifier{}
	svc := NewArrearService(f.db, f.log, n, WithClock(fixedClock))

	a := f.apartment("Lotus", 3)
	fl := f.flat(a.ID, "101", "900")
	f.occupy(fl, f.owner("Asha", "asha@example.com", "98450"))
	arrear := f.arrear(fl, "2024-02", "1500")

	reminded, err := svc.SendReminder(f.ctx, arrear.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArrearReminded, reminded.Status)
	require.NotNil(t, reminded.LastReminderSentAt)
	assert.False(t, reminded.LastReminderSentAt.Before(testNow))

	require.Len(t, n.sent, 1)
	assert.Equal(t, "asha@example.com", n.sent[0].Email)
	assert.Equal(t,
		"Dear Asha, your maintenance dues of Rs. 1500.00 for flat 101 (2024-02) are pending. Please pay at the earliest.",
		n.sent[0].Body)
}

func TestReminderDispatchFailure(t *testing.T) {
	f := newFixture(t)
	n := &fakeNotifier{err: errors.New("gateway down")}
	svc := NewArrearService(f.db, f.log, n, WithClock(fixedClock))

	a := f.apartment("Lotus", 3)
	fl := f.flat(a.ID, "101", "900")
	f.occupy(fl, f.owner("Asha", "", "98450"))
	arrear := f.arrear(fl, "2024-02", "1500")

	_, err := svc.SendReminder(f.ctx, arrear.ID)
	assert.ErrorIs(t, err, ErrDispatch)

	stored, err := svc.Get(f.ctx, arrear.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArrearPending, stored.Status)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	svc := NewArrearService(f.db, f.log, notify.NoOpNotifier{}, WithClock(fixedClock))

	a := f.apartment("Lotus", 3)
	fl := f.flat(a.ID, "101", "900")
	f.occupy(fl, f.owner("Asha", "", "1"))
	arrear := f.arrear(fl, "2024-02", "1500")

	_, err := svc.RecordPayment(f.ctx, arrear.ID, dec("2000"))
	assert.ErrorIs(t, err, ErrInvalidInput, "overpayment")

	partial, err := svc.RecordPayment(f.ctx, arrear.ID, dec("600"))
	require.NoError(t, err)
	assert.Equal(t, model.ArrearPartial, partial.Status)
	assert.Equal(t, "900.00", partial.Amount.StringFixed(2))
	assert.Equal(t, "600.00", partial.PaidAmount.StringFixed(2))

	paid, err := svc.RecordPayment(f.ctx, arrear.ID, dec("900"))
	require.NoError(t, err)
	assert.Equal(t, model.ArrearPaid, paid.Status)
	assert.True(t, paid.Amount.IsZero())

	_, err = svc.RecordPayment(f.ctx, arrear.ID, dec("1"))
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.SendReminder(f.ctx, arrear.ID)
	assert.ErrorIs(t, err, ErrConflict, "paid arrears are not reminded")
}

func TestArrearCreateAndList(t *testing.T) {
	f := newFixture(t)
	svc := NewArrearService(f.db, f.log, notify.NoOpNotifier{}, WithClock(fixedClock))

	lotus := f.apartment("Lotus", 3)
	jasmine := f.apartment("Jasmine", 3)
	l1 := f.flat(lotus.ID, "101", "900")
	j1 := f.flat(jasmine.ID, "J-7", "900")
	vacant := f.flat(jasmine.ID, "J-8", "900")
	f.occupy(l1, f.owner("Asha", "", "1"))
	f.occupy(j1, f.owner("Kiran", "", "2"))

	_, err := svc.Create(f.ctx, ArrearInput{FlatID: l1.ID, Month: "2024-01", Amount: dec("1500")})
	require.NoError(t, err)
	_, err = svc.Create(f.ctx, ArrearInput{FlatID: l1.ID, Month: "2024-01", Amount: dec("10")})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Create(f.ctx, ArrearInput{FlatID: vacant.ID, Month: "2024-01", Amount: dec("10")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(f.ctx, ArrearInput{FlatID: l1.ID, Month: "January", Amount: dec("10")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(f.ctx, ArrearInput{FlatID: j1.ID, Month: "2023-12", Amount: dec("800")})
	require.NoError(t, err)

	all, err := svc.List(f.ctx, ArrearFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySearch, err := svc.List(f.ctx, ArrearFilter{Search: "jasm"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, j1.ID, bySearch[0].FlatID)

	byOwner, err := svc.List(f.ctx, ArrearFilter{Search: "ASHA"})
	require.NoError(t, err)
	assert.Len(t, byOwner, 1)

	byYear, err := svc.List(f.ctx, ArrearFilter{Year: 2023})
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, "2023-12", byYear[0].Month)

	byApartment, err := svc.List(f.ctx, ArrearFilter{ApartmentID: lotus.ID, Status: model.ArrearPending})
	require.NoError(t, err)
	require.Len(t, byApartment, 1)
	assert.Equal(t, l1.ID, byApartment[0].FlatID)

	mine, err := svc.ForOwner(f.ctx, *j1.OwnerID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestSyncRaisesArrearsForOverdueBills(t *testing.T) {
	f := newFixture(t)
	svc := NewArrearService(f.db, f.log, notify.NoOpNotifier{}, WithClock(fixedClock))
	billing := NewBillingService(f.db, f.log, dec("1500"), WithClock(fixedClock))

	a := f.apartment("Lotus", 3)
	fl := f.flat(a.ID, "101", "900")
	f.occupy(fl, f.owner("Asha", "", "1"))

	// February is overdue on 15 March; March falls due on the 10th and is too.
	// April is not yet due.
	for _, m := range []string{"February", "March", "April"} {
		_, err := billing.Generate(f.ctx, GenerateInput{Month: m, Year: 2024})
		require.NoError(t, err)
	}

	res, err := svc.Sync(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	res, err = svc.Sync(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Skipped)

	arrears, err := svc.List(f.ctx, ArrearFilter{})
	require.NoError(t, err)
	months := []string{}
	for _, a := range arrears {
		months = append(months, a.Month)
		assert.Equal(t, model.ArrearPending, a.Status)
	}
	assert.ElementsMatch(t, []string{"2024-02", "2024-03"}, months)
}

func TestSyncFollowsBillChanges(t *testing.T) {
	f := newFixture(t)
	svc := NewArrearService(f.db, f.log, notify.NoOpNotifier{}, WithClock(fixedClock))
	billing := NewBillingService(f.db, f.log, dec("1500"), WithClock(fixedClock))
	expenses := NewExpenseService(f.db, f.log, WithClock(fixedClock))

	a := f.apartment("Lotus", 3)
	fl := f.flat(a.ID, "101", "900")
	f.occupy(fl, f.owner("Asha", "", "1"))

	_, err := billing.Generate(f.ctx, GenerateInput{Month: "February", Year: 2024})
	require.NoError(t, err)
	res, err := svc.Sync(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	arrear := func() model.Arrear {
		list, err := svc.List(f.ctx, ArrearFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		return list[0]
	}
	distribute := func(title, amount, date string) {
		_, err := expenses.Distribute(f.ctx, DistributeInput{
			ApartmentID: a.ID, Title: title, Amount: dec(amount),
			Date: date, DistributionType: model.DistributionPerFlat,
		})
		require.NoError(t, err)
	}

	// an expense added after the arrear was raised
	distribute("Water", "300", "2024-02-20")
	res, err = svc.Sync(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "1800.00", arrear().Amount.StringFixed(2))
	assert.Equal(t, model.ArrearPending, arrear().Status)

	// part payment is credited to the bill too
	_, err = svc.RecordPayment(f.ctx, arrear().ID, dec("800"))
	require.NoError(t, err)
	bill := f.bills()[0]
	assert.Equal(t, "800.00", bill.PaidAmount.StringFixed(2))
	assert.Equal(t, model.BillUnpaid, bill.Status)

	res, err = svc.Sync(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "1000.00", arrear().Amount.StringFixed(2))

	// paying the rest settles the bill
	_, err = svc.RecordPayment(f.ctx, arrear().ID, dec("1000"))
	require.NoError(t, err)
	bill = f.bills()[0]
	assert.Equal(t, model.BillPaid, bill.Status)
	require.NotNil(t, bill.PaymentDate)

	// a later expense reopens the bill and the settled arrear
	distribute("Lift", "200", "2024-02-25")
	res, err = svc.Sync(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	got := arrear()
	assert.Equal(t, model.ArrearPartial, got.Status)
	assert.Equal(t, "200.00", got.Amount.StringFixed(2))
	assert.Equal(t, "1800.00", got.PaidAmount.StringFixed(2))
}
