package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/pkg/database"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fixture struct {
	t   *testing.T
	db  *gorm.DB
	ctx context.Context
	log *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewTest()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))
	return &fixture{t: t, db: db, ctx: context.Background(), log: zap.NewNop()}
}

func (f *fixture) apartment(name string, floors int) *model.Apartment {
	f.t.Helper()
	a := &model.Apartment{Name: name, Address: name + " Road", TotalFloors: floors}
	require.NoError(f.t, f.db.Create(a).Error)
	return a
}

func (f *fixture) flat(apartmentID, number, area string) *model.Flat {
	f.t.Helper()
	fl := &model.Flat{
		ApartmentID: apartmentID,
		FlatNumber:  number,
		Floor:       1,
		UnitType:    "2BHK",
		AreaSqft:    decimal.RequireFromString(area),
	}
	require.NoError(f.t, f.db.Create(fl).Error)
	return fl
}

func (f *fixture) owner(name, email, phone string) *model.Owner {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(f.t, err)
	o := &model.Owner{Name: name, Phone: phone, Password: string(hash), Status: model.OwnerActive}
	if email != "" {
		o.Email = &email
	}
	require.NoError(f.t, f.db.Create(o).Error)
	return o
}

// occupy pairs owner and flat directly, bypassing OwnershipService.
func (f *fixture) occupy(fl *model.Flat, o *model.Owner) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&model.Flat{}).Where("id = ?", fl.ID).
		Updates(map[string]interface{}{"owner_id": o.ID, "is_occupied": true}).Error)
	require.NoError(f.t, f.db.Model(&model.Owner{}).Where("id = ?", o.ID).Update("flat_id", fl.ID).Error)
	fl.OwnerID, fl.IsOccupied = &o.ID, true
	o.FlatID = &fl.ID
}

func (f *fixture) reloadFlat(id string) model.Flat {
	f.t.Helper()
	var fl model.Flat
	require.NoError(f.t, f.db.First(&fl, "id = ?", id).Error)
	return fl
}

func (f *fixture) reloadOwner(id string) model.Owner {
	f.t.Helper()
	var o model.Owner
	require.NoError(f.t, f.db.First(&o, "id = ?", id).Error)
	return o
}

func (f *fixture) bills() []model.Bill {
	f.t.Helper()
	var bills []model.Bill
	require.NoError(f.t, f.db.Order("created_at").Find(&bills).Error)
	return bills
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
