package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/pkg/jwtutil"
)

func newAuth(f *fixture) (*AuthService, *jwtutil.JWTUtil) {
	j := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 168})
	return NewAuthService(f.db, f.log, j, WithClock(fixedClock)), j
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	auth, j := newAuth(f)

	_, err := auth.CreateAdmin(f.ctx, "Ravi", "Admin@Example.com", "pa55word")
	require.NoError(t, err)

	session, err := auth.AdminLogin(f.ctx, "admin@example.com", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, jwtutil.RoleAdmin, session.User.Role)
	assert.Equal(t, "Ravi", session.User.Name)

	claims, err := j.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.ID)

	_, err = auth.AdminLogin(f.ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.AdminLogin(f.ctx, "nobody@example.com", "pa55word")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.CreateAdmin(f.ctx, "Ravi", "admin@example.com", "again")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestOwnerLogin(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(f)

	a := f.apartment("Lotus", 4)
	fl := f.flat(a.ID, "A-101", "900")
	o := f.owner("Asha", "asha@example.com", "98450")
	f.occupy(fl, o)

	session, err := auth.OwnerLogin(f.ctx, "asha@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "A-101", session.User.FlatNo)
	assert.Equal(t, jwtutil.RoleOwner, session.User.Role)

	session, err = auth.OwnerLogin(f.ctx, "asha@example.com", "not-it")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, session)

	require.NoError(t, f.db.Model(&model.Owner{}).Where("id = ?", o.ID).Update("status", model.OwnerInactive).Error)
	_, err = auth.OwnerLogin(f.ctx, "asha@example.com", "secret")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestRegisterPairsOwnerWithFlat(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(f)

	a := f.apartment("Lotus", 4)
	fl := f.flat(a.ID, "B-202", "1100")

	session, err := auth.Register(f.ctx, RegisterInput{
		Name: "Meera", Email: "meera@example.com", Phone: "99000", FlatNo: "B-202", Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "B-202", session.User.FlatNo)

	flat := f.reloadFlat(fl.ID)
	require.NotNil(t, flat.OwnerID)
	assert.Equal(t, session.User.ID, *flat.OwnerID)
	assert.True(t, flat.IsOccupied)

	owner := f.reloadOwner(session.User.ID)
	require.NotNil(t, owner.FlatID)
	assert.Equal(t, fl.ID, *owner.FlatID)
	assert.Equal(t, model.OwnerActive, owner.Status)

	var history []model.OwnershipHistory
	require.NoError(t, f.db.Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, model.TransferAssignment, history[0].TransferType)

	// the new account can log in
	_, err = auth.OwnerLogin(f.ctx, "meera@example.com", "hunter22")
	assert.NoError(t, err)
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(f)

	a := f.apartment("Lotus", 4)
	b := f.apartment("Jasmine", 4)
	taken := f.flat(a.ID, "T-1", "800")
	f.occupy(taken, f.owner("Existing", "existing@example.com", "1"))
	f.flat(a.ID, "S-1", "800")
	f.flat(b.ID, "S-1", "800")
	f.flat(a.ID, "F-1", "800")

	tests := []struct {
		name string
		in   RegisterInput
		kind error
	}{
		{"duplicate email", RegisterInput{Name: "X", Email: "existing@example.com", FlatNo: "F-1", Password: "p"}, ErrConflict},
		{"occupied flat", RegisterInput{Name: "X", Email: "x1@example.com", FlatNo: "T-1", Password: "p"}, ErrConflict},
		{"unknown flat", RegisterInput{Name: "X", Email: "x2@example.com", FlatNo: "Z-9", Password: "p"}, ErrNotFound},
		{"ambiguous flat", RegisterInput{Name: "X", Email: "x3@example.com", FlatNo: "S-1", Password: "p"}, ErrInvalidInput},
		{"missing password", RegisterInput{Name: "X", Email: "x4@example.com", FlatNo: "F-1"}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Register(f.ctx, tt.in)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	// apartmentId disambiguates
	_, err := auth.Register(f.ctx, RegisterInput{Name: "Y", Email: "y@example.com", FlatNo: "S-1", Password: "p", ApartmentID: b.ID})
	assert.NoError(t, err)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(f)

	admin, err := auth.CreateAdmin(f.ctx, "Ravi", "ravi@example.com", "pw")
	require.NoError(t, err)

	p, err := auth.Me(f.ctx, admin.ID, jwtutil.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", p.Email)

	_, err = auth.Me(f.ctx, admin.ID, jwtutil.RoleOwner)
	assert.ErrorIs(t, err, ErrNotFound)
}
