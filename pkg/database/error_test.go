package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("create flat: %w", gorm.ErrDuplicatedKey), true},
		{"postgres", errors.New(`ERROR: duplicate key value violates unique constraint "idx_flat_number" (SQLSTATE 23505)`), true},
		{"sqlite", errors.New("UNIQUE constraint failed: flats.apartment_id, flats.flat_number"), true},
		{"other", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateKeyErr(tt.err))
		})
	}
}

func TestNewTestIsUsable(t *testing.T) {
	db, err := NewTest()
	assert.NoError(t, err)

	type probe struct {
		ID   uint
		Name string `gorm:"uniqueIndex"`
	}
	assert.NoError(t, Migrate(db, &probe{}))
	assert.NoError(t, db.Create(&probe{Name: "a"}).Error)

	err = db.Create(&probe{Name: "a"}).Error
	assert.True(t, IsDuplicateKeyErr(err))
	assert.True(t, IsNotFound(db.Where("name = ?", "missing").First(&probe{}).Error))
}
