package service

import (
	"context"
	"time"

	"github.com/suteetoe/society-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Option customises a service.
type Option func(*base)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func newBase(db *gorm.DB, log *zap.Logger, opts []Option) base {
	if log == nil {
		log = zap.NewNop()
	}
	b := base{db: db, log: log, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) clock() time.Time {
	return b.now().UTC()
}

// logger prefers the request-scoped logger carried by ctx.
func (b base) logger(ctx context.Context) *zap.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return b.log
}

func (b base) conn(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx)
}
