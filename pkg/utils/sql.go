package utils

import "gorm.io/gorm"

// DBOption adjusts a gorm query before it runs. Repositories accept a variadic
// list so callers can inject a transaction or preload without widening the
// interface.
type DBOption func(*gorm.DB) *gorm.DB

func ApplyOptions(db *gorm.DB, opts ...DBOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

// WithTx replaces the session entirely, so it must come first when combined
// with other options.
func WithTx(tx *gorm.DB) DBOption {
	return func(_ *gorm.DB) *gorm.DB {
		return tx
	}
}

func WithPreload(column string) DBOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(column)
	}
}
