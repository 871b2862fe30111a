package models

import "time"

// Counter holds the high-water mark for a named sequence. There is a
// single row per sequence name; it is created lazily on first use and
// only ever mutated inside the allocator's transaction.
type Counter struct {
	Name      string `gorm:"primaryKey"`
	Value     int64  `gorm:"not null"`
	UpdatedAt time.Time
}
