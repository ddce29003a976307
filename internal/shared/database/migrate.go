package database

import (
	"ticketry/internal/bookings"
	"ticketry/internal/events"
	"ticketry/internal/reservations"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&events.Event{},
		&reservations.Reservation{},
		&bookings.Booking{},
	)
}
