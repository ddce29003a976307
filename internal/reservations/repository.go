package reservations

import (
	"context"
	"errors"
	"time"

	"ticketry/internal/shared/apperr"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	// DeleteByID removes the row and reports whether it existed. The
	// release path uses the delete as its idempotency guard: only the
	// caller that wins the delete performs the inventory rollback.
	DeleteByID(ctx context.Context, id string) (bool, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, res *Reservation) error {
	if err := r.db.WithContext(ctx).Create(res).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to persist reservation", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	var res Reservation
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindReservationNotFound, "reservation not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load reservation", err)
	}
	return &res, nil
}

func (r *repository) DeleteByID(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&Reservation{}, "id = ?", id)
	if result.Error != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to delete reservation", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	var expired []Reservation
	err := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Order("expires_at").
		Limit(limit).
		Find(&expired).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to scan expired reservations", err)
	}
	return expired, nil
}
