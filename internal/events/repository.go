package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ticketry/internal/shared/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	Save(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q ListQuery) ([]Event, int64, error)
	ListCategories(ctx context.Context) ([]string, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	Transact(ctx context.Context, id uuid.UUID, fn func(event *Event) error) error
}

type repository struct {
	db        *gorm.DB
	txRetries int
}

func NewRepository(db *gorm.DB, txRetries int) Repository {
	if txRetries < 1 {
		txRetries = 3
	}
	return &repository{db: db, txRetries: txRetries}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create event", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindEventNotFound, "event not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load event", err)
	}
	return &event, nil
}

func (r *repository) Save(ctx context.Context, event *Event) error {
	if err := r.db.WithContext(ctx).Save(event).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save event", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&Event{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete event", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindEventNotFound, "event not found")
	}
	return nil
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Event, int64, error) {
	query := r.db.WithContext(ctx).Model(&Event{})

	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		query = query.Where(
			"title ILIKE ? OR short_description ILIKE ? OR venue_name ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	if q.City != "" {
		query = query.Where("city ILIKE ?", q.City)
	}
	if q.State != "" {
		query = query.Where("state ILIKE ?", q.State)
	}
	if q.Country != "" {
		query = query.Where("country ILIKE ?", q.Country)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.EventType != "" {
		query = query.Where("event_type = ?", q.EventType)
	}
	if q.Mode != "" {
		query = query.Where("mode = ?", q.Mode)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	} else {
		query = query.Where("is_published = ?", true)
	}
	if q.DateFrom != nil {
		query = query.Where("start_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("start_date <= ?", *q.DateTo)
	}
	if q.MinPrice != nil {
		query = query.Where(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(ticket_types) t WHERE (t->>'price')::numeric >= ?)",
			*q.MinPrice,
		)
	}
	if q.MaxPrice != nil {
		query = query.Where(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(ticket_types) t WHERE (t->>'price')::numeric <= ?)",
			*q.MaxPrice,
		)
	}
	if q.Near != "" {
		lng, lat, err := parseNear(q.Near)
		if err != nil {
			return nil, 0, err
		}
		radius := q.RadiusKm
		if radius <= 0 {
			radius = 50
		}
		// Haversine distance on plain lat/lng columns, radius in km.
		query = query.Where(
			"(6371 * acos(least(1, cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?)) + sin(radians(?)) * sin(radians(latitude))))) <= ?",
			lat, lng, lat, radius,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to count events", err)
	}

	order := fmt.Sprintf("%s %s", sortColumn(q.SortBy), strings.ToUpper(q.SortOrder))
	var events []Event
	err := query.
		Order(order).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list events", err)
	}
	return events, total, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("is_published = ?", true).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list categories", err)
	}
	return categories, nil
}

func (r *repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ?", id).
		UpdateColumn("total_views", gorm.Expr("total_views + 1")).Error
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to increment views", err)
	}
	return nil
}

// Transact loads the event under a row lock, applies fn, recomputes the
// derived counters and writes the row back, all in one transaction.
// Serialization conflicts and deadlocks are retried a bounded number of
// times before surfacing as contention.
func (r *repository) Transact(ctx context.Context, id uuid.UUID, fn func(event *Event) error) error {
	var lastErr error
	for attempt := 0; attempt < r.txRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var event Event
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&event, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.New(apperr.KindEventNotFound, "event not found")
				}
				return apperr.Wrap(apperr.KindInternal, "failed to lock event", err)
			}

			if err := fn(&event); err != nil {
				return err
			}

			event.RecomputeDerived()
			if err := event.CheckConsistency(); err != nil {
				return apperr.Wrap(apperr.KindInventoryInconsistent, "inventory counters out of range", err)
			}
			return tx.Save(&event).Error
		})
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return apperr.Wrap(apperr.KindContention, "event is under heavy contention, try again", lastErr)
}

// isRetryable spots serialization failures and deadlocks. Domain errors
// from fn are never retried.
func isRetryable(err error) bool {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40P01") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize")
}

func parseNear(near string) (lng, lat float64, err error) {
	parts := strings.Split(near, ",")
	if len(parts) != 2 {
		return 0, 0, apperr.New(apperr.KindValidation, "near must be formatted as lng,lat")
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, apperr.New(apperr.KindValidation, "near longitude is not a number")
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, apperr.New(apperr.KindValidation, "near latitude is not a number")
	}
	return lng, lat, nil
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "price":
		return "(SELECT min((t->>'price')::numeric) FROM jsonb_array_elements(ticket_types) t)"
	case "popularity":
		return "total_views"
	case "created_at", "createdAt":
		return "created_at"
	case "title":
		return "title"
	default:
		return "start_date"
	}
}
