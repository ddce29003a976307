package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticketry/internal/events"
	"ticketry/internal/shared/config"
	"ticketry/internal/shared/database"
	"ticketry/pkg/cache"
	"ticketry/pkg/logger"
)

// Seeds a demo event: a 5x6 room with 15 paid seats up front and 15
// promo-gated seats in the back, one single-use code per gated seat.
func main() {
	fmt.Println("🌱 Starting Ticketry Database Seeder...")

	cfg := config.Load()
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := clean(ctx, db); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned")

	eventRepo := events.NewRepository(db.GetPostgreSQL(), cfg.Ticketing.TxRetries)
	cacheService := cache.NewService(db.GetRedis(), logger.GetDefault())
	eventService := events.NewService(eventRepo, cacheService, logger.GetDefault())

	start := time.Now().UTC().AddDate(0, 1, 0)
	event, err := eventService.Create(ctx, events.CreateEventRequest{
		Title:            "Ticketry Launch Night",
		ShortDescription: "An intimate evening to celebrate the launch.",
		FullDescription:  "Thirty seats, live music, and a look behind the curtain of the platform.",
		Category:         "Technology",
		EventType:        "meetup",
		Mode:             "offline",
		Language:         "English",
		VenueName:        "The Loft",
		Address:          "42 MG Road",
		City:             "Bengaluru",
		State:            "Karnataka",
		Country:          "India",
		PinCode:          "560001",
		Longitude:        77.5946,
		Latitude:         12.9716,
		StartDate:        start,
		EndDate:          start.Add(4 * time.Hour),
	}, "seed")
	if err != nil {
		log.Fatalf("Failed to create demo event: %v", err)
	}

	if _, err := eventService.Publish(ctx, event.ID); err != nil {
		log.Fatalf("Failed to publish demo event: %v", err)
	}

	fmt.Printf("✅ Seeded event %s (%s)\n", event.Title, event.ID)
	fmt.Printf("   Promo codes (%d):\n", len(event.PromoCodes))
	for i := range event.PromoCodes {
		fmt.Printf("     %s\n", event.PromoCodes[i].Code)
	}
	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

func clean(ctx context.Context, db *database.DB) error {
	for _, table := range []string{"bookings", "reservations", "events"} {
		if err := db.GetPostgreSQL().WithContext(ctx).Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return db.GetRedis().FlushDB(ctx).Err()
}
