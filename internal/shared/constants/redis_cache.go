package constants

import (
	"fmt"
	"time"
)

// Redis cache keys and TTLs, centralized.
// Pattern: ticketry:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // event details
	TTL_SEMI_STATIC_SHORT  = 1 * time.Hour    // event listings
	TTL_SEMI_STATIC_QUICK  = 15 * time.Minute // upcoming events
)

const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // analytics
	TTL_DYNAMIC_SHORT  = 5 * time.Minute  // seat availability
	TTL_DYNAMIC_QUICK  = 2 * time.Minute  // booking availability
)

const (
	TTL_REALTIME_SHORT = 30 * time.Second // live seat maps
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "ticketry"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENTS_LIST   = CACHE_PREFIX + ":events:list"       // + :page:X:limit:Y:...
	CACHE_KEY_EVENT_DETAIL  = CACHE_PREFIX + ":events:detail:id:" // + event-id
	CACHE_KEY_EVENT_SEATMAP = CACHE_PREFIX + ":events:seatmap:id:" // + event-id
	CACHE_KEY_EVENT_PROMOS  = CACHE_PREFIX + ":events:promos:id:"  // + event-id
)

const (
	TTL_EVENT_LIST    = TTL_SEMI_STATIC_SHORT
	TTL_EVENT_DETAIL  = TTL_SEMI_STATIC_MEDIUM
	TTL_EVENT_SEATMAP = TTL_REALTIME_SHORT
	TTL_EVENT_PROMOS  = TTL_DYNAMIC_SHORT
)

// ================== ANALYTICS MODULE ==================

const (
	CACHE_KEY_EVENT_ANALYTICS = CACHE_PREFIX + ":analytics:event:id:" // + event-id
)

const (
	TTL_EVENT_ANALYTICS = TTL_DYNAMIC_MEDIUM
)

// ================== INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_EVENT_ALL    = CACHE_PREFIX + ":events:*"
	PATTERN_INVALIDATE_ANALYTICS    = CACHE_PREFIX + ":analytics:*"
	PATTERN_INVALIDATE_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:id:" // + event-id + "*"
)

// ================== KEY BUILDERS ==================

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildEventSeatMapKey(eventID string) string {
	return CACHE_KEY_EVENT_SEATMAP + eventID
}

func BuildEventPromosKey(eventID string) string {
	return CACHE_KEY_EVENT_PROMOS + eventID
}

func BuildEventAnalyticsKey(eventID string) string {
	return CACHE_KEY_EVENT_ANALYTICS + eventID
}

func BuildEventListKey(page, limit int, status, city string) string {
	return fmt.Sprintf("%s:page:%d:limit:%d:status:%s:city:%s",
		CACHE_KEY_EVENTS_LIST, page, limit, status, city)
}
