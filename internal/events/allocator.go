package events

// AllocateSeats picks the first n free seats in the zone, scanning
// row-major from the zone's first row. Every seat carrying a hold is
// skipped regardless of occupancy, so pre-blocked seats never leak
// into customer reservations. Returns fewer than n ids when the zone
// cannot satisfy the request; callers treat that as a zone shortage.
func AllocateSeats(e *Event, zone Zone, n int) []string {
	if n <= 0 {
		return nil
	}

	held := e.HeldSeats()
	startRow, endRow := e.SeatingConfig.RowRange(zone)
	if startRow < 1 {
		startRow = 1
	}
	if endRow > e.SeatingConfig.TotalRows {
		endRow = e.SeatingConfig.TotalRows
	}

	seats := make([]string, 0, n)
	for row := startRow; row <= endRow; row++ {
		for seat := 1; seat <= e.SeatingConfig.SeatsPerRow; seat++ {
			id := SeatID(row, seat)
			if held[id] {
				continue
			}
			seats = append(seats, id)
			if len(seats) == n {
				return seats
			}
		}
	}
	return seats
}

// ZoneCapacity counts seats in the zone that carry no hold.
func ZoneCapacity(e *Event, zone Zone) int {
	held := e.HeldSeats()
	startRow, endRow := e.SeatingConfig.RowRange(zone)
	if startRow < 1 {
		startRow = 1
	}
	if endRow > e.SeatingConfig.TotalRows {
		endRow = e.SeatingConfig.TotalRows
	}

	free := 0
	for row := startRow; row <= endRow; row++ {
		for seat := 1; seat <= e.SeatingConfig.SeatsPerRow; seat++ {
			if !held[SeatID(row, seat)] {
				free++
			}
		}
	}
	return free
}
