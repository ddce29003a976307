package events

// SeatState is the per-seat projection served to seat pickers.
type SeatState struct {
	SeatNumber  string `json:"seatNumber"`
	Row         int    `json:"row"`
	Seat        int    `json:"seat"`
	Zone        Zone   `json:"zone"`
	IsAvailable bool   `json:"isAvailable"`
	IsOccupied  bool   `json:"isOccupied"`
	IsBlocked     bool   `json:"isBlocked"`
	ReservedFor   string `json:"reservedFor,omitempty"`
	PromoCodeUsed string `json:"promoCodeUsed,omitempty"`
}

type SeatMapRow struct {
	Row   int         `json:"row"`
	Label string      `json:"label"`
	Zone  Zone        `json:"zone"`
	Seats []SeatState `json:"seats"`
}

type TicketAvailability struct {
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Zone              Zone    `json:"seatType"`
	TotalQuantity     int     `json:"totalQuantity"`
	AvailableQuantity int     `json:"availableQuantity"`
	ReservedQuantity  int     `json:"reservedQuantity"`
	SoldQuantity      int     `json:"soldQuantity"`
	RequiresPromoCode bool    `json:"requiresPromoCode"`
	IsActive          bool    `json:"isActive"`
}

type SeatMap struct {
	EventID            string               `json:"eventId"`
	TotalRows          int                  `json:"totalRows"`
	SeatsPerRow        int                  `json:"seatsPerRow"`
	TotalSeats         int                  `json:"totalSeats"`
	AvailableSeats     int                  `json:"availableSeats"`
	Rows               []SeatMapRow         `json:"rows"`
	TicketAvailability []TicketAvailability `json:"ticketAvailability"`
	PromoCodeStats     PromoStats           `json:"promoCodeStats"`
}

// BuildSeatMap projects the seat grid with per-seat state. A seat with
// any hold is unavailable; occupied distinguishes sold seats from
// admin-blocked ones.
func BuildSeatMap(e *Event) *SeatMap {
	holds := make(map[string]*AdminHold, len(e.AdminHolds))
	for i := range e.AdminHolds {
		holds[e.AdminHolds[i].SeatNumber] = &e.AdminHolds[i]
	}

	sc := e.SeatingConfig
	available := 0
	rows := make([]SeatMapRow, 0, sc.TotalRows)
	for row := 1; row <= sc.TotalRows; row++ {
		zone := sc.ZoneOfRow(row)
		seats := make([]SeatState, 0, sc.SeatsPerRow)
		for seat := 1; seat <= sc.SeatsPerRow; seat++ {
			id := SeatID(row, seat)
			state := SeatState{
				SeatNumber:  id,
				Row:         row,
				Seat:        seat,
				Zone:        zone,
				IsAvailable: true,
			}
			if hold, ok := holds[id]; ok {
				state.IsAvailable = false
				state.IsOccupied = hold.IsOccupied
				state.IsBlocked = !hold.IsOccupied
				state.ReservedFor = hold.ReservedFor
				if hold.PromoCode != nil {
					state.PromoCodeUsed = *hold.PromoCode
				}
			} else {
				available++
			}
			seats = append(seats, state)
		}
		rows = append(rows, SeatMapRow{
			Row:   row,
			Label: string(rune('A' + row - 1)),
			Zone:  zone,
			Seats: seats,
		})
	}

	availability := make([]TicketAvailability, 0, len(e.TicketTypes))
	for i := range e.TicketTypes {
		t := &e.TicketTypes[i]
		availability = append(availability, TicketAvailability{
			Name:              t.Name,
			Price:             t.Price,
			Zone:              t.Zone,
			TotalQuantity:     t.TotalQuantity,
			AvailableQuantity: t.AvailableQuantity,
			ReservedQuantity:  t.ReservedQuantity,
			SoldQuantity:      t.SoldQuantity,
			RequiresPromoCode: t.RequiresPromoCode,
			IsActive:          t.IsActive,
		})
	}

	return &SeatMap{
		EventID:            e.ID.String(),
		TotalRows:          sc.TotalRows,
		SeatsPerRow:        sc.SeatsPerRow,
		TotalSeats:         sc.TotalRows * sc.SeatsPerRow,
		AvailableSeats:     available,
		Rows:               rows,
		TicketAvailability: availability,
		PromoCodeStats:     e.PromoStats(),
	}
}
