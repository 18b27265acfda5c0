// Package tariff maps an hour of the day to a grid electricity price.
package tariff

import (
	"errors"
	"fmt"

	"github.com/kilianp07/cogen/core/model"
)

// ErrInvalidSchedule is returned when bands do not cover every hour exactly once.
var ErrInvalidSchedule = errors.New("invalid tariff schedule")

// Band is a price applied on [Start, End) hours. Start > End wraps past
// midnight and Start == End covers the whole day.
type Band struct {
	Period model.Period `json:"period"`
	Start  int          `json:"start"`
	End    int          `json:"end"`
	Price  float64      `json:"price"` // DH/kWh
}

// Contains reports whether the band applies at hour h.
func (b Band) Contains(h int) bool {
	switch {
	case b.Start == b.End:
		return true
	case b.Start < b.End:
		return h >= b.Start && h < b.End
	default:
		return h >= b.Start || h < b.End
	}
}

// Schedule is a validated set of bands indexed by hour.
type Schedule struct {
	bands  []Band
	byHour [24]int
}

// NewSchedule validates the bands and indexes them by hour.
func NewSchedule(bands []Band) (*Schedule, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands", ErrInvalidSchedule)
	}
	s := &Schedule{bands: append([]Band(nil), bands...)}
	for h := range s.byHour {
		s.byHour[h] = -1
	}
	for i, b := range bands {
		if b.Start < 0 || b.Start > 23 || b.End < 0 || b.End > 23 {
			return nil, fmt.Errorf("%w: band %d hours out of range", ErrInvalidSchedule, i)
		}
		if b.Price < 0 {
			return nil, fmt.Errorf("%w: band %d has a negative price", ErrInvalidSchedule, i)
		}
		switch b.Period {
		case model.PeriodPeak, model.PeriodStandard, model.PeriodOffPeak:
		default:
			return nil, fmt.Errorf("%w: band %d has unknown period %q", ErrInvalidSchedule, i, b.Period)
		}
		for h := 0; h < 24; h++ {
			if !b.Contains(h) {
				continue
			}
			if s.byHour[h] >= 0 {
				return nil, fmt.Errorf("%w: hour %d covered twice", ErrInvalidSchedule, h)
			}
			s.byHour[h] = i
		}
	}
	for h, i := range s.byHour {
		if i < 0 {
			return nil, fmt.Errorf("%w: hour %d not covered", ErrInvalidSchedule, h)
		}
	}
	return s, nil
}

// Band returns the band applying at hour h, normalised into 0-23.
func (s *Schedule) Band(h int) Band {
	h = ((h % 24) + 24) % 24
	return s.bands[s.byHour[h]]
}

// PriceAt returns the grid price at hour h in DH/kWh.
func (s *Schedule) PriceAt(h int) float64 { return s.Band(h).Price }

// PeriodAt classifies hour h.
func (s *Schedule) PeriodAt(h int) model.Period { return s.Band(h).Period }

// Bands returns a copy of the configured bands.
func (s *Schedule) Bands() []Band { return append([]Band(nil), s.bands...) }
