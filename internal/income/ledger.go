// Package income accrues contributor earnings per inventory-day by
// replaying a unit's shipment history and pricing each "out with a member"
// interval through the commission schedule.
package income

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/example/rental-engine/internal/domain/inventory"
	"github.com/example/rental-engine/internal/domain/shipment"
	"github.com/example/rental-engine/internal/infrastructure/store"
	"github.com/example/rental-engine/internal/rate"
)

// Interval is one continuous stretch a unit spent with a member. Open
// intervals have no inbound receipt yet and extend to the computation time.
type Interval struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Open   bool      `json:"open"`
	Days   int       `json:"days"`
	Amount float64   `json:"amount"`
}

// History is the full earnings record for one unit
type History struct {
	UnitID      string     `json:"unit_id"`
	OwnerID     string     `json:"owner_id"`
	Points      int        `json:"points"`
	Intervals   []Interval `json:"intervals"`
	TotalDays   int        `json:"total_days"`
	TotalAmount float64    `json:"total_amount"`
}

// Ledger computes contributor income from shipment events
type Ledger struct {
	eventStore store.EventStoreInterface
	cfg        rate.Config
}

func NewLedger(es store.EventStoreInterface, cfg rate.Config) *Ledger {
	return &Ledger{eventStore: es, cfg: cfg}
}

// marker is one boundary in the unit's timeline: a member receiving the
// unit (outbound delivered) or the warehouse taking it back (inbound
// carrier-received).
type marker struct {
	at       time.Time
	outbound bool
}

// ComputeHistory replays the unit's rental shipment events, pairs each
// outbound delivery with the next inbound receipt, and prices each interval
// at the daily commission in force for the unit's creation date.
func (l *Ledger) ComputeHistory(ctx context.Context, unit *inventory.Unit, now time.Time) (*History, error) {
	markers, err := l.collectMarkers(unit.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].at.Before(markers[j].at) })

	daily := l.cfg.DailyCommissionAt(unit.Points, unit.CreatedAt)

	history := &History{
		UnitID:  unit.ID,
		OwnerID: unit.OwnerID,
		Points:  unit.Points,
	}

	var openStart *time.Time
	for _, m := range markers {
		if m.outbound {
			if openStart == nil {
				at := m.at
				openStart = &at
			}
			continue
		}
		if openStart != nil {
			history.Intervals = append(history.Intervals, priceInterval(*openStart, m.at, false, daily))
			openStart = nil
		}
	}
	if openStart != nil {
		history.Intervals = append(history.Intervals, priceInterval(*openStart, now, true, daily))
	}

	for _, iv := range history.Intervals {
		history.TotalDays += iv.Days
		history.TotalAmount += iv.Amount
	}
	return history, nil
}

func priceInterval(start, end time.Time, open bool, daily float64) Interval {
	days := rate.CalendarDaysBetween(start, end)
	return Interval{
		Start:  start,
		End:    end,
		Open:   open,
		Days:   days,
		Amount: daily * float64(days),
	}
}

// collectMarkers scans shipment events for rental shipments that carry the
// unit: outbound deliveries open an interval, inbound carrier receipts close
// one. EARN and RETURN shipments never contribute member days.
func (l *Ledger) collectMarkers(unitID string) ([]marker, error) {
	events := l.eventStore.GetEventsByType(shipment.AggregateType)

	type shipmentInfo struct {
		carries  bool
		outbound bool
	}
	shipments := make(map[string]shipmentInfo)
	var markers []marker

	for _, event := range events {
		switch event.EventType {
		case shipment.EventShipmentCreated:
			var data shipment.ShipmentCreated
			if err := json.Unmarshal(event.Data, &data); err != nil {
				return nil, err
			}
			if data.Type != shipment.TypeAccess {
				continue
			}
			info := shipmentInfo{outbound: data.Direction == shipment.DirectionOutbound}
			for _, id := range data.UnitIDs {
				if id == unitID {
					info.carries = true
					break
				}
			}
			shipments[data.ShipmentID] = info
		case shipment.EventTrackingEventRecorded:
			var data shipment.TrackingEventRecorded
			if err := json.Unmarshal(event.Data, &data); err != nil {
				return nil, err
			}
			info, ok := shipments[data.ShipmentID]
			if !ok || !info.carries {
				continue
			}
			if info.outbound && data.MappedStatus == shipment.StatusDelivered {
				markers = append(markers, marker{at: data.OccurredAt, outbound: true})
			}
			if !info.outbound && data.MappedStatus == shipment.StatusInTransit {
				markers = append(markers, marker{at: data.OccurredAt, outbound: false})
			}
		}
	}
	return markers, nil
}
