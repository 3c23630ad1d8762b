// Package shipping is the mock carrier engine behind the dev agent: realistic
// rate quotes, address standardization, shipment creation and tracking
// timelines, with no external carrier account involved.
package shipping

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

type Address struct {
	Name    string
	Street1 string
	Street2 string
	City    string
	State   string
	Zip     string
	Country string
	Phone   string
}

type Parcel struct {
	WeightOz float64
}

type Rate struct {
	Carrier      string
	Service      string
	Amount       float64
	DeliveryDays int
	RateID       string
}

type Shipment struct {
	ID             string
	TrackingNumber string
	LabelURL       string
	Carrier        string
	Service        string
	Rate           float64
}

type TrackingEvent struct {
	Status     string
	Message    string
	Location   string
	OccurredAt time.Time
}

type TrackingInfo struct {
	Status            string
	EstimatedDelivery string
	Events            []TrackingEvent
}

type carrierService struct {
	carrier string
	service string
	minDays int
	maxDays int
}

var carrierServices = []carrierService{
	{"USPS", "Ground Advantage", 5, 7},
	{"USPS", "Priority Mail", 2, 3},
	{"USPS", "Priority Mail Express", 1, 2},
	{"UPS", "Ground", 4, 5},
	{"UPS", "3 Day Select", 3, 3},
	{"UPS", "2nd Day Air", 2, 2},
	{"UPS", "Next Day Air", 1, 1},
	{"FedEx", "Ground", 4, 5},
	{"FedEx", "Express Saver", 3, 3},
	{"FedEx", "2Day", 2, 2},
	{"FedEx", "Priority Overnight", 1, 1},
}

var (
	westCoastStates = map[string]bool{"CA": true, "WA": true, "OR": true, "NV": true, "AZ": true}
	eastCoastStates = map[string]bool{"NY": true, "NJ": true, "MA": true, "CT": true, "PA": true, "VA": true, "MD": true, "FL": true}
)

// Engine generates mock shipping data. Seed it for deterministic output in
// tests; a zero seed falls back to the clock.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewEngine(seed int64) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

// Rates quotes every carrier service for the destination and weight, cheapest
// first. Pricing scales with weight and a coarse coast-distance factor.
func (e *Engine) Rates(to Address, parcel Parcel) []Rate {
	weightFactor := parcel.WeightOz / 16
	baseCost := 5.0 + weightFactor*0.5

	state := strings.ToUpper(strings.TrimSpace(to.State))
	distanceFactor := 1.25
	switch {
	case westCoastStates[state]:
		distanceFactor = 1.5
	case eastCoastStates[state]:
		distanceFactor = 1.0
	}

	rates := make([]Rate, 0, len(carrierServices))
	for _, svc := range carrierServices {
		speedFactor := 1.0 / float64(svc.minDays)
		amount := baseCost * distanceFactor * (1 + speedFactor)
		switch svc.carrier {
		case "UPS":
			amount *= 1.1
		case "FedEx":
			amount *= 1.15
		}

		rates = append(rates, Rate{
			Carrier:      svc.carrier,
			Service:      svc.service,
			Amount:       roundCents(amount),
			DeliveryDays: svc.maxDays,
			RateID:       e.newRateID(),
		})
	}

	sort.Slice(rates, func(i, j int) bool { return rates[i].Amount < rates[j].Amount })
	return rates
}

// ValidateAddress always succeeds, returning the standardized form: uppercase
// street/city/state and the zip normalized to five digits.
func (e *Engine) ValidateAddress(addr Address) (Address, string) {
	corrected := Address{
		Name:    strings.ToUpper(addr.Name),
		Street1: strings.ToUpper(addr.Street1),
		Street2: strings.ToUpper(addr.Street2),
		City:    strings.ToUpper(addr.City),
		State:   strings.ToUpper(addr.State),
		Zip:     strings.SplitN(addr.Zip, "-", 2)[0],
		Country: "US",
		Phone:   addr.Phone,
	}
	return corrected, "Address is valid"
}

// CreateShipment buys the selected rate: the shipment carries the rate's
// carrier, service and amount, and a tracking number matching the carrier.
func (e *Engine) CreateShipment(to Address, parcel Parcel, rate Rate) Shipment {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Shipment{
		ID:             fmt.Sprintf("shp_%d", 10000+e.rng.Intn(90000)),
		TrackingNumber: e.newTrackingLocked(rate.Carrier),
		LabelURL:       "https://example.com/labels/mock-label.pdf",
		Carrier:        rate.Carrier,
		Service:        rate.Service,
		Rate:           rate.Amount,
	}
}

// Tracking returns a canned in-transit timeline for any tracking number.
func (e *Engine) Tracking(trackingNumber string) TrackingInfo {
	return TrackingInfo{
		Status:            "in_transit",
		EstimatedDelivery: "2025-01-10",
		Events: []TrackingEvent{
			{
				Status:     "in_transit",
				Message:    "Package in transit to destination",
				Location:   "Chicago, IL",
				OccurredAt: time.Date(2025, 1, 7, 14, 30, 0, 0, time.UTC),
			},
			{
				Status:     "accepted",
				Message:    "Package accepted at origin facility",
				Location:   "New York, NY",
				OccurredAt: time.Date(2025, 1, 6, 9, 15, 0, 0, time.UTC),
			},
		},
	}
}

// CarrierForTracking infers the carrier from the tracking number prefix.
func CarrierForTracking(trackingNumber string) string {
	switch {
	case strings.HasPrefix(trackingNumber, "1Z"):
		return "UPS"
	case strings.HasPrefix(trackingNumber, "94"):
		return "USPS"
	case strings.HasPrefix(trackingNumber, "78"):
		return "FedEx"
	default:
		return "USPS"
	}
}

func (e *Engine) newRateID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("rate_%d", 10000+e.rng.Intn(90000))
}

func (e *Engine) newTrackingLocked(carrier string) string {
	prefix := "94"
	switch carrier {
	case "UPS":
		prefix = "1Z"
	case "FedEx":
		prefix = "78"
	}
	return fmt.Sprintf("%s%d", prefix, 100000000+e.rng.Intn(900000000))
}

func roundCents(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
