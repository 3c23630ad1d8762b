// Package agent is the scripted shipping assistant: it routes free-form text
// to a mock carrier tool by keyword intent and renders the tool output as the
// assistant reply.
package agent

import (
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/HueCodes/shipagent/internal/shipping"
)

// Tool names reported alongside replies so transports can surface activity.
const (
	ToolGetRates        = "get_shipping_rates"
	ToolValidateAddress = "validate_address"
	ToolCreateShipment  = "create_shipment"
	ToolTracking        = "get_tracking_status"
)

const (
	defaultCity     = "Los Angeles"
	defaultState    = "CA"
	defaultZip      = "90001"
	defaultWeightOz = 32.0
)

const helpText = `I can help you with:

- Get rates: "What are the rates to ship a 2lb package to Los Angeles?"
- Validate address: "Is 123 Main St, LA, CA 90001 a valid address?"
- Create shipment: "Ship it with the cheapest option"
- Track a package: "Where is 1Z123456789?"

What would you like to do?`

var trackingNumberRe = regexp.MustCompile(`\b(1Z\d{9}|94\d{9}|78\d{9})\b`)

// Agent holds conversational shipping state: the last parsed destination and
// weight, and the last quoted rates so "ship it" can pick the cheapest.
type Agent struct {
	engine *shipping.Engine
	logger *log.Logger

	mu         sync.Mutex
	lastCity   string
	lastState  string
	lastZip    string
	lastWeight float64
	lastRates  []shipping.Rate
}

func New(engine *shipping.Engine, logger *log.Logger) *Agent {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Agent{engine: engine, logger: logger}
}

// Reply processes one user message. It returns the name of the tool that ran,
// or "" when the message fell through to the help text.
func (a *Agent) Reply(text string) (tool string, response string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	lower := strings.ToLower(text)
	parsed := shipping.Parse(text)
	a.rememberLocked(parsed)

	switch {
	case containsAny(lower, "rate", "cost", "price", "how much", "ship to"):
		return ToolGetRates, a.quoteRatesLocked(parsed)
	case containsAny(lower, "valid", "check", "verify"):
		return ToolValidateAddress, a.validateLocked(parsed)
	case containsAny(lower, "ship it", "create", "buy", "use the"):
		return ToolCreateShipment, a.createShipmentLocked()
	case containsAny(lower, "track", "where is", "status"):
		return ToolTracking, a.trackLocked(text)
	default:
		return "", helpText
	}
}

func (a *Agent) rememberLocked(parsed shipping.Details) {
	if parsed.City != "" {
		a.lastCity = parsed.City
	}
	if parsed.State != "" {
		a.lastState = parsed.State
	}
	if parsed.Zip != "" {
		a.lastZip = parsed.Zip
	}
	if parsed.WeightOz > 0 {
		a.lastWeight = parsed.WeightOz
	}
}

func (a *Agent) quoteRatesLocked(parsed shipping.Details) string {
	to := shipping.Address{
		City:  fallback(parsed.City, defaultCity),
		State: fallback(parsed.State, defaultState),
		Zip:   fallback(parsed.Zip, defaultZip),
	}
	weight := parsed.WeightOz
	if weight <= 0 {
		weight = defaultWeightOz
	}

	rates := a.engine.Rates(to, shipping.Parcel{WeightOz: weight})
	a.lastRates = rates

	var b strings.Builder
	fmt.Fprintf(&b, "Shipping: %s\n\n", parsed.Describe())
	b.WriteString("Available shipping rates (sorted by price):\n\n")
	for i, r := range rates {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "%d. %s %s: $%.2f (%d days) [rate_id: %s]\n",
			i+1, r.Carrier, r.Service, r.Amount, r.DeliveryDays, r.RateID)
	}
	if !parsed.HasDestination() {
		b.WriteString("\nNote: Using default destination (LA). Specify a city, state, or ZIP for accurate rates.\n")
	}
	if !parsed.HasWeight() {
		b.WriteString("\nNote: Using default weight (2 lbs). Specify weight for accurate rates.\n")
	}
	b.WriteString("\nWould you like me to ship with any of these options?")
	return b.String()
}

func (a *Agent) validateLocked(parsed shipping.Details) string {
	addr := shipping.Address{
		Name:    "Recipient",
		Street1: "123 Main St",
		City:    fallback(parsed.City, defaultCity),
		State:   fallback(parsed.State, defaultState),
		Zip:     fallback(parsed.Zip, defaultZip),
	}
	corrected, _ := a.engine.ValidateAddress(addr)
	return fmt.Sprintf("Address is valid.\nStandardized: %s, %s, %s %s",
		corrected.Street1, corrected.City, corrected.State, corrected.Zip)
}

func (a *Agent) createShipmentLocked() string {
	if len(a.lastRates) == 0 {
		return "No rates in cache. Please get shipping rates first by saying something like 'get rates to LA for 2lb package'."
	}

	// Rates are stored cheapest first.
	cheapest := a.lastRates[0]
	to := shipping.Address{
		Name:    "Recipient",
		Street1: "123 Main St",
		City:    fallback(a.lastCity, defaultCity),
		State:   fallback(a.lastState, defaultState),
		Zip:     fallback(a.lastZip, defaultZip),
	}
	weight := a.lastWeight
	if weight <= 0 {
		weight = defaultWeightOz
	}

	shipment := a.engine.CreateShipment(to, shipping.Parcel{WeightOz: weight}, cheapest)
	a.logger.Printf("created shipment %s tracking=%s", shipment.ID, shipment.TrackingNumber)

	return fmt.Sprintf("Shipment created successfully!\nTracking Number: %s\nCarrier: %s %s\nCost: $%.2f\nLabel URL: %s",
		shipment.TrackingNumber, shipment.Carrier, shipment.Service, shipment.Rate, shipment.LabelURL)
}

func (a *Agent) trackLocked(text string) string {
	m := trackingNumberRe.FindStringSubmatch(text)
	if m == nil {
		return "Please provide a tracking number or order ID to track."
	}
	number := m[1]

	info := a.engine.Tracking(number)
	status := titleWords(strings.ReplaceAll(info.Status, "_", " "))

	var b strings.Builder
	fmt.Fprintf(&b, "Tracking: %s (%s)\n", number, shipping.CarrierForTracking(number))
	fmt.Fprintf(&b, "Status: %s\n", status)
	if info.EstimatedDelivery != "" {
		fmt.Fprintf(&b, "Estimated Delivery: %s\n", info.EstimatedDelivery)
	}
	if len(info.Events) > 0 {
		b.WriteString("\nRecent Events:\n")
		for i, ev := range info.Events {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "  - %s: %s\n", ev.OccurredAt.Format("Jan 02, 03:04 PM"), ev.Message)
			if ev.Location != "" {
				fmt.Fprintf(&b, "    Location: %s\n", ev.Location)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
