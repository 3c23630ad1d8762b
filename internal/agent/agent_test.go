package agent

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/HueCodes/shipagent/internal/shipping"
)

func newAgent() *Agent {
	return New(shipping.NewEngine(42), log.New(io.Discard, "", 0))
}

func TestRatesIntent(t *testing.T) {
	a := newAgent()

	tool, reply := a.Reply("how much to ship a 2 lb package to Seattle?")
	if tool != ToolGetRates {
		t.Fatalf("expected rates tool, got %q", tool)
	}
	if !strings.Contains(reply, "Available shipping rates (sorted by price):") {
		t.Fatalf("missing rates header: %q", reply)
	}
	if !strings.Contains(reply, "rate_id:") {
		t.Fatal("rates must expose rate ids")
	}
	if strings.Contains(reply, "default destination") {
		t.Fatal("parsed destination must suppress the default note")
	}
	if strings.Contains(reply, "default weight") {
		t.Fatal("parsed weight must suppress the default note")
	}
}

func TestRatesIntentNotesDefaults(t *testing.T) {
	a := newAgent()

	_, reply := a.Reply("what does shipping cost?")
	if !strings.Contains(reply, "default destination") || !strings.Contains(reply, "default weight") {
		t.Fatalf("missing default notes: %q", reply)
	}
}

func TestValidateIntent(t *testing.T) {
	a := newAgent()

	tool, reply := a.Reply("is austin tx 78701 a valid address?")
	if tool != ToolValidateAddress {
		t.Fatalf("expected validate tool, got %q", tool)
	}
	if !strings.HasPrefix(reply, "Address is valid.\nStandardized: ") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if !strings.Contains(reply, "AUSTIN, TX 78701") {
		t.Fatalf("standardized line must use parsed destination: %q", reply)
	}
}

func TestShipWithoutRatesAsksForRatesFirst(t *testing.T) {
	a := newAgent()

	tool, reply := a.Reply("ship it with the cheapest option")
	if tool != ToolCreateShipment {
		t.Fatalf("expected shipment tool, got %q", tool)
	}
	if !strings.HasPrefix(reply, "No rates in cache.") {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestShipUsesCachedRatesAndDestination(t *testing.T) {
	a := newAgent()

	a.Reply("rates for a 3 lb box to Denver")
	tool, reply := a.Reply("ship it")

	if tool != ToolCreateShipment {
		t.Fatalf("expected shipment tool, got %q", tool)
	}
	if !strings.Contains(reply, "Shipment created successfully!") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if !strings.Contains(reply, "Tracking Number: ") {
		t.Fatalf("missing tracking number: %q", reply)
	}
}

func TestTrackIntent(t *testing.T) {
	a := newAgent()

	tool, reply := a.Reply("where is 1Z123456789?")
	if tool != ToolTracking {
		t.Fatalf("expected tracking tool, got %q", tool)
	}
	if !strings.Contains(reply, "Tracking: 1Z123456789 (UPS)") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if !strings.Contains(reply, "Status: In Transit") {
		t.Fatalf("missing status line: %q", reply)
	}
	if !strings.Contains(reply, "Recent Events:") {
		t.Fatalf("missing events: %q", reply)
	}
}

func TestTrackWithoutNumber(t *testing.T) {
	a := newAgent()

	_, reply := a.Reply("track my package")
	if reply != "Please provide a tracking number or order ID to track." {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestUnknownIntentReturnsHelp(t *testing.T) {
	a := newAgent()

	tool, reply := a.Reply("hello there")
	if tool != "" {
		t.Fatalf("help path must not name a tool, got %q", tool)
	}
	if !strings.Contains(reply, "I can help you with:") {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestRatesIntentWinsOverShipKeywords(t *testing.T) {
	a := newAgent()

	// "ship to" belongs to the rates intent even though "ship" appears.
	tool, _ := a.Reply("ship to Chicago, how much?")
	if tool != ToolGetRates {
		t.Fatalf("expected rates tool, got %q", tool)
	}
}
