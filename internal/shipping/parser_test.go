package shipping

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestParseWeightUnits(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"ship a 2 lb package", 32},
		{"2.5 pounds of books", 40},
		{"an 8 oz letter", 8},
		{"1 kg parcel", 35.274},
		{"500 grams", 17.637},
		{"no weight mentioned", 0},
	}
	for _, tc := range cases {
		if got := ParseWeight(tc.text); !almostEqual(got, tc.want) {
			t.Fatalf("ParseWeight(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestParseWeightPrefersPounds(t *testing.T) {
	if got := ParseWeight("2 lb 3 oz box"); !almostEqual(got, 32) {
		t.Fatalf("pounds must win over ounces, got %v", got)
	}
}

func TestParseZip(t *testing.T) {
	if got := ParseZip("send to 90210 please"); got != "90210" {
		t.Fatalf("got %q", got)
	}
	if got := ParseZip("zip is 78701-1234"); got != "78701" {
		t.Fatalf("zip+4 must trim, got %q", got)
	}
	if got := ParseZip("order 1234 arrived"); got != "" {
		t.Fatalf("4 digits must not match, got %q", got)
	}
}

func TestParseState(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"ship to california", "CA"},
		{"somewhere in West Virginia", "WV"},
		{"send it to Austin, TX today", "TX"},
		{"or maybe not", ""},
		{"put it in the box", ""},
	}
	for _, tc := range cases {
		if got := ParseState(tc.text); got != tc.want {
			t.Fatalf("ParseState(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestParseCity(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"how much to ship to chicago", "Chicago"},
		{"rates for nyc", "New York"},
		{"new york city rates", "New York"},
		{"rates to philly", "Philadelphia"},
		{"2 lb box to vegas", "Las Vegas"},
		{"shipping to atl please", "Atlanta"},
		{"send it to chi", "Chicago"},
		{"ship to Springfield", "Springfield"},
		{"nothing here", ""},
	}
	for _, tc := range cases {
		if got := ParseCity(tc.text); got != tc.want {
			t.Fatalf("ParseCity(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestParseServiceLevel(t *testing.T) {
	cases := map[string]string{
		"I need it overnight":  "overnight",
		"next day delivery":    "overnight",
		"2-day express":        "express",
		"cheapest option":      "ground",
		"whatever works":       "",
		"ground shipping fine": "ground",
	}
	for text, want := range cases {
		if got := ParseServiceLevel(text); got != want {
			t.Fatalf("ParseServiceLevel(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestParseCombinesFields(t *testing.T) {
	d := Parse("how much to ship a 2 lb package to Seattle overnight")

	if d.City != "Seattle" || d.State != "WA" {
		t.Fatalf("destination wrong: %+v", d)
	}
	if !almostEqual(d.WeightOz, 32) {
		t.Fatalf("weight wrong: %v", d.WeightOz)
	}
	if d.ServiceLevel != "overnight" {
		t.Fatalf("service level wrong: %q", d.ServiceLevel)
	}
	if !d.HasDestination() || !d.HasWeight() {
		t.Fatal("presence flags must be set")
	}
}

func TestParseInfersStateFromCity(t *testing.T) {
	d := Parse("rates to chicago for 8 oz")
	if d.State != "IL" {
		t.Fatalf("state must come from the city table, got %q", d.State)
	}
}

func TestDescribe(t *testing.T) {
	d := Parse("ship 2 lb to Denver 80202 express")
	got := d.Describe()
	want := "to Denver, CO, zip 80202, 32.0 oz, express service"
	if got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}

	if (Details{}).Describe() != "no shipping details" {
		t.Fatal("empty details must say so")
	}
}
