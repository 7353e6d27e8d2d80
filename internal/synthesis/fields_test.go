package synthesis

import (
	"reflect"
	"testing"
)

func TestParseFieldsAppliesDefaults(t *testing.T) {
	fields, err := parseFields(`{"role": "Frontend Developer", "techstack": "React, TypeScript"}`)
	if err != nil {
		t.Fatalf("parseFields failed: %v", err)
	}

	if fields.Level != "junior" {
		t.Fatalf("expected default level junior, got %q", fields.Level)
	}
	if fields.Type != "technical" {
		t.Fatalf("expected default type technical, got %q", fields.Type)
	}
	if fields.Amount != 5 {
		t.Fatalf("expected default amount 5, got %d", fields.Amount)
	}
	if !reflect.DeepEqual(fields.Techstack, []string{"React", "TypeScript"}) {
		t.Fatalf("unexpected techstack: %v", fields.Techstack)
	}
}

func TestParseFieldsFencedResponse(t *testing.T) {
	response := "```json\n{\"role\": \"DevOps Engineer\", \"techstack\": \"Kubernetes\", \"amount\": 7}\n```"
	fields, err := parseFields(response)
	if err != nil {
		t.Fatalf("parseFields failed: %v", err)
	}
	if fields.Role != "DevOps Engineer" || fields.Amount != 7 {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestParseFieldsTrailingProse(t *testing.T) {
	response := `Here you go: {"role": "QA Engineer", "techstack": "Selenium"} Let me know if you need more.`
	fields, err := parseFields(response)
	if err != nil {
		t.Fatalf("parseFields failed: %v", err)
	}
	if fields.Role != "QA Engineer" {
		t.Fatalf("unexpected role: %q", fields.Role)
	}
}

func TestParseFieldsErrors(t *testing.T) {
	cases := []struct {
		name     string
		response string
		kind     Kind
	}{
		{"no json", "sorry, I could not understand", KindExtractionIncomplete},
		{"missing role", `{"techstack": "Go", "amount": 5}`, KindExtractionIncomplete},
		{"missing techstack", `{"role": "Backend Developer"}`, KindExtractionIncomplete},
		{"blank techstack tokens", `{"role": "Backend Developer", "techstack": " , , "}`, KindInvalidFieldValue},
		{"fractional amount", `{"role": "Backend Developer", "techstack": "Go", "amount": 5.5}`, KindInvalidFieldValue},
		{"amount too low", `{"role": "Backend Developer", "techstack": "Go", "amount": -1}`, KindInvalidFieldValue},
		{"amount too high", `{"role": "Backend Developer", "techstack": "Go", "amount": 21}`, KindInvalidFieldValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseFields(tc.response)
			if KindOf(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestSplitTechstack(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"React, TypeScript", []string{"React", "TypeScript"}},
		{" Go ,, Postgres ", []string{"Go", "Postgres"}},
		{"Rust", []string{"Rust"}},
		{"", []string{}},
	}

	for _, tc := range cases {
		if got := SplitTechstack(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("SplitTechstack(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
