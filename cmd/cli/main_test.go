package main

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFieldsFlag(t *testing.T) {
	f := fieldsFlag{}
	for _, s := range []string{"coin_name=Bitcoin", "units=0.25", " note = a=b"} {
		if err := f.Set(s); err != nil {
			t.Fatalf("Set(%q): %v", s, err)
		}
	}
	want := fieldsFlag{
		"coin_name": "Bitcoin",
		"units":     json.Number("0.25"),
		"note":      " a=b",
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if err := f.Set(bad); err == nil {
			t.Errorf("Set(%q) should fail", bad)
		}
	}
}

func TestListFilter(t *testing.T) {
	f, err := listFilter("2024-01-01", "2024-01-31", "Crypto", "Investment")
	if err != nil {
		t.Fatalf("listFilter: %v", err)
	}
	if f.From.String() != "2024-01-01" || f.To.String() != "2024-01-31" {
		t.Errorf("unexpected range %s..%s", f.From, f.To)
	}
	if diff := cmp.Diff([]string{"Crypto"}, f.Categories); diff != "" {
		t.Errorf("categories (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Investment"}, f.Types); diff != "" {
		t.Errorf("types (-want +got):\n%s", diff)
	}

	f, err = listFilter("", "", "", "")
	if err != nil || !f.From.IsZero() || f.Categories != nil {
		t.Errorf("empty flags should give an empty filter, got %+v, %v", f, err)
	}

	if _, err := listFilter("01/02/2024", "", "", ""); err == nil {
		t.Error("expected error for a non-ISO date")
	}
}
