package coupon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(Defaults())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	def, ok := reg.Lookup("  save50 ")
	if !ok {
		t.Fatal("expected SAVE50 to resolve")
	}
	if def.Code != "SAVE50" || def.Kind != KindFlat {
		t.Fatalf("unexpected definition: %+v", def)
	}
}

func TestRegistryRejectsDuplicateCodes(t *testing.T) {
	_, err := NewRegistry([]Definition{
		{Code: "TWICE", Kind: KindFlat, Value: 10},
		{Code: "twice", Kind: KindFlat, Value: 20},
	})
	if err == nil {
		t.Fatal("expected duplicate code error")
	}
}

func TestRegistryRejectsInvalidDefinitions(t *testing.T) {
	cases := []Definition{
		{Code: "", Kind: KindFlat, Value: 10},
		{Code: "BAD", Kind: KindFlat, Value: 0},
		{Code: "BAD", Kind: KindPercent, PercentBps: 0},
		{Code: "BAD", Kind: KindPercent, PercentBps: 10001},
		{Code: "BAD", Kind: Kind("bogus")},
	}
	for _, def := range cases {
		if _, err := NewRegistry([]Definition{def}); err == nil {
			t.Fatalf("expected rejection for %+v", def)
		}
	}
}

func TestLoadFileRoundTrip(t *testing.T) {
	defs := []Definition{{Code: "DIWALI", Kind: KindPercent, PercentBps: 1500, MaxDiscount: 400}}
	raw, err := json.Marshal(defs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "coupons.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Code != "DIWALI" {
		t.Fatalf("unexpected load result: %+v", loaded)
	}
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	reg, err := NewRegistry(Defaults())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	all := reg.All()
	if len(all) != reg.Len() {
		t.Fatalf("All returned %d of %d definitions", len(all), reg.Len())
	}
	if all[0].Code != "SAVE50" {
		t.Fatalf("expected SAVE50 first, got %s", all[0].Code)
	}
}
