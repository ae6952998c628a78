package pricing

import "testing"

func TestPriceRegular(t *testing.T) {
	haircut := Item{Name: "Haircut", RegularCents: 4000, VIPCents: 3200}
	beard := Item{Name: "Beard Trim", RegularCents: 1500}

	q := Price(haircut, []Item{beard}, false)
	if q.ServiceCents != 4000 {
		t.Fatalf("regular customer pays the regular rate, got %d", q.ServiceCents)
	}
	if q.AddonsCents != 1500 || q.TotalCents != 5500 {
		t.Fatalf("wrong totals: %+v", q)
	}
	if q.SavingsCents != 0 || q.VIPApplied {
		t.Fatalf("no VIP savings for regular customers: %+v", q)
	}
}

func TestPriceVIP(t *testing.T) {
	haircut := Item{Name: "Haircut", RegularCents: 4000, VIPCents: 3200}
	beard := Item{Name: "Beard Trim", RegularCents: 1500, VIPCents: 1200}
	wash := Item{Name: "Hair Wash", RegularCents: 800} // no member rate

	q := Price(haircut, []Item{beard, wash}, true)
	if q.ServiceCents != 3200 {
		t.Fatalf("VIP service rate not applied: %+v", q)
	}
	if q.AddonsCents != 2000 {
		t.Fatalf("addon without member rate should charge regular: %+v", q)
	}
	if q.TotalCents != 5200 {
		t.Fatalf("wrong total: %+v", q)
	}
	if q.SavingsCents != 1100 {
		t.Fatalf("expected 800+300 savings, got %d", q.SavingsCents)
	}
}

func TestPriceVIPRateNeverRaises(t *testing.T) {
	// A "member rate" above regular must not be charged.
	odd := Item{Name: "Promo Cut", RegularCents: 2000, VIPCents: 2500}
	q := Price(odd, nil, true)
	if q.TotalCents != 2000 {
		t.Fatalf("VIP pricing must never exceed regular, got %d", q.TotalCents)
	}
	if q.SavingsCents != 0 {
		t.Fatalf("no savings when regular rate wins, got %d", q.SavingsCents)
	}
}

func TestPriceNeverNegative(t *testing.T) {
	broken := Item{Name: "Bad Row", RegularCents: -100}
	q := Price(broken, []Item{{Name: "Also Bad", RegularCents: -50}}, false)
	if q.TotalCents < 0 || q.ServiceCents < 0 || q.AddonsCents < 0 {
		t.Fatalf("totals must be non-negative: %+v", q)
	}
}

func TestPriceDeterministic(t *testing.T) {
	haircut := Item{Name: "Haircut", RegularCents: 4000, VIPCents: 3200}
	addons := []Item{{Name: "Beard Trim", RegularCents: 1500, VIPCents: 1200}}
	first := Price(haircut, addons, true)
	for i := 0; i < 5; i++ {
		if got := Price(haircut, addons, true); got != first {
			t.Fatalf("quote changed between calls: %+v vs %+v", first, got)
		}
	}
}
