package pricing

// Item is anything with a price: a service or an addon. VIPCents is the
// member rate; zero means no member rate exists and the regular price
// applies to everyone.
type Item struct {
	Name         string
	RegularCents int64
	VIPCents     int64
}

// Quote is an itemized total. SavingsCents reports how much the VIP rate
// saved against regular pricing; it is zero for non-VIP customers.
type Quote struct {
	ServiceCents int64 `json:"service_cents"`
	AddonsCents  int64 `json:"addons_cents"`
	TotalCents   int64 `json:"total_cents"`
	SavingsCents int64 `json:"savings_cents"`
	VIPApplied   bool  `json:"vip_applied"`
}

// Price quotes a service plus addons. Deterministic: same inputs always
// produce the same quote, and the total is never negative.
func Price(service Item, addons []Item, vip bool) Quote {
	q := Quote{VIPApplied: vip}
	q.ServiceCents = effective(service, vip)
	q.SavingsCents = service.RegularCents - q.ServiceCents
	for _, a := range addons {
		charged := effective(a, vip)
		q.AddonsCents += charged
		q.SavingsCents += a.RegularCents - charged
	}
	q.TotalCents = q.ServiceCents + q.AddonsCents
	if !vip {
		q.SavingsCents = 0
	}
	return q
}

func effective(it Item, vip bool) int64 {
	price := it.RegularCents
	if vip && it.VIPCents > 0 && it.VIPCents < price {
		price = it.VIPCents
	}
	if price < 0 {
		price = 0
	}
	return price
}
