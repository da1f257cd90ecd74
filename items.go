package prizewheel

// DefaultItems returns the stock eight-segment coupon wheel.
func DefaultItems() []Item {
	return []Item{
		{Label: "15% off", Color: "#002c3c"},
		{Label: "10% Off", Color: "#f59e0b"},
		{Label: "Free Shipping", Color: "#005f80"},
		{Label: "5% off", Color: "#c2410c"},
		{Label: "25% off", Color: "#002c3c"},
		{Label: "Free Shipping", Color: "#f59e0b"},
		{Label: "5% Off", Color: "#005f80"},
		{Label: "20% Off", Color: "#c2410c"},
	}
}
