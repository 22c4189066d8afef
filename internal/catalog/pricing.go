package catalog

import "storefront/internal/money"

// ComputePrice returns the unit price of a configured product.
// The order of operations is fixed: scale by size, add surface, add frame, round.
func ComputePrice(basePrice int64, size SizeOption, surface SurfaceOption, frame FrameOption) int64 {
	price := float64(basePrice) * size.Multiplier
	price += float64(surface.PriceEffect)
	price += float64(frame.PriceEffect)
	return money.Round(price)
}

// Price is ComputePrice over a resolved Selection.
func (s Selection) Price(basePrice int64) int64 {
	return ComputePrice(basePrice, s.Size, s.Surface, s.Frame)
}
