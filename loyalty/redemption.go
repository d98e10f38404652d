package loyalty

import "github.com/shopspring/decimal"

// ApplyAllPoints asks Redeem to use as many points as the order can absorb.
const ApplyAllPoints = -1

type Redemption struct {
	PointsApplied int             `json:"points_applied"`
	Discount      decimal.Decimal `json:"discount"`
}

// Redeem converts points into a discount. The result never uses more points
// than balance or requested and never discounts more than subtotal.
// A negative requested value means "apply all available points".
func Redeem(balance, requested int, subtotal, pointValue decimal.Decimal) Redemption {
	none := Redemption{Discount: decimal.Zero}
	if balance <= 0 || requested == 0 || !subtotal.IsPositive() || !pointValue.IsPositive() {
		return none
	}

	points := balance
	if requested > 0 && requested < points {
		points = requested
	}
	// Points beyond ceil(subtotal / pointValue) would buy nothing.
	if useful := subtotal.Div(pointValue).Ceil().IntPart(); int64(points) > useful {
		points = int(useful)
	}

	discount := pointValue.Mul(decimal.NewFromInt(int64(points))).Round(2)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return Redemption{PointsApplied: points, Discount: discount}
}
