package orders

import (
	"github.com/shopspring/decimal"
)

// ComputeFinalNaira derives the order total from a unit price, quantity, and
// discount. Whole-naira int64 in, whole-naira int64 out; decimal keeps the
// intermediate multiplication exact.
func ComputeFinalNaira(unitPriceNaira int64, quantity int, discountNaira int64) (total int64, final int64) {
	qty := decimal.NewFromInt(int64(quantity))
	unit := decimal.NewFromInt(unitPriceNaira)
	gross := unit.Mul(qty)

	total = gross.IntPart()
	net := gross.Sub(decimal.NewFromInt(discountNaira))
	if net.IsNegative() {
		net = decimal.Zero
	}
	final = net.IntPart()
	return total, final
}
