package services

import "math"

// platformFeeRate is the cut the platform keeps from every sale.
const platformFeeRate = 0.05

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeOrderAmounts derives the authoritative charge for a cart line
// from the server-side unit price, never from anything the client sent.
func ComputeOrderAmounts(unitPrice float64, quantity int) (amount, platformFee, sellerAmount float64) {
	amount = round2(unitPrice * float64(quantity))
	platformFee = round2(amount * platformFeeRate)
	sellerAmount = round2(amount - platformFee)
	return amount, platformFee, sellerAmount
}
