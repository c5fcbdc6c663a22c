package services

import "testing"

func TestComputeOrderAmounts(t *testing.T) {
	cases := []struct {
		name       string
		unitPrice  float64
		quantity   int
		wantAmount float64
		wantFee    float64
		wantSeller float64
	}{
		{"single ticket", 1000, 1, 1000, 50, 950},
		{"multiple tickets", 1500, 2, 3000, 150, 2850},
		{"fee rounds to cents", 333, 1, 333, 16.65, 316.35},
		{"amount plus fee reconciles", 999.99, 3, 2999.97, 150, 2849.97},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount, fee, seller := ComputeOrderAmounts(tc.unitPrice, tc.quantity)
			if amount != tc.wantAmount {
				t.Errorf("amount = %v, want %v", amount, tc.wantAmount)
			}
			if fee != tc.wantFee {
				t.Errorf("fee = %v, want %v", fee, tc.wantFee)
			}
			if seller != tc.wantSeller {
				t.Errorf("seller amount = %v, want %v", seller, tc.wantSeller)
			}
			if got := round2(fee + seller); got != amount {
				t.Errorf("fee + seller = %v, must equal amount %v", got, amount)
			}
		})
	}
}
