package phase

import (
	"github.com/tonreplay/replayer/money"
	"github.com/tonreplay/replayer/tonacc"
)

// RunCredit adds an inbound internal message's value to the account
// balance, clearing any positive due_payment first, per spec.md §4.E.2.
// Whether this runs before or after Storage is decided by the driver
// based on the message's bounce flag — RunCredit itself is agnostic to
// ordering.
func RunCredit(acc *tonacc.Account, value money.CurrencyCollection) (CreditResult, error) {
	cleared := money.Zero
	if !acc.DuePayment.IsZero() {
		if value.Grams.Cmp(acc.DuePayment) >= 0 {
			cleared = acc.DuePayment
			acc.DuePayment = money.Zero
		} else {
			cleared = value.Grams
			acc.DuePayment = acc.DuePayment.SaturatingSub(value.Grams)
		}
	}

	newBal, err := acc.Balance.Add(value)
	if err != nil {
		return CreditResult{}, err
	}
	acc.Balance = newBal
	return CreditResult{Credited: value, DueCleared: cleared}, nil
}
