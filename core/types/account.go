package types

// Account holds the balances of a ledger address. Balance is the base
// currency used for purchases and pool contributions; BalanceMONK is the
// platform reward token.
type Account struct {
	Balance     uint64 `json:"balance"`
	BalanceMONK uint64 `json:"balanceMONK"`
	// Controller names the seed domain of the authority that owns a derived
	// sub-account. Empty for externally owned addresses.
	Controller string `json:"controller,omitempty"`
}

// Clone returns a copy safe for mutation.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := *a
	return &clone
}
