package crypto

import (
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ProgramID namespaces every derived address so that seeds used by this
// ledger never collide with externally generated keys.
var ProgramID = []byte("monkeydao/v1")

// Seed domains for deterministic sub-accounts.
const (
	SeedDeal           = "deal"
	SeedUserProfile    = "user_profile"
	SeedPool           = "pool"
	SeedStake          = "stake"
	SeedStakeVault     = "stake_vault"
	SeedMerchant       = "merchant"
	SeedRating         = "rating"
	SeedEscrow         = "escrow"
	SeedBadge          = "badge"
	SeedTokenAuthority = "token_authority"
)

// Derive computes the deterministic address for the supplied seed parts. The
// result is the last 20 bytes of keccak256(ProgramID || seeds...). Anyone can
// recompute it; only the holder of the matching Authority can debit it.
func Derive(seeds ...[]byte) [20]byte {
	parts := make([][]byte, 0, len(seeds)+1)
	parts = append(parts, ProgramID)
	for _, seed := range seeds {
		// Length prefix keeps ("ab","c") and ("a","bc") distinct.
		parts = append(parts, []byte{byte(len(seed) >> 8), byte(len(seed))}, seed)
	}
	digest := ethcrypto.Keccak256(parts...)
	var out [20]byte
	copy(out[:], digest[12:])
	return out
}

// Authority is the controller capability for one seed domain. Values are
// only obtainable through NewAuthority, and the sub-account handles it hands
// out are the only way to move value out of a derived address.
type Authority struct {
	domain string
	addr   [20]byte
}

// NewAuthority returns the capability for the given seed domain.
func NewAuthority(domain string) *Authority {
	domain = strings.TrimSpace(domain)
	return &Authority{domain: domain, addr: Derive([]byte(domain))}
}

// Domain reports the seed domain controlled by the authority.
func (a *Authority) Domain() string {
	if a == nil {
		return ""
	}
	return a.domain
}

// Address is the authority's own derived address.
func (a *Authority) Address() [20]byte {
	if a == nil {
		return [20]byte{}
	}
	return a.addr
}

// Account returns the handle of the sub-account derived from the authority's
// domain followed by parts.
func (a *Authority) Account(parts ...[]byte) SubAccount {
	if a == nil {
		return SubAccount{}
	}
	seeds := make([][]byte, 0, len(parts)+1)
	seeds = append(seeds, []byte(a.domain))
	seeds = append(seeds, parts...)
	return SubAccount{addr: Derive(seeds...), domain: a.domain}
}

// Owns reports whether addr is the sub-account derived from parts under this
// authority.
func (a *Authority) Owns(addr [20]byte, parts ...[]byte) bool {
	if a == nil {
		return false
	}
	return a.Account(parts...).addr == addr
}

// SubAccount is a capability handle for a derived address.
type SubAccount struct {
	addr   [20]byte
	domain string
}

// Address returns the derived address.
func (s SubAccount) Address() [20]byte { return s.addr }

// Domain returns the seed domain that owns the sub-account.
func (s SubAccount) Domain() string { return s.domain }

// Valid reports whether the handle was produced by an authority.
func (s SubAccount) Valid() bool { return s.domain != "" }
