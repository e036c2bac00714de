package deals

import (
	"strings"
	"unicode/utf8"
)

// RegisterMerchant creates an unverified merchant record for authority.
func (e *Engine) RegisterMerchant(authority [20]byte, name string) (*Merchant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxMerchantNameLength {
		return nil, ErrMerchantNameTooLong
	}
	if _, exists, err := e.loadMerchant(authority); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrMerchantRegistered
	}
	now := e.now()
	merchant := &Merchant{
		Authority:      authority,
		Name:           name,
		RegisteredAt:   now,
		LastActivityAt: now,
	}
	if err := e.storeMerchant(merchant); err != nil {
		return nil, err
	}
	e.emit(NewMerchantRegisteredEvent(merchant))
	return merchant, nil
}

// VerifyMerchant flags a merchant as verified. Only the platform admin may
// verify.
func (e *Engine) VerifyMerchant(admin, authority [20]byte) (*Merchant, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.params.Admin == ([20]byte{}) || admin != e.params.Admin {
		return nil, ErrNotAuthorizedAdmin
	}
	merchant, ok, err := e.loadMerchant(authority)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMerchantNotFound
	}
	merchant.IsVerified = true
	merchant.LastActivityAt = e.now()
	if err := e.storeMerchant(merchant); err != nil {
		return nil, err
	}
	e.emit(NewMerchantVerifiedEvent(merchant))
	return merchant, nil
}
