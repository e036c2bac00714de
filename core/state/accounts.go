package state

import (
	"fmt"

	"monkeydao/core/types"
)

var accountPrefix = []byte("account:")

func accountKey(addr [20]byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return buf
}

// GetAccount loads the account stored at addr. Unknown addresses resolve to
// an empty account.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var account types.Account
	ok, err := m.KVGet(accountKey(addr), &account)
	if err != nil {
		return nil, fmt.Errorf("state: load account: %w", err)
	}
	if !ok {
		return &types.Account{}, nil
	}
	return &account, nil
}

// PutAccount persists the account at addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.KVPut(accountKey(addr), account)
}
