package deals

// Lock moves the item into custody of custodian. The owner must hold the
// deal, and the deal must be live, unused and not already held.
func (e *Engine) Lock(id, owner, custodian [20]byte) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if deal.Owner != owner {
		return nil, ErrNotDealOwner
	}
	if deal.Locked() {
		return nil, ErrDealLocked
	}
	if deal.IsUsed {
		return nil, ErrDealAlreadyUsed
	}
	if deal.IsExpired(e.now()) {
		return nil, ErrDealExpired
	}
	deal.Custodian = custodian
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	return deal, nil
}

// Release returns custody of the item to its owner. Only the current
// custodian may release.
func (e *Engine) Release(id, custodian [20]byte) (*Deal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if !deal.Locked() || deal.Custodian != custodian {
		return nil, ErrDealNotLocked
	}
	deal.Custodian = [20]byte{}
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	return deal, nil
}
