package common

import (
	coreerrors "monkeydao/core/errors"
)

// Module names accepted by the pause switchboard.
const (
	ModulePool       = "pool"
	ModuleStaking    = "staking"
	ModuleReputation = "reputation"
	ModuleDeals      = "deals"
)

var ErrModulePaused = coreerrors.ErrModulePaused

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused.Wrapf("%s", module)
	}
	return nil
}
