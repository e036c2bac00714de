package config

import (
	"fmt"
	"strings"
)

var (
	MinPoolHorizonSeconds = int64(3600)
	MaxPoolParticipants   = uint8(8)
)

// Validate rejects configurations the node cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir must be set")
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return fmt.Errorf("auth: HMACSecret required when auth is enabled")
	}
	if cfg.RateLimit.RatePerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if cfg.RateLimit.RatePerSecond > 0 && cfg.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: burst must be positive when a rate is set")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	if cfg.Telemetry.ExportInterval.Duration < 0 {
		return fmt.Errorf("telemetry: ExportInterval must not be negative")
	}
	if cfg.Indexer.Enabled {
		switch strings.ToLower(cfg.Indexer.Driver) {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("indexer: unsupported driver %q", cfg.Indexer.Driver)
		}
		if strings.TrimSpace(cfg.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN must be set")
		}
	}
	return ValidateParams(cfg.Params)
}

// ValidateParams checks the economic parameters.
func ValidateParams(p Params) error {
	if p.PoolHorizonSeconds < MinPoolHorizonSeconds {
		return fmt.Errorf("params: pool horizon below %d seconds", MinPoolHorizonSeconds)
	}
	if len(p.AllowedPoolParticipants) == 0 {
		return fmt.Errorf("params: allowed pool participants must not be empty")
	}
	seen := make(map[uint8]bool, len(p.AllowedPoolParticipants))
	for _, count := range p.AllowedPoolParticipants {
		switch count {
		case 2, 4, 8:
		default:
			return fmt.Errorf("params: pool size %d has no group price", count)
		}
		if count > MaxPoolParticipants {
			return fmt.Errorf("params: pool size %d above %d", count, MaxPoolParticipants)
		}
		if seen[count] {
			return fmt.Errorf("params: duplicate pool size %d", count)
		}
		seen[count] = true
	}
	if p.StakingRewardPerDay == 0 {
		return fmt.Errorf("params: staking reward per day must be positive")
	}
	if strings.TrimSpace(p.Admin) != "" {
		if _, err := ParseAddress(p.Admin); err != nil {
			return fmt.Errorf("params: invalid admin address: %w", err)
		}
	}
	return nil
}
