package config

import (
	"strings"
	"time"

	"monkeydao/native/common"
	"monkeydao/native/deals"
	"monkeydao/native/pool"
	"monkeydao/native/staking"
)

// Auth configures bearer token verification on the HTTP gateway.
type Auth struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  Duration
}

// RateLimit bounds requests per caller.
type RateLimit struct {
	RatePerSecond float64
	Burst         int
}

// Telemetry controls the OTLP exporters.
type Telemetry struct {
	Enabled        bool
	Endpoint       string
	Insecure       bool
	ServiceName    string
	SampleRatio    float64
	ExportInterval Duration
	Headers        map[string]string
	Attributes     map[string]string
}

// Indexer selects the event index database.
type Indexer struct {
	Enabled bool
	Driver  string
	DSN     string
}

// Pauses lets operators halt a module without restarting the node.
type Pauses struct {
	Pool       bool
	Staking    bool
	Reputation bool
	Deals      bool
}

// IsPaused reports whether the named module is halted.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case common.ModulePool:
		return p.Pool
	case common.ModuleStaking:
		return p.Staking
	case common.ModuleReputation:
		return p.Reputation
	case common.ModuleDeals:
		return p.Deals
	default:
		return false
	}
}

// Params carries the economic knobs of the ledger. Amounts are in MONK base
// units.
type Params struct {
	PoolHorizonSeconds      int64
	AllowedPoolParticipants []uint8
	PoolParticipationReward uint64
	StakingRewardPerDay     uint64
	ListingReward           uint64
	RedemptionReward        uint64
	Admin                   string
}

// DefaultParams returns the platform defaults.
func DefaultParams() Params {
	p := pool.DefaultParams()
	s := staking.DefaultParams()
	d := deals.DefaultParams()
	return Params{
		PoolHorizonSeconds:      p.Horizon,
		AllowedPoolParticipants: append([]uint8(nil), p.AllowedParticipants...),
		PoolParticipationReward: p.ParticipationReward,
		StakingRewardPerDay:     s.RewardPerDay,
		ListingReward:           d.ListingReward,
		RedemptionReward:        d.RedemptionReward,
	}
}

// Pool converts the params into pool engine policy.
func (p Params) Pool() pool.Params {
	return pool.Params{
		Horizon:             p.PoolHorizonSeconds,
		AllowedParticipants: append([]uint8(nil), p.AllowedPoolParticipants...),
		ParticipationReward: p.PoolParticipationReward,
	}
}

// Staking converts the params into staking engine policy.
func (p Params) Staking() staking.Params {
	return staking.Params{RewardPerDay: p.StakingRewardPerDay}
}

// Deals converts the params into deal engine policy. The admin address must
// already be validated.
func (p Params) Deals() deals.Params {
	out := deals.Params{
		ListingReward:    p.ListingReward,
		RedemptionReward: p.RedemptionReward,
	}
	if admin, err := ParseAddress(p.Admin); err == nil {
		out.Admin = admin
	}
	return out
}

// Duration decodes TOML strings such as "2m" into time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
