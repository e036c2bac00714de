package reputation

import (
	"errors"
	"time"

	coreerrors "monkeydao/core/errors"
	"monkeydao/core/events"
	"monkeydao/core/types"
	"monkeydao/crypto"
	"monkeydao/native/common"
)

var (
	ErrInsufficientReputation = coreerrors.New(coreerrors.KindState, "InsufficientReputationForBadge", "reputation: insufficient reputation for badge")
	ErrBadgeAlreadyMinted     = coreerrors.New(coreerrors.KindState, "BadgeAlreadyMinted", "reputation: badge already minted at or above level")
	ErrInvalidBadgeLevel      = coreerrors.New(coreerrors.KindValidation, "InvalidBadgeLevel", "reputation: invalid badge level")

	errNilState = errors.New("reputation engine: state not configured")
)

// Engine accumulates reputation points and gates badge issuance. Profiles
// are created lazily on first activity.
type Engine struct {
	state   stateStore
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a reputation engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state stateStore) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

// AddPoints credits amount to the profile with checked addition. On
// overflow the profile is left untouched.
func AddPoints(p *Profile, amount uint64) error {
	total, err := common.AddUint64(p.ReputationPoints, amount)
	if err != nil {
		return err
	}
	p.ReputationPoints = total
	return nil
}

// Profile returns the stored profile for owner or a fresh, unsaved one.
func (e *Engine) Profile(owner [20]byte) (*Profile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	profile, ok, err := loadProfile(e.state, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Profile{Owner: owner}, nil
	}
	return profile, nil
}

// Record applies mutate to owner's profile, awards the fixed points for
// activity and stamps the activity time. A zero activity only touches the
// profile. Nothing is stored if mutate or the point award fails.
func (e *Engine) Record(owner [20]byte, activity ActivityType, mutate func(*Profile) error) (*Profile, error) {
	if activity != 0 && !activity.Valid() {
		return nil, ErrInvalidActivityType
	}
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	now := e.now()
	profile, ok, err := loadProfile(e.state, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		profile = &Profile{Owner: owner, CreatedAt: now}
	}
	if mutate != nil {
		if err := mutate(profile); err != nil {
			return nil, err
		}
	}
	var points uint64
	if activity != 0 {
		points = activity.Points()
		if err := AddPoints(profile, points); err != nil {
			return nil, err
		}
	}
	profile.LastActivityAt = now
	if err := storeProfile(e.state, profile); err != nil {
		return nil, err
	}
	if activity != 0 {
		e.emit(NewReputationUpdatedEvent(profile, activity, points, now))
	}
	return profile, nil
}

// UpdateReputation awards the points for the activity identified by the
// wire-level code.
func (e *Engine) UpdateReputation(owner [20]byte, code uint8) (*Profile, error) {
	activity, err := ParseActivity(code)
	if err != nil {
		return nil, err
	}
	return e.Record(owner, activity, nil)
}

// EligibleTier returns the highest tier owner's points unlock.
func (e *Engine) EligibleTier(owner [20]byte) (BadgeLevel, error) {
	profile, err := e.Profile(owner)
	if err != nil {
		return BadgeNone, err
	}
	return profile.EligibleTier(), nil
}

// MintBadge issues the badge at level to owner. The owner's eligible tier
// must reach level and the current badge must be strictly lower.
func (e *Engine) MintBadge(owner [20]byte, level BadgeLevel) (*Badge, error) {
	if !level.Valid() {
		return nil, ErrInvalidBadgeLevel
	}
	profile, err := e.Profile(owner)
	if err != nil {
		return nil, err
	}
	if profile.CurrentBadgeLevel >= level {
		return nil, ErrBadgeAlreadyMinted
	}
	if profile.EligibleTier() < level {
		return nil, ErrInsufficientReputation
	}
	if _, exists, err := loadBadge(e.state, owner, level); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrBadgeAlreadyMinted
	}
	now := e.now()
	badge := &Badge{
		Owner:            owner,
		Level:            level,
		Mint:             crypto.Derive([]byte(crypto.SeedBadge), []byte("mint"), owner[:], []byte{byte(level)}),
		MintedAt:         now,
		ReputationAtMint: profile.ReputationPoints,
	}
	if err := storeBadge(e.state, badge); err != nil {
		return nil, err
	}
	if profile.CreatedAt == 0 {
		profile.CreatedAt = now
	}
	profile.CurrentBadgeLevel = level
	profile.LastActivityAt = now
	if err := storeProfile(e.state, profile); err != nil {
		return nil, err
	}
	e.emit(NewBadgeMintedEvent(badge))
	return badge, nil
}

// Badge returns the badge minted for owner at level, if any.
func (e *Engine) Badge(owner [20]byte, level BadgeLevel) (*Badge, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return loadBadge(e.state, owner, level)
}
