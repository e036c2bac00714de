package pool

// MaxParticipants bounds the participant list of a pool record.
const MaxParticipants = 8

// DefaultHorizon is how long a pool accepts contributions, in seconds.
const DefaultHorizon int64 = 7 * 86_400

// Status is the derived lifecycle state of a pool.
type Status string

const (
	StatusActive        Status = "active"
	StatusTargetReached Status = "target_reached"
	StatusExpired       Status = "expired"
	StatusExecuted      Status = "executed"
)

// Participant is one contributor and the amount they put in.
type Participant struct {
	User         [20]byte
	Contribution uint64
}

// Pool is a group-purchase attempt on a deal.
type Pool struct {
	Address             [20]byte
	Deal                [20]byte
	Starter             [20]byte
	TargetAmount        uint64
	CurrentAmount       uint64
	TargetParticipants  uint8
	CurrentParticipants uint8
	Participants        []Participant
	IsActive            bool
	IsExecuted          bool
	CreatedAt           int64
	ExpiresAt           int64
	ExecutedAt          int64
}

// IsExpired reports whether joins are closed at now.
func (p *Pool) IsExpired(now int64) bool {
	return now > p.ExpiresAt
}

// TargetReached reports whether both the amount and head-count targets are
// met.
func (p *Pool) TargetReached() bool {
	return p.CurrentAmount >= p.TargetAmount && p.CurrentParticipants >= p.TargetParticipants
}

// HasParticipant reports whether user already contributed.
func (p *Pool) HasParticipant(user [20]byte) bool {
	_, ok := p.Contribution(user)
	return ok
}

// Contribution returns user's contribution.
func (p *Pool) Contribution(user [20]byte) (uint64, bool) {
	for _, participant := range p.Participants {
		if participant.User == user {
			return participant.Contribution, true
		}
	}
	return 0, false
}

// Status derives the lifecycle state at now.
func (p *Pool) Status(now int64) Status {
	switch {
	case p.IsExecuted:
		return StatusExecuted
	case p.TargetReached():
		return StatusTargetReached
	case p.IsExpired(now):
		return StatusExpired
	default:
		return StatusActive
	}
}

// Params configures pool policy.
type Params struct {
	Horizon             int64
	AllowedParticipants []uint8
	ParticipationReward uint64
}

// DefaultParams mirrors the platform defaults.
func DefaultParams() Params {
	return Params{
		Horizon:             DefaultHorizon,
		AllowedParticipants: []uint8{2, 4, 8},
		ParticipationReward: 20_000_000,
	}
}

func (p Params) allows(count uint8) bool {
	for _, allowed := range p.AllowedParticipants {
		if allowed == count {
			return true
		}
	}
	return false
}
