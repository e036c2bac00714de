package explorer

import "strings"

var labels = map[string]string{
	"pool.started":           "Pool started",
	"pool.joined":            "Joined pool",
	"pool.executed":          "Pool purchase",
	"pool.cancelled":         "Pool cancelled",
	"escrow.deposited":       "Escrow deposit",
	"escrow.released":        "Escrow released",
	"escrow.refunded":        "Escrow refund",
	"escrow.swept":           "Escrow surplus returned",
	"staking.staked":         "Staked",
	"staking.claimed":        "Rewards claimed",
	"staking.unstaked":       "Unstaked",
	"reputation.updated":     "Reputation earned",
	"reputation.badgeMinted": "Badge minted",
	"bank.mint":              "Reward minted",
}

// Label returns the explorer label for an event type. Unknown types fall
// back to a title-cased rendering of the type.
func Label(eventType string) string {
	normalized := strings.TrimSpace(eventType)
	if label, ok := labels[normalized]; ok {
		return label
	}
	if normalized == "" {
		return "Event"
	}
	parts := strings.FieldsFunc(normalized, func(r rune) bool { return r == '.' || r == '_' })
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// TransferLabel returns the explorer label for an outgoing transfer.
func TransferLabel(asset string) string {
	normalized := strings.ToUpper(strings.TrimSpace(asset))
	if normalized == "" {
		normalized = "BASE"
	}
	return "Sent " + normalized
}
