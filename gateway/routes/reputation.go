package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"monkeydao/native/reputation"
)

type profileResponse struct {
	Owner               string `json:"owner"`
	TotalDealsListed    uint64 `json:"totalDealsListed"`
	TotalDealsPurchased uint64 `json:"totalDealsPurchased"`
	TotalDealsRedeemed  uint64 `json:"totalDealsRedeemed"`
	TotalPoolsJoined    uint64 `json:"totalPoolsJoined"`
	TotalNFTsStaked     uint64 `json:"totalNftsStaked"`
	TotalRatingsGiven   uint64 `json:"totalRatingsGiven"`
	TotalRewardsEarned  uint64 `json:"totalRewardsEarned,string"`
	ReputationPoints    uint64 `json:"reputationPoints"`
	CurrentBadgeLevel   uint8  `json:"currentBadgeLevel"`
	CurrentBadge        string `json:"currentBadge,omitempty"`
	EligibleBadgeLevel  uint8  `json:"eligibleBadgeLevel"`
	CreatedAt           int64  `json:"createdAt"`
	LastActivityAt      int64  `json:"lastActivityAt"`
}

func newProfileResponse(p *reputation.Profile) profileResponse {
	resp := profileResponse{
		Owner:               encodeAddress(p.Owner),
		TotalDealsListed:    p.TotalDealsListed,
		TotalDealsPurchased: p.TotalDealsPurchased,
		TotalDealsRedeemed:  p.TotalDealsRedeemed,
		TotalPoolsJoined:    p.TotalPoolsJoined,
		TotalNFTsStaked:     p.TotalNFTsStaked,
		TotalRatingsGiven:   p.TotalRatingsGiven,
		TotalRewardsEarned:  p.TotalRewardsEarned,
		ReputationPoints:    p.ReputationPoints,
		CurrentBadgeLevel:   uint8(p.CurrentBadgeLevel),
		EligibleBadgeLevel:  uint8(p.EligibleTier()),
		CreatedAt:           p.CreatedAt,
		LastActivityAt:      p.LastActivityAt,
	}
	if p.CurrentBadgeLevel.Valid() {
		resp.CurrentBadge = p.CurrentBadgeLevel.Name()
	}
	return resp
}

type badgeResponse struct {
	Owner            string `json:"owner"`
	Level            uint8  `json:"level"`
	Name             string `json:"name"`
	Mint             string `json:"mint"`
	MintedAt         int64  `json:"mintedAt"`
	ReputationAtMint uint64 `json:"reputationAtMint"`
}

func newBadgeResponse(b *reputation.Badge) badgeResponse {
	return badgeResponse{
		Owner:            encodeAddress(b.Owner),
		Level:            uint8(b.Level),
		Name:             b.Level.Name(),
		Mint:             encodeAddress(b.Mint),
		MintedAt:         b.MintedAt,
		ReputationAtMint: b.ReputationAtMint,
	}
}

type activityRequest struct {
	Activity uint8 `json:"activity"`
}

type mintBadgeRequest struct {
	Level uint8 `json:"level"`
}

func (a *api) mountReputation(r chi.Router) {
	r.Post("/reputation/activity", a.recordActivity)
	r.Post("/badges", a.mintBadge)
}

func (a *api) recordActivity(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	profile, err := a.ledger.UpdateReputation(r.Context(), caller, req.Activity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}

func (a *api) mintBadge(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req mintBadgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	badge, err := a.ledger.MintBadge(r.Context(), caller, reputation.BadgeLevel(req.Level))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBadgeResponse(badge))
}

func (a *api) getProfile(w http.ResponseWriter, r *http.Request) {
	owner, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	profile, err := a.ledger.Profile(owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}

func (a *api) getBadge(w http.ResponseWriter, r *http.Request) {
	owner, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	level, err := strconv.ParseUint(strings.TrimSpace(chi.URLParam(r, "level")), 10, 8)
	if err != nil || !reputation.BadgeLevel(level).Valid() {
		writeBadRequest(w, errInvalidLevel)
		return
	}
	badge, found, err := a.ledger.Badge(owner, reputation.BadgeLevel(level))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "BadgeNotFound", errBadgeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newBadgeResponse(badge))
}
