package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"monkeydao/native/staking"
)

type stakeResponse struct {
	Item                string `json:"item"`
	Owner               string `json:"owner"`
	StakedAt            int64  `json:"stakedAt"`
	LastClaimAt         int64  `json:"lastClaimAt"`
	TotalRewardsClaimed uint64 `json:"totalRewardsClaimed,string"`
	IsActive            bool   `json:"isActive"`
}

func newStakeResponse(s *staking.Stake) stakeResponse {
	return stakeResponse{
		Item:                encodeAddress(s.Item),
		Owner:               encodeAddress(s.Owner),
		StakedAt:            s.StakedAt,
		LastClaimAt:         s.LastClaimAt,
		TotalRewardsClaimed: s.TotalRewardsClaimed,
		IsActive:            s.IsActive,
	}
}

type stakeRequest struct {
	Item string `json:"item"`
}

type claimResponse struct {
	Stake  stakeResponse `json:"stake"`
	Reward uint64        `json:"reward,string"`
}

type unstakeResponse struct {
	Item    string `json:"item"`
	Settled uint64 `json:"settled,string"`
}

func (a *api) mountStakes(r chi.Router) {
	r.Post("/stakes", a.stake)
	r.Get("/stakes/{item}", a.getStake)
	r.Post("/stakes/{item}/claim", a.claimStake)
	r.Delete("/stakes/{item}", a.unstake)
}

func (a *api) stake(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	item, err := parseAddress("item", req.Item)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	s, err := a.ledger.Stake(r.Context(), caller, item)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newStakeResponse(s))
}

func (a *api) getStake(w http.ResponseWriter, r *http.Request) {
	item, err := addressParam(r, "item")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	s, err := a.ledger.StakeRecord(item)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStakeResponse(s))
}

func (a *api) claimStake(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	item, err := addressParam(r, "item")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	s, reward, err := a.ledger.ClaimRewards(r.Context(), caller, item)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Stake: newStakeResponse(s), Reward: reward})
}

func (a *api) unstake(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	item, err := addressParam(r, "item")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	settled, err := a.ledger.Unstake(r.Context(), caller, item)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unstakeResponse{Item: encodeAddress(item), Settled: settled})
}
