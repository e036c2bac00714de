package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var (
	errInvalidLevel  = errors.New("level must be between 1 and 5")
	errBadgeNotFound = errors.New("badge not minted")
)

type balanceResponse struct {
	Address string `json:"address"`
	Base    uint64 `json:"base,string"`
	MONK    uint64 `json:"monk,string"`
}

type claimableResponse struct {
	Owner     string `json:"owner"`
	Claimable uint64 `json:"claimable,string"`
}

type transferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount,string"`
}

func (a *api) mountAccounts(r chi.Router) {
	r.Get("/accounts/{addr}/balance", a.getBalance)
	r.Get("/accounts/{addr}/claimable", a.getClaimable)
	r.Get("/accounts/{addr}/stakes", a.listStakes)
	r.Get("/accounts/{addr}/profile", a.getProfile)
	r.Get("/accounts/{addr}/badges/{level}", a.getBadge)
	r.Post("/transfers", a.transfer)
}

func (a *api) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	balances, err := a.ledger.Balance(addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: encodeAddress(addr), Base: balances.Base, MONK: balances.MONK})
}

func (a *api) getClaimable(w http.ResponseWriter, r *http.Request) {
	owner, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	total, err := a.ledger.ClaimableRewards(owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimableResponse{Owner: encodeAddress(owner), Claimable: total})
}

func (a *api) listStakes(w http.ResponseWriter, r *http.Request) {
	owner, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	stakes, err := a.ledger.Stakes(owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	out := make([]stakeResponse, 0, len(stakes))
	for _, s := range stakes {
		out = append(out, newStakeResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.Amount == 0 {
		writeBadRequest(w, errors.New("amount must be positive"))
		return
	}
	if err := a.ledger.Transfer(r.Context(), caller, to, req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
