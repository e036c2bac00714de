package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"monkeydao/core"
	"monkeydao/native/pool"
)

type participantResponse struct {
	User         string `json:"user"`
	Contribution uint64 `json:"contribution,string"`
}

type poolResponse struct {
	Address             string                `json:"address"`
	Deal                string                `json:"deal"`
	Starter             string                `json:"starter"`
	TargetAmount        uint64                `json:"targetAmount,string"`
	CurrentAmount       uint64                `json:"currentAmount,string"`
	TargetParticipants  uint8                 `json:"targetParticipants"`
	CurrentParticipants uint8                 `json:"currentParticipants"`
	Participants        []participantResponse `json:"participants"`
	IsActive            bool                  `json:"isActive"`
	IsExecuted          bool                  `json:"isExecuted"`
	CreatedAt           int64                 `json:"createdAt"`
	ExpiresAt           int64                 `json:"expiresAt"`
	ExecutedAt          int64                 `json:"executedAt,omitempty"`
	Status              string                `json:"status,omitempty"`
}

func newPoolResponse(p *pool.Pool) poolResponse {
	participants := make([]participantResponse, 0, len(p.Participants))
	for _, participant := range p.Participants {
		participants = append(participants, participantResponse{
			User:         encodeAddress(participant.User),
			Contribution: participant.Contribution,
		})
	}
	return poolResponse{
		Address:             encodeAddress(p.Address),
		Deal:                encodeAddress(p.Deal),
		Starter:             encodeAddress(p.Starter),
		TargetAmount:        p.TargetAmount,
		CurrentAmount:       p.CurrentAmount,
		TargetParticipants:  p.TargetParticipants,
		CurrentParticipants: p.CurrentParticipants,
		Participants:        participants,
		IsActive:            p.IsActive,
		IsExecuted:          p.IsExecuted,
		CreatedAt:           p.CreatedAt,
		ExpiresAt:           p.ExpiresAt,
		ExecutedAt:          p.ExecutedAt,
	}
}

func newPoolViewResponse(view *core.PoolView) poolResponse {
	resp := newPoolResponse(view.Pool)
	resp.Status = string(view.Status)
	return resp
}

type startPoolRequest struct {
	Deal               string `json:"deal"`
	TargetAmount       uint64 `json:"targetAmount,string"`
	TargetParticipants uint8  `json:"targetParticipants"`
}

type joinPoolRequest struct {
	Amount uint64 `json:"amount,string"`
}

type joinPoolResponse struct {
	Pool          poolResponse `json:"pool"`
	TargetReached bool         `json:"targetReached"`
}

func (a *api) mountPools(r chi.Router) {
	r.Post("/pools", a.startPool)
	r.Get("/pools/{pool}", a.getPool)
	r.Post("/pools/{pool}/join", a.joinPool)
	r.Post("/pools/{pool}/execute", a.executePool)
	r.Post("/pools/{pool}/cancel", a.cancelPool)
}

func (a *api) startPool(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req startPoolRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	deal, err := parseAddress("deal", req.Deal)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := a.ledger.StartPool(r.Context(), caller, deal, req.TargetAmount, req.TargetParticipants)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPoolResponse(p))
}

func (a *api) getPool(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "pool")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	view, err := a.ledger.Pool(addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolViewResponse(view))
}

func (a *api) joinPool(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	addr, err := addressParam(r, "pool")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req joinPoolRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.Amount == 0 {
		writeBadRequest(w, errors.New("amount must be positive"))
		return
	}
	p, reached, err := a.ledger.JoinPool(r.Context(), caller, addr, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinPoolResponse{Pool: newPoolResponse(p), TargetReached: reached})
}

func (a *api) executePool(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	addr, err := addressParam(r, "pool")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := a.ledger.ExecutePool(r.Context(), caller, addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(p))
}

func (a *api) cancelPool(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	addr, err := addressParam(r, "pool")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := a.ledger.CancelPool(r.Context(), caller, addr); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
