package routes

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"monkeydao/native/deals"
)

type groupPricesPayload struct {
	PriceFor2 uint64 `json:"priceFor2,string"`
	PriceFor4 uint64 `json:"priceFor4,string"`
	PriceFor8 uint64 `json:"priceFor8,string"`
}

type dealResponse struct {
	ID                 string              `json:"id"`
	Mint               string              `json:"mint"`
	Owner              string              `json:"owner"`
	Merchant           string              `json:"merchant"`
	Price              uint64              `json:"price,string"`
	Location           string              `json:"location"`
	IsUsed             bool                `json:"isUsed"`
	IsRedeemed         bool                `json:"isRedeemed"`
	IsGroupDeal        bool                `json:"isGroupDeal"`
	GroupPrices        *groupPricesPayload `json:"groupPrices,omitempty"`
	IsCryptoBased      bool                `json:"isCryptoBased"`
	EventName          string              `json:"eventName,omitempty"`
	EventDescription   string              `json:"eventDescription,omitempty"`
	DiscountPercentage uint8               `json:"discountPercentage"`
	ExpiresAt          int64               `json:"expiresAt"`
	MerchantID         string              `json:"merchantId"`
	CreatedAt          int64               `json:"createdAt"`
	AverageRating      uint64              `json:"averageRating"`
	TotalRatings       uint64              `json:"totalRatings"`
	TimesSold          uint64              `json:"timesSold"`
	CurrentSupply      uint64              `json:"currentSupply"`
	MaxSupply          uint64              `json:"maxSupply"`
	Custodian          string              `json:"custodian,omitempty"`
}

func newDealResponse(d *deals.Deal) dealResponse {
	resp := dealResponse{
		ID:                 encodeAddress(d.ID),
		Mint:               encodeAddress(d.Mint),
		Owner:              encodeAddress(d.Owner),
		Merchant:           encodeAddress(d.Merchant),
		Price:              d.Price,
		Location:           d.Location,
		IsUsed:             d.IsUsed,
		IsRedeemed:         d.IsRedeemed,
		IsGroupDeal:        d.IsGroupDeal,
		IsCryptoBased:      d.IsCryptoBased,
		EventName:          d.EventName,
		EventDescription:   d.EventDescription,
		DiscountPercentage: d.DiscountPercentage,
		ExpiresAt:          d.ExpiresAt,
		MerchantID:         d.MerchantID,
		CreatedAt:          d.CreatedAt,
		AverageRating:      d.AverageRating(),
		TotalRatings:       d.TotalRatings,
		TimesSold:          d.TimesSold,
		CurrentSupply:      d.CurrentSupply,
		MaxSupply:          d.MaxSupply,
		Custodian:          encodeAddress(d.Custodian),
	}
	if d.GroupPrices != nil {
		resp.GroupPrices = &groupPricesPayload{
			PriceFor2: d.GroupPrices.PriceFor2,
			PriceFor4: d.GroupPrices.PriceFor4,
			PriceFor8: d.GroupPrices.PriceFor8,
		}
	}
	return resp
}

type merchantResponse struct {
	Authority          string `json:"authority"`
	Name               string `json:"name"`
	TotalDealsListed   uint64 `json:"totalDealsListed"`
	TotalDealsSold     uint64 `json:"totalDealsSold"`
	TotalDealsRedeemed uint64 `json:"totalDealsRedeemed"`
	TotalRevenue       uint64 `json:"totalRevenue,string"`
	SuccessRate        uint64 `json:"successRate"`
	IsVerified         bool   `json:"isVerified"`
	RegisteredAt       int64  `json:"registeredAt"`
	LastActivityAt     int64  `json:"lastActivityAt"`
}

func newMerchantResponse(m *deals.Merchant) merchantResponse {
	return merchantResponse{
		Authority:          encodeAddress(m.Authority),
		Name:               m.Name,
		TotalDealsListed:   m.TotalDealsListed,
		TotalDealsSold:     m.TotalDealsSold,
		TotalDealsRedeemed: m.TotalDealsRedeemed,
		TotalRevenue:       m.TotalRevenue,
		SuccessRate:        m.SuccessRate(),
		IsVerified:         m.IsVerified,
		RegisteredAt:       m.RegisteredAt,
		LastActivityAt:     m.LastActivityAt,
	}
}

type ratingResponse struct {
	Deal               string `json:"deal"`
	User               string `json:"user"`
	Value              uint8  `json:"value"`
	Comment            string `json:"comment,omitempty"`
	CreatedAt          int64  `json:"createdAt"`
	IsVerifiedPurchase bool   `json:"isVerifiedPurchase"`
}

type registerMerchantRequest struct {
	Name string `json:"name"`
}

type listDealRequest struct {
	Merchant           string              `json:"merchant"`
	Price              uint64              `json:"price,string"`
	Location           string              `json:"location"`
	IsGroupDeal        bool                `json:"isGroupDeal"`
	GroupPrices        *groupPricesPayload `json:"groupPrices,omitempty"`
	IsCryptoBased      bool                `json:"isCryptoBased"`
	EventName          string              `json:"eventName"`
	EventDescription   string              `json:"eventDescription"`
	DiscountPercentage uint8               `json:"discountPercentage"`
	ExpiresAt          int64               `json:"expiresAt"`
	MerchantID         string              `json:"merchantId"`
	MaxSupply          uint64              `json:"maxSupply"`
}

func (req listDealRequest) params() (deals.ListParams, error) {
	merchant, err := parseAddress("merchant", req.Merchant)
	if err != nil {
		return deals.ListParams{}, err
	}
	params := deals.ListParams{
		Merchant:           merchant,
		Price:              req.Price,
		Location:           req.Location,
		IsGroupDeal:        req.IsGroupDeal,
		IsCryptoBased:      req.IsCryptoBased,
		EventName:          req.EventName,
		EventDescription:   req.EventDescription,
		DiscountPercentage: req.DiscountPercentage,
		ExpiresAt:          req.ExpiresAt,
		MerchantID:         req.MerchantID,
		MaxSupply:          req.MaxSupply,
	}
	if req.GroupPrices != nil {
		params.GroupPrices = &deals.GroupPrices{
			PriceFor2: req.GroupPrices.PriceFor2,
			PriceFor4: req.GroupPrices.PriceFor4,
			PriceFor8: req.GroupPrices.PriceFor8,
		}
	}
	return params, nil
}

type relistRequest struct {
	Price uint64 `json:"price,string"`
}

type redeemRequest struct {
	Proof string `json:"proof"`
}

type rateRequest struct {
	Value   uint8  `json:"value"`
	Comment string `json:"comment"`
}

func (a *api) mountDeals(r chi.Router) {
	r.Post("/merchants", a.registerMerchant)
	r.Get("/merchants/{merchant}", a.getMerchant)
	r.Post("/merchants/{merchant}/verify", a.verifyMerchant)
	r.Post("/deals", a.listDeal)
	r.Get("/deals/{deal}", a.getDeal)
	r.Post("/deals/{deal}/relist", a.relistDeal)
	r.Post("/deals/{deal}/buy", a.buyDeal)
	r.Post("/deals/{deal}/redeem", a.redeemDeal)
	r.Post("/deals/{deal}/ratings", a.rateDeal)
}

func (a *api) registerMerchant(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req registerMerchantRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	m, err := a.ledger.RegisterMerchant(r.Context(), caller, req.Name)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMerchantResponse(m))
}

func (a *api) getMerchant(w http.ResponseWriter, r *http.Request) {
	authority, err := addressParam(r, "merchant")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	m, err := a.ledger.Merchant(authority)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMerchantResponse(m))
}

func (a *api) verifyMerchant(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	authority, err := addressParam(r, "merchant")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	m, err := a.ledger.VerifyMerchant(r.Context(), caller, authority)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMerchantResponse(m))
}

func (a *api) listDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req listDealRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	params, err := req.params()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	d, err := a.ledger.ListDeal(r.Context(), caller, params)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDealResponse(d))
}

func (a *api) getDeal(w http.ResponseWriter, r *http.Request) {
	id, err := addressParam(r, "deal")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	d, err := a.ledger.Deal(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDealResponse(d))
}

func (a *api) relistDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := addressParam(r, "deal")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req relistRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	d, err := a.ledger.RelistDeal(r.Context(), caller, id, req.Price)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDealResponse(d))
}

func (a *api) buyDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := addressParam(r, "deal")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	d, err := a.ledger.BuyDeal(r.Context(), caller, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDealResponse(d))
}

func (a *api) redeemDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := addressParam(r, "deal")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req redeemRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	proof, err := hexutil.Decode(req.Proof)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid proof: %w", err))
		return
	}
	d, err := a.ledger.RedeemDeal(r.Context(), caller, id, proof)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDealResponse(d))
}

func (a *api) rateDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := addressParam(r, "deal")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req rateRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	rating, err := a.ledger.RateDeal(r.Context(), caller, id, req.Value, req.Comment)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ratingResponse{
		Deal:               encodeAddress(rating.Deal),
		User:               encodeAddress(rating.User),
		Value:              rating.Value,
		Comment:            rating.Comment,
		CreatedAt:          rating.CreatedAt,
		IsVerifiedPurchase: rating.IsVerifiedPurchase,
	})
}
