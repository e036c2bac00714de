package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"monkeydao/config"
	"monkeydao/core"
	"monkeydao/core/events"
	"monkeydao/crypto"
	"monkeydao/explorer"
	"monkeydao/gateway/middleware"
	"monkeydao/native/deals"
	"monkeydao/storage"
)

const testNow int64 = 1_700_000_000

func account(b byte) [20]byte {
	var out [20]byte
	out[0] = 0xBB
	out[19] = b
	return out
}

var (
	admin    = account(0)
	merchant = account(1)
	seller   = account(2)
	starter  = account(3)
	alice    = account(4)
	bob      = account(5)
)

type stubEvents struct {
	rows []explorer.EventRow
	typ  string
}

func (s *stubEvents) Recent(_ context.Context, eventType string, limit int) ([]explorer.EventRow, error) {
	s.typ = eventType
	if limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

type fixture struct {
	handler http.Handler
	node    *core.Node
	events  *stubEvents
	stream  *events.Broadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dealParams := deals.DefaultParams()
	dealParams.Admin = admin
	node := core.NewNode(storage.NewMemDB(), core.Options{
		Deals: &dealParams,
		Now:   func() int64 { return testNow },
	})
	err := node.ApplyGenesis(context.Background(), &config.Genesis{
		Balances: map[string]uint64{
			addr(alice): 5_000,
			addr(bob):   5_000,
		},
		Merchants: []config.GenesisMerchant{{Authority: addr(merchant), Name: "Banana Bar", Verified: true}},
	})
	require.NoError(t, err)

	src := &stubEvents{}
	stream := events.NewBroadcaster()
	node.Subscribe(stream)
	handler, err := New(Config{
		Ledger:        node,
		Events:        src,
		Stream:        stream,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{}, nil),
		RateLimiter:   middleware.NewRateLimiter(middleware.RateLimit{}, nil, nil),
		Observability: middleware.NewObservability(nil, nil),
	})
	require.NoError(t, err)
	return &fixture{handler: handler, node: node, events: src, stream: stream}
}

func addr(a [20]byte) string { return crypto.FromArray(a).String() }

func (f *fixture) do(t *testing.T, method, path string, caller *[20]byte, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(middleware.DevCallerHeader, addr(*caller))
	}
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	return res
}

func decode(t *testing.T, res *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), out))
}

func (f *fixture) listGroupDeal(t *testing.T) string {
	t.Helper()
	res := f.do(t, http.MethodPost, "/v1/deals", &seller, map[string]interface{}{
		"merchant":           addr(merchant),
		"price":              "600",
		"isGroupDeal":        true,
		"groupPrices":        map[string]string{"priceFor2": "1000", "priceFor4": "1800", "priceFor8": "3200"},
		"discountPercentage": 15,
		"expiresAt":          testNow + 30*86_400,
		"maxSupply":          5,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var deal dealResponse
	decode(t, res, &deal)
	require.Equal(t, addr(seller), deal.Owner)
	return deal.ID
}

func TestPoolLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	dealID := f.listGroupDeal(t)

	res := f.do(t, http.MethodPost, "/v1/pools", &starter, map[string]interface{}{
		"deal":               dealID,
		"targetAmount":       "1000",
		"targetParticipants": 2,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var started poolResponse
	decode(t, res, &started)
	require.Equal(t, uint64(1000), started.TargetAmount)
	poolPath := "/v1/pools/" + started.Address

	var joined joinPoolResponse
	res = f.do(t, http.MethodPost, poolPath+"/join", &alice, map[string]string{"amount": "500"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	decode(t, res, &joined)
	require.False(t, joined.TargetReached)

	res = f.do(t, http.MethodPost, poolPath+"/join", &bob, map[string]string{"amount": "500"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	decode(t, res, &joined)
	require.True(t, joined.TargetReached)
	require.Len(t, joined.Pool.Participants, 2)

	res = f.do(t, http.MethodPost, poolPath+"/execute", &alice, nil)
	require.Equal(t, http.StatusForbidden, res.Code)
	var envelope errorEnvelope
	decode(t, res, &envelope)
	require.Equal(t, "authorization", envelope.Error.Kind)
	require.Equal(t, "NotPoolStarter", envelope.Error.Code)

	res = f.do(t, http.MethodPost, poolPath+"/execute", &starter, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, http.MethodGet, poolPath, nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var view poolResponse
	decode(t, res, &view)
	require.Equal(t, "executed", view.Status)
	require.True(t, view.IsExecuted)

	res = f.do(t, http.MethodPost, poolPath+"/cancel", &starter, nil)
	require.Equal(t, http.StatusConflict, res.Code)

	res = f.do(t, http.MethodGet, "/v1/accounts/"+addr(seller)+"/balance", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var balance balanceResponse
	decode(t, res, &balance)
	require.Equal(t, uint64(1000), balance.Base)

	res = f.do(t, http.MethodGet, "/v1/deals/"+dealID, nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var deal dealResponse
	decode(t, res, &deal)
	require.Equal(t, addr(starter), deal.Owner)
}

func TestWritesRequireCaller(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/v1/stakes", nil, map[string]string{"item": addr(account(9))})
	require.Equal(t, http.StatusUnauthorized, res.Code)
	var envelope errorEnvelope
	decode(t, res, &envelope)
	require.Equal(t, "Unauthenticated", envelope.Error.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/v1/pools/"+addr(account(42)), nil, nil)
	require.Equal(t, http.StatusNotFound, res.Code)

	res = f.do(t, http.MethodGet, "/v1/pools/not-an-address", nil, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodPost, "/v1/reputation/activity", &alice, map[string]int{"activity": 9})
	require.Equal(t, http.StatusBadRequest, res.Code)
	var envelope errorEnvelope
	decode(t, res, &envelope)
	require.Equal(t, "InvalidActivityType", envelope.Error.Code)

	res = f.do(t, http.MethodPost, "/v1/transfers", &alice, map[string]string{"to": addr(bob), "amount": "9000"})
	require.Equal(t, http.StatusConflict, res.Code)

	res = f.do(t, http.MethodPost, "/v1/pools", &starter, map[string]interface{}{"deal": addr(account(42)), "unknown": true})
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestStakeClaimUnstakeOverHTTP(t *testing.T) {
	f := newFixture(t)
	dealID := f.listGroupDeal(t)

	res := f.do(t, http.MethodPost, "/v1/stakes", &seller, map[string]string{"item": dealID})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var stake stakeResponse
	decode(t, res, &stake)
	require.True(t, stake.IsActive)
	require.Equal(t, addr(seller), stake.Owner)

	res = f.do(t, http.MethodGet, "/v1/accounts/"+addr(seller)+"/stakes", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var stakes []stakeResponse
	decode(t, res, &stakes)
	require.Len(t, stakes, 1)

	res = f.do(t, http.MethodGet, "/v1/accounts/"+addr(seller)+"/claimable", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var claimable claimableResponse
	decode(t, res, &claimable)
	require.Zero(t, claimable.Claimable)

	res = f.do(t, http.MethodPost, "/v1/stakes/"+dealID+"/claim", &seller, nil)
	require.Equal(t, http.StatusConflict, res.Code)

	res = f.do(t, http.MethodDelete, "/v1/stakes/"+dealID, &alice, nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	res = f.do(t, http.MethodDelete, "/v1/stakes/"+dealID, &seller, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var unstaked unstakeResponse
	decode(t, res, &unstaked)
	require.Zero(t, unstaked.Settled)

	res = f.do(t, http.MethodGet, "/v1/stakes/"+dealID, nil, nil)
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestReputationOverHTTP(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		res := f.do(t, http.MethodPost, "/v1/reputation/activity", &alice, map[string]int{"activity": 1})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	}

	res := f.do(t, http.MethodGet, "/v1/accounts/"+addr(alice)+"/profile", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var profile profileResponse
	decode(t, res, &profile)
	require.Equal(t, uint64(50), profile.ReputationPoints)
	require.Equal(t, uint8(1), profile.EligibleBadgeLevel)

	res = f.do(t, http.MethodPost, "/v1/badges", &alice, map[string]int{"level": 1})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var badge badgeResponse
	decode(t, res, &badge)
	require.Equal(t, "Bronze Member", badge.Name)

	res = f.do(t, http.MethodGet, "/v1/accounts/"+addr(alice)+"/badges/1", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	res = f.do(t, http.MethodGet, "/v1/accounts/"+addr(alice)+"/badges/2", nil, nil)
	require.Equal(t, http.StatusNotFound, res.Code)
	res = f.do(t, http.MethodGet, "/v1/accounts/"+addr(alice)+"/badges/9", nil, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestMerchantAndDealRoutes(t *testing.T) {
	f := newFixture(t)
	other := account(7)

	res := f.do(t, http.MethodPost, "/v1/merchants", &other, map[string]string{"name": "Coconut Cafe"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = f.do(t, http.MethodPost, "/v1/merchants/"+addr(other)+"/verify", &alice, nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	res = f.do(t, http.MethodPost, "/v1/merchants/"+addr(other)+"/verify", &admin, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var m merchantResponse
	decode(t, res, &m)
	require.True(t, m.IsVerified)

	dealID := f.listGroupDeal(t)
	res = f.do(t, http.MethodPost, "/v1/deals/"+dealID+"/relist", &seller, map[string]string{"price": "750"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var deal dealResponse
	decode(t, res, &deal)
	require.Equal(t, uint64(750), deal.Price)

	res = f.do(t, http.MethodPost, "/v1/deals/"+dealID+"/redeem", &seller, map[string]string{"proof": "zz"})
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEventsRoute(t *testing.T) {
	f := newFixture(t)
	f.events.rows = []explorer.EventRow{{
		ID:         uuid.New(),
		Type:       "pool.executed",
		Attributes: `{"pool":"p1"}`,
		RecordedAt: time.Unix(testNow, 0).UTC(),
	}}

	res := f.do(t, http.MethodGet, "/v1/events?type=pool.executed&limit=5", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var out []eventResponse
	decode(t, res, &out)
	require.Len(t, out, 1)
	require.Equal(t, "Pool purchase", out[0].Label)
	require.Equal(t, "p1", out[0].Attributes["pool"])
	require.Equal(t, "pool.executed", f.events.typ)

	res = f.do(t, http.MethodGet, "/v1/events?limit=-1", nil, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "ok", res.Body.String())
	require.NotEmpty(t, res.Header().Get(middleware.RequestIDHeader))

	res = f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestNewRequiresLedger(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestEventStreamPushesCommittedEvents(t *testing.T) {
	f := newFixture(t)
	server := httptest.NewServer(f.handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/events/stream?type=deals.merchantRegistered"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")
	require.Eventually(t, func() bool { return f.stream.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Rejected operations publish nothing.
	res := f.do(t, http.MethodPost, "/v1/merchants", &merchant, map[string]string{"name": "Banana Bar"})
	require.NotEqual(t, http.StatusCreated, res.Code)

	other := account(8)
	res = f.do(t, http.MethodPost, "/v1/merchants", &other, map[string]string{"name": "Mango Market"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	var got streamedEvent
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "deals.merchantRegistered", got.Type)
	require.Equal(t, addr(other), got.Attributes["merchant"])
	require.Equal(t, "Mango Market", got.Attributes["name"])

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return f.stream.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
