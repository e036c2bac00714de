package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"monkeydao/core"
	"monkeydao/core/events"
	"monkeydao/explorer"
	"monkeydao/gateway/middleware"
	"monkeydao/native/deals"
	"monkeydao/native/pool"
	"monkeydao/native/reputation"
	"monkeydao/native/staking"
)

// Ledger is the node surface served over HTTP.
type Ledger interface {
	Transfer(ctx context.Context, from, to [20]byte, amount uint64) error
	RegisterMerchant(ctx context.Context, caller [20]byte, name string) (*deals.Merchant, error)
	VerifyMerchant(ctx context.Context, caller, authority [20]byte) (*deals.Merchant, error)
	ListDeal(ctx context.Context, caller [20]byte, params deals.ListParams) (*deals.Deal, error)
	RelistDeal(ctx context.Context, caller, id [20]byte, price uint64) (*deals.Deal, error)
	BuyDeal(ctx context.Context, caller, id [20]byte) (*deals.Deal, error)
	RedeemDeal(ctx context.Context, caller, id [20]byte, proof []byte) (*deals.Deal, error)
	RateDeal(ctx context.Context, caller, id [20]byte, value uint8, comment string) (*deals.Rating, error)
	StartPool(ctx context.Context, caller, deal [20]byte, targetAmount uint64, targetParticipants uint8) (*pool.Pool, error)
	JoinPool(ctx context.Context, caller, addr [20]byte, amount uint64) (*pool.Pool, bool, error)
	ExecutePool(ctx context.Context, caller, addr [20]byte) (*pool.Pool, error)
	CancelPool(ctx context.Context, caller, addr [20]byte) error
	Stake(ctx context.Context, caller, item [20]byte) (*staking.Stake, error)
	ClaimRewards(ctx context.Context, caller, item [20]byte) (*staking.Stake, uint64, error)
	Unstake(ctx context.Context, caller, item [20]byte) (uint64, error)
	UpdateReputation(ctx context.Context, caller [20]byte, code uint8) (*reputation.Profile, error)
	MintBadge(ctx context.Context, caller [20]byte, level reputation.BadgeLevel) (*reputation.Badge, error)

	Balance(addr [20]byte) (core.Balances, error)
	Deal(id [20]byte) (*deals.Deal, error)
	Merchant(authority [20]byte) (*deals.Merchant, error)
	Pool(addr [20]byte) (*core.PoolView, error)
	StakeRecord(item [20]byte) (*staking.Stake, error)
	Stakes(owner [20]byte) ([]*staking.Stake, error)
	ClaimableRewards(owner [20]byte) (uint64, error)
	Profile(owner [20]byte) (*reputation.Profile, error)
	Badge(owner [20]byte, level reputation.BadgeLevel) (*reputation.Badge, bool, error)
}

// EventSource serves indexed ledger events.
type EventSource interface {
	Recent(ctx context.Context, eventType string, limit int) ([]explorer.EventRow, error)
}

// EventStream hands out live subscriptions to committed ledger events.
type EventStream interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

type Config struct {
	Ledger        Ledger
	Events        EventSource
	Stream        EventStream
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

type api struct {
	ledger Ledger
	events EventSource
	stream EventStream
	logger *slog.Logger
}

func New(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("routes: ledger required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{ledger: cfg.Ledger, events: cfg.Events, stream: cfg.Stream, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	group := func(name string, mount func(chi.Router)) func(chi.Router) {
		return func(sr chi.Router) {
			if cfg.Authenticator != nil {
				sr.Use(cfg.Authenticator.Middleware())
			}
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware(name))
			}
			mount(sr)
		}
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(group("pools", a.mountPools))
		v1.Group(group("stakes", a.mountStakes))
		v1.Group(group("reputation", a.mountReputation))
		v1.Group(group("deals", a.mountDeals))
		v1.Group(group("accounts", a.mountAccounts))
		if a.events != nil || a.stream != nil {
			v1.Group(group("events", a.mountEvents))
		}
	})
	return r, nil
}
