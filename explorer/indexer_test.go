package explorer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"monkeydao/core/events"
	"monkeydao/core/types"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	idx, err := NewIndexer(db, nil)
	require.NoError(t, err)
	return idx
}

func TestIndexerRecordsEvents(t *testing.T) {
	idx := newTestIndexer(t)
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	idx.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	idx.Emit(events.Wrap(&types.Event{Type: "pool.started", Attributes: map[string]string{"pool": "p1"}}))
	idx.Emit(events.Wrap(&types.Event{Type: "pool.joined", Attributes: map[string]string{"amount": "500"}}))
	idx.Emit(events.Wrap(&types.Event{Type: "pool.joined", Attributes: map[string]string{"amount": "700"}}))

	all, err := idx.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "pool.joined", all[0].Type)

	joins, err := idx.Recent(context.Background(), "pool.joined", 1)
	require.NoError(t, err)
	require.Len(t, joins, 1)
	attrs, err := joins[0].Decode()
	require.NoError(t, err)
	require.Equal(t, "700", attrs["amount"])
	require.NotEqual(t, uuid.Nil, joins[0].ID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	require.Error(t, err)
}

func TestLabel(t *testing.T) {
	require.Equal(t, "Pool purchase", Label("pool.executed"))
	require.Equal(t, "Deals Listed", Label("deals.listed"))
	require.Equal(t, "Event", Label(" "))
	require.Equal(t, "Sent MONK", TransferLabel("monk"))
}
