package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"monkeydao/core/events"
	"monkeydao/explorer"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamBuffer       = 64
)

type eventResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Label      string            `json:"label"`
	Attributes map[string]string `json:"attributes"`
	RecordedAt time.Time         `json:"recordedAt"`
}

type streamedEvent struct {
	Type       string            `json:"type"`
	Label      string            `json:"label"`
	Attributes map[string]string `json:"attributes"`
}

func (a *api) mountEvents(r chi.Router) {
	if a.events != nil {
		r.Get("/events", a.listEvents)
	}
	if a.stream != nil {
		r.Get("/events/stream", a.streamEvents)
	}
}

func (a *api) listEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	rows, err := a.events.Recent(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		a.logger.Error("query events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unknown", "Internal", err)
		return
	}
	out := make([]eventResponse, 0, len(rows))
	for _, row := range rows {
		attrs, err := row.Decode()
		if err != nil {
			a.logger.Warn("skip undecodable event", "id", row.ID.String(), "error", err)
			continue
		}
		out = append(out, eventResponse{
			ID:         row.ID.String(),
			Type:       row.Type,
			Label:      explorer.Label(row.Type),
			Attributes: attrs,
			RecordedAt: row.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// streamEvents upgrades to a websocket and pushes every committed event,
// optionally filtered by ?type=. The stream ends when the client goes away or
// falls too far behind; clients backfill from GET /v1/events.
func (a *api) streamEvents(w http.ResponseWriter, r *http.Request) {
	filter := strings.TrimSpace(r.URL.Query().Get("type"))
	// The server-wide timeouts would otherwise cut long-lived streams.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		a.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	updates, cancel := a.stream.Subscribe(streamBuffer)
	defer cancel()
	ctx := conn.CloseRead(r.Context())
	if err := pumpEvents(ctx, conn, updates, filter); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			a.logger.Info("event stream aborted", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func pumpEvents(ctx context.Context, conn *websocket.Conn, updates <-chan events.Event, filter string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return conn.Close(websocket.StatusTryAgainLater, "subscriber fell behind")
			}
			if filter != "" && evt.EventType() != filter {
				continue
			}
			if err := writeStreamedEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeStreamedEvent(ctx context.Context, conn *websocket.Conn, evt events.Event) error {
	payload := streamedEvent{
		Type:       evt.EventType(),
		Label:      explorer.Label(evt.EventType()),
		Attributes: map[string]string{},
	}
	if record, ok := evt.(events.Record); ok && record.Event() != nil {
		for k, v := range record.Event().Attributes {
			payload.Attributes[k] = v
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
