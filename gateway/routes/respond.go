package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	coreerrors "monkeydao/core/errors"
	"monkeydao/crypto"
	"monkeydao/gateway/middleware"
)

const maxBodyBytes = 64 << 10

var errMissingCaller = errors.New("authenticated caller required")

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, code string, err error) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Code: code, Message: err.Error()}})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, coreerrors.KindValidation.String(), "BadRequest", err)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, coreerrors.KindAuthorization.String(), "Unauthenticated", errMissingCaller)
}

// writeLedgerError renders an error returned by the node, mapping its kind
// onto an HTTP status.
func writeLedgerError(w http.ResponseWriter, err error) {
	kind := coreerrors.KindOf(err)
	writeError(w, statusForKind(kind), kind.String(), coreerrors.CodeOf(err), err)
}

func statusForKind(kind coreerrors.Kind) int {
	switch kind {
	case coreerrors.KindValidation:
		return http.StatusBadRequest
	case coreerrors.KindAuthorization:
		return http.StatusForbidden
	case coreerrors.KindState:
		return http.StatusConflict
	case coreerrors.KindArithmetic:
		return http.StatusUnprocessableEntity
	case coreerrors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func requireCaller(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return [20]byte{}, false
	}
	return caller, true
}

// addressParam parses a bech32 path parameter.
func addressParam(r *http.Request, name string) ([20]byte, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return [20]byte{}, fmt.Errorf("%s is required", name)
	}
	addr, err := crypto.ParseAccount(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return addr, nil
}

func parseAddress(field, value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, fmt.Errorf("%s is required", field)
	}
	addr, err := crypto.ParseAccount(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return addr, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return value, nil
}

func encodeAddress(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return crypto.FromArray(addr).String()
}
