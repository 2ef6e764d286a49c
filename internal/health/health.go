// Package health serves the liveness and readiness probes on the admin
// listener.
//
// GET /healthz answers 200 as long as the process serves HTTP. GET /readyz
// evaluates every registered [Checker] and answers 200 only when all pass;
// the body is a JSON report naming each check's outcome.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockvox/stockvox/internal/invstore"
)

// probeTimeout bounds a single readiness check.
const probeTimeout = 5 * time.Second

// Checker probes one dependency. Check returns nil when healthy and must
// honor ctx cancellation.
type Checker struct {
	// Name keys this check in the JSON report, e.g. "store".
	Name string

	Check func(ctx context.Context) error
}

// ItemLookup is the slice of the record store used by [StoreCheck];
// [invstore.Store] satisfies it.
type ItemLookup interface {
	ItemByID(ctx context.Context, id int64) (*invstore.Item, error)
}

// StoreCheck probes the record store with a cheap single-row lookup. A miss
// is healthy; only a store error fails the check.
func StoreCheck(store ItemLookup) Checker {
	return Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := store.ItemByID(ctx, 0)
			return err
		},
	}
}

// report is the JSON body of both probe endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the probe endpoints. The checker list is fixed at
// construction, so it is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New returns a Handler evaluating checkers, in order, on every /readyz
// request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz is the liveness probe. Answering at all means the process is
// alive, so it always reports ok.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, http.StatusOK, report{Status: "ok"})
}

// Readyz is the readiness probe. Every checker runs under its own
// [probeTimeout]; one failure flips the report to fail and the response
// to 503.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	code := http.StatusOK

	for _, c := range h.checkers {
		if err := probe(r.Context(), c); err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			code = http.StatusServiceUnavailable
			continue
		}
		rep.Checks[c.Name] = "ok"
	}

	writeReport(w, code, rep)
}

// probe runs one check under the probe timeout and logs failures.
func probe(ctx context.Context, c Checker) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	began := time.Now()
	err := c.Check(ctx)
	if err != nil {
		slog.Warn("readiness check failed",
			"check", c.Name,
			"elapsed", time.Since(began),
			"err", err,
		)
	}
	return err
}

func writeReport(w http.ResponseWriter, code int, rep report) {
	body, err := json.Marshal(rep)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
