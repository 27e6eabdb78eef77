package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// targetView is the JSON shape a single target's debug snapshot renders as.
type targetView struct {
	TargetID         int64  `json:"targetId"`
	PendingResponses int    `json:"pendingResponses"`
	Current          bool   `json:"current"`
	ResumeToken      string `json:"resumeToken"`
	Active           bool   `json:"active"`
}

func toTargetView(snap watch.TargetSnapshot) targetView {
	return targetView{
		TargetID:         int64(snap.TargetID),
		PendingResponses: snap.PendingResponses,
		Current:          snap.Current,
		ResumeToken:      string(snap.ResumeToken),
		Active:           snap.Active,
	}
}

// ListTargets handles GET /debug/targets: every target the aggregator
// currently tracks, in no particular order.
func (h *Handlers) ListTargets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := h.agg.TrackedTargets()
		views := make([]targetView, 0, len(ids))
		for _, id := range ids {
			if snap, ok := h.agg.TargetSnapshotFor(id); ok {
				views = append(views, toTargetView(snap))
			}
		}
		writeSuccess(w, views)
	}
}

// GetTarget handles GET /debug/targets/{id}.
func (h *Handlers) GetTarget() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, &BadRequestError{Message: "invalid target id: " + raw})
			return
		}

		targetID := watch.TargetID(id)
		snap, ok := h.agg.TargetSnapshotFor(targetID)
		if !ok {
			writeError(w, &TargetNotFoundError{TargetID: targetID})
			return
		}
		writeSuccess(w, toTargetView(snap))
	}
}
