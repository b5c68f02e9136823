package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lautenbacher.net/trafficlight/controller"
)

type stateResponse struct {
	State controller.State     `json:"state"`
	Lamps controller.LampState `json:"lamps"`
}

type transitionRequest struct {
	Target string `json:"target"`
}

type transitionResponse struct {
	Accepted bool             `json:"accepted"`
	State    controller.State `json:"state"`
}

// dwellMillis is the dwell table as the API shows it, in milliseconds.
type dwellMillis struct {
	Green    int64 `json:"Green"`
	Yellow   int64 `json:"Yellow"`
	Red      int64 `json:"Red"`
	Blinking int64 `json:"Blinking"`
}

func toMillis(d controller.DwellTable) dwellMillis {
	return dwellMillis{
		Green:    d.Green.Milliseconds(),
		Yellow:   d.Yellow.Milliseconds(),
		Red:      d.Red.Milliseconds(),
		Blinking: d.Blinking.Milliseconds(),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response to JSON", "error", err)
		http.Error(w, "Failed to serialize response", http.StatusInternalServerError)
	}
}

// StateHandler returns the current state and lamps.
func StateHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		st := ctrl.Status()
		writeJSON(w, stateResponse{State: st.State, Lamps: st.Lamps})
	}
}

// TransitionHandler requests the transition named in the body. An
// illegal target is not an HTTP error, it is answered with accepted=false.
func TransitionHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("Failed to decode incoming JSON", "error", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		target, err := controller.ParseState(req.Target)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		accepted := ctrl.Transition(target)
		slog.Info("Handling POST /api/transition request", "target", target, "accepted", accepted)
		writeJSON(w, transitionResponse{Accepted: accepted, State: ctrl.State()})
	}
}

// DwellHandler routes /api/dwell by method.
func DwellHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, toMillis(ctrl.Dwell()))
		case http.MethodPost:
			setDwellHandler(w, r, ctrl)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// setDwellHandler applies a partial table given in milliseconds, e.g.
// {"Green": 8000}. Either all given phases are applied or none.
func setDwellHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller) {
	defer r.Body.Close()

	var req map[string]int64
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode incoming JSON", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	values := make(map[controller.Phase]time.Duration, len(req))
	for name, ms := range req {
		phase, err := controller.ParsePhase(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d, err := controller.DwellFromMillis(ms)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid dwell: %v", err), http.StatusBadRequest)
			return
		}
		values[phase] = d
	}

	if err := ctrl.SetDwells(values); err != nil {
		http.Error(w, fmt.Sprintf("Invalid dwell: %v", err), http.StatusBadRequest)
		return
	}
	slog.Info("Handling POST /api/dwell request", "dwell", req)
	writeJSON(w, toMillis(ctrl.Dwell()))
}
