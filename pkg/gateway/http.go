package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"havenstore/pkg/errs"
	"havenstore/pkg/logger"
	"havenstore/pkg/utils"
)

// headerUser carries the authenticated username. The gateway trusts it;
// the fronting app server is responsible for filling it in.
const headerUser = "X-Username"

// Handler returns the HTTP surface:
//   - GET  /healthz
//   - GET  /metrics
//   - GET  /v1/rooms/{room}/messages  full sanitized history for the viewer
//   - POST /v1/mutations              one mutation, room in the body
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/rooms/{room}/messages", g.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/v1/mutations", g.handleMutation).Methods(http.MethodPost)
	return r
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	viewer := r.Header.Get(headerUser)
	if viewer == "" {
		utils.JSONError(w, http.StatusUnauthorized, "username required")
		return
	}
	msgs, err := g.History(room, viewer)
	if err != nil {
		logger.Error("history_failed", "room", room, "err", err)
		utils.JSONError(w, errs.HTTPStatus(err), err.Error())
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (g *Gateway) handleMutation(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get(headerUser)
	if user == "" {
		utils.JSONError(w, http.StatusUnauthorized, "username required")
		return
	}
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := g.Apply(req, user)
	if err != nil {
		utils.JSONError(w, errs.HTTPStatus(err), err.Error())
		return
	}
	utils.JSONWrite(w, http.StatusOK, res)
}
