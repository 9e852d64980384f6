package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/peltran/giftwise/internal/capture"
	"github.com/peltran/giftwise/internal/config"
	"github.com/peltran/giftwise/internal/engine"
	"github.com/peltran/giftwise/internal/recommend"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSONUTF8)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlNoStore)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, config.HTTPMsgBadRequest)
		return false
	}
	return true
}

// handleContacts serves the collection root: filtered listing and manual
// contact entry.
func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token := r.URL.Query().Get(config.QueryParamFilter)
		contacts := engine.Filter(s.store.List(), token, s.clock.Now())
		slog.Debug(config.MsgGenSuccess,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyFilter, token,
			config.LogKeyCount, len(contacts),
		)
		writeJSON(w, http.StatusOK, contacts)

	case http.MethodPost:
		var profile engine.Contact
		if !readJSON(w, r, &profile) {
			return
		}
		contact, err := s.store.Add(profile)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, s.translate(config.TKeyErrRequired))
			return
		}
		s.refreshAfterMutation()
		writeJSON(w, http.StatusCreated, contact)

	default:
		w.Header().Set(config.HeaderAllow, "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, config.HTTPMsgMethodNotAll)
	}
}

// handleContactByID routes /contacts/{id} and its sub-resources:
//
//	GET  /contacts/{id}
//	PUT  /contacts/{id}
//	POST /contacts/{id}/gifts
//	POST /contacts/{id}/recommendations
func (s *Server) handleContactByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, config.RouteContactsSlash), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, config.HTTPMsgNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case config.SubRouteGifts:
			s.handleAppendGift(w, r, id)
		case config.SubRouteRecommend:
			s.handleRecommend(w, r, id)
		default:
			writeError(w, http.StatusNotFound, config.HTTPMsgNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		contact, ok := s.store.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, config.ErrContactNotFound)
			return
		}
		writeJSON(w, http.StatusOK, contact)

	case http.MethodPut:
		var profile engine.Contact
		if !readJSON(w, r, &profile) {
			return
		}
		profile.ID = id
		contact, err := s.store.Replace(profile)
		switch {
		case errors.Is(err, engine.ErrContactNotFound):
			writeError(w, http.StatusNotFound, config.ErrContactNotFound)
		case err != nil:
			writeError(w, http.StatusUnprocessableEntity, s.translate(config.TKeyErrRequired))
		default:
			s.refreshAfterMutation()
			writeJSON(w, http.StatusOK, contact)
		}

	default:
		w.Header().Set(config.HeaderAllow, "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, config.HTTPMsgMethodNotAll)
	}
}

type giftRequest struct {
	Gift string `json:"gift"`
}

func (s *Server) handleAppendGift(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.Header().Set(config.HeaderAllow, "POST")
		writeError(w, http.StatusMethodNotAllowed, config.HTTPMsgMethodNotAll)
		return
	}

	var req giftRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Gift) == "" {
		writeError(w, http.StatusBadRequest, config.HTTPMsgBadRequest)
		return
	}

	contact, err := s.store.AppendGift(id, req.Gift)
	if err != nil {
		writeError(w, http.StatusNotFound, config.ErrContactNotFound)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

type recommendRequest struct {
	Budget int `json:"budget"`
}

type recommendResponse struct {
	Recommendations []engine.GiftRecommendation `json:"recommendations"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.Header().Set(config.HeaderAllow, "POST")
		writeError(w, http.StatusMethodNotAllowed, config.HTTPMsgMethodNotAll)
		return
	}

	contact, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, config.ErrContactNotFound)
		return
	}

	req := recommendRequest{Budget: config.DefaultBudget}
	if !readJSON(w, r, &req) {
		return
	}

	recs, err := s.recommender.Request(r.Context(), contact, req.Budget)
	switch {
	case errors.Is(err, recommend.ErrBudgetInvalid):
		writeError(w, http.StatusBadRequest, config.ErrBudgetInvalid)
	case errors.Is(err, recommend.ErrSuperseded):
		// A newer request owns the view; this caller gets nothing to show.
		writeError(w, http.StatusConflict, config.MsgRecommendStale)
	case err != nil:
		writeError(w, http.StatusBadGateway, s.translate(config.TKeyErrRecommend))
	default:
		writeJSON(w, http.StatusOK, recommendResponse{Recommendations: recs})
	}
}

// budgetResponse lists the budget presets offered for recommendation calls.
type budgetResponse struct {
	Default int   `json:"default"`
	Tiers   []int `json:"tiers"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set(config.HeaderAllow, "GET")
		writeError(w, http.StatusMethodNotAllowed, config.HTTPMsgMethodNotAll)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponse{
		Default: config.DefaultBudget,
		Tiers:   config.BudgetTiers,
	})
}

// captureResponse reports where the capture workflow ended up for the
// submitted still.
type captureResponse struct {
	State   capture.State   `json:"state"`
	Draft   capture.Draft   `json:"draft"`
	Message string          `json:"message,omitempty"`
	Contact *engine.Contact `json:"contact,omitempty"`
}

// handleCapture accepts a raw JPEG body, runs the capture workflow against it
// and returns the extracted draft. With ?commit=true the draft is committed
// in the same call when validation passes.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set(config.HeaderAllow, "POST")
		writeError(w, http.StatusMethodNotAllowed, config.HTTPMsgMethodNotAll)
		return
	}

	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, config.HTTPMsgBadRequest)
		return
	}

	wf := capture.NewWorkflow(capture.StillCamera{Data: image}, s.extractor, s.store, s.translate)
	defer wf.Close()

	status := http.StatusOK
	var committed *engine.Contact

	if err := s.runCapture(r.Context(), wf); err != nil {
		status = captureFailureStatus(err)
	} else if r.URL.Query().Get(config.QueryParamCommit) == config.QueryValueTrue {
		contact, err := wf.Commit()
		if err != nil {
			status = http.StatusUnprocessableEntity
		} else {
			committed = &contact
			status = http.StatusCreated
			s.refreshAfterMutation()
		}
	}

	writeJSON(w, status, captureResponse{
		State:   wf.State(),
		Draft:   wf.Draft(),
		Message: wf.Message(),
		Contact: committed,
	})
}

// runCapture drives the workflow up to the form state.
func (s *Server) runCapture(ctx context.Context, wf *capture.Workflow) error {
	if err := wf.Start(ctx); err != nil {
		return err
	}
	return wf.Capture(ctx)
}

// captureFailureStatus maps the workflow error taxonomy onto HTTP statuses:
// device-access problems are the client's payload, extraction problems are
// the collaborator's.
func captureFailureStatus(err error) int {
	if errors.Is(err, capture.ErrCameraAcquire) || errors.Is(err, capture.ErrCameraCapture) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// refreshAfterMutation rebuilds the calendar feed; a failure only logs, the
// mutation itself already succeeded.
func (s *Server) refreshAfterMutation() {
	if err := s.RefreshCalendar(); err != nil {
		slog.Error(config.ErrICalEncode,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}
