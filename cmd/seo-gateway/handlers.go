package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/seo-insights/pkg/client"
	"github.com/Sternrassler/seo-insights/pkg/credits"
	"github.com/Sternrassler/seo-insights/pkg/gsc"
	"github.com/Sternrassler/seo-insights/pkg/settings"
)

// originOf prefers an explicit ?origin= over the Origin header.
func originOf(r *http.Request) string {
	if o := r.URL.Query().Get("origin"); o != "" {
		return o
	}
	return r.Header.Get("Origin")
}

// handleConnect redirects the user to Google's consent screen.
// With Accept: application/json the URL is returned instead.
func (s *server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.Connector == nil {
		writeError(w, http.StatusNotImplemented, "Search Console connect is not configured")
		return
	}

	authURL, err := s.Connector.AuthURL(r.Context(), originOf(r), userFrom(r))
	if err != nil {
		if errors.Is(err, gsc.ErrInvalidOrigin) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Str("user_id", userFrom(r)).Msg("Failed to start Search Console connect")
		writeError(w, http.StatusInternalServerError, "failed to start Search Console connect")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, map[string]string{"url": authURL})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

type callbackRequest struct {
	Origin string `json:"origin"`
	State  string `json:"state"`
	Code   string `json:"code"`
}

// handleCallback finishes the OAuth flow. The frontend callback page posts
// the code and state it received from Google. The user is taken from the
// state, not from the request headers.
func (s *server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.Connector == nil {
		writeError(w, http.StatusNotImplemented, "Search Console connect is not configured")
		return
	}

	var req callbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Origin == "" {
		req.Origin = r.Header.Get("Origin")
	}

	userID, token, err := s.Connector.Exchange(r.Context(), req.Origin, req.State, req.Code)
	switch {
	case errors.Is(err, gsc.ErrInvalidOrigin), errors.Is(err, gsc.ErrMissingCode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, gsc.ErrInvalidState):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "failed to connect Google Search Console")
		return
	}

	ctx := client.WithUserID(r.Context(), userID)
	if err := gsc.SaveToken(ctx, s.Invoker, userID, token); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store Search Console token")
		writeError(w, http.StatusBadGateway, client.Message(err))
		return
	}

	// The next sites request must fetch again instead of reusing the
	// "token expired" state.
	s.sites.forget(userID)

	writeJSON(w, http.StatusOK, map[string]any{"connected": true})
}

type creditsResponse struct {
	*credits.Balance
	History []credits.Deduction `json:"history"`
}

// handleCredits returns the caller's balance and recent deductions.
// ?limit= caps the history (default 20).
func (s *server) handleCredits(w http.ResponseWriter, r *http.Request) {
	if s.Balances == nil {
		writeError(w, http.StatusNotImplemented, "credits are not configured")
		return
	}
	userID := userFrom(r)

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	balance, err := s.Balances.GetBalance(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read balance")
		writeError(w, http.StatusInternalServerError, "failed to read credits")
		return
	}
	history, err := s.Balances.History(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read credit history")
		writeError(w, http.StatusInternalServerError, "failed to read credits")
		return
	}

	writeJSON(w, http.StatusOK, creditsResponse{Balance: balance, History: history})
}

func (s *server) handleGetOpenAIKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.Settings.OpenAIKey(r.Context(), userFrom(r))
	switch {
	case errors.Is(err, settings.ErrNotFound):
		writeJSON(w, http.StatusOK, map[string]any{"configured": false})
	case err != nil:
		s.logger.Error().Err(err).Str("user_id", userFrom(r)).Msg("Failed to read OpenAI key")
		writeError(w, http.StatusInternalServerError, "failed to read settings")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"configured": true, "key": settings.MaskKey(key)})
	}
}

func (s *server) handlePutOpenAIKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.Settings.SaveOpenAIKey(r.Context(), userFrom(r), body.Key)
	switch {
	case errors.Is(err, settings.ErrInvalidAPIKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error().Err(err).Str("user_id", userFrom(r)).Msg("Failed to save OpenAI key")
		writeError(w, http.StatusInternalServerError, "failed to save settings")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"configured": true, "key": settings.MaskKey(strings.TrimSpace(body.Key))})
	}
}

func (s *server) handleDeleteOpenAIKey(w http.ResponseWriter, r *http.Request) {
	if err := s.Settings.DeleteOpenAIKey(r.Context(), userFrom(r)); err != nil {
		s.logger.Error().Err(err).Str("user_id", userFrom(r)).Msg("Failed to delete OpenAI key")
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
