package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/domain/model"
	"github.com/secmon-lab/iris/pkg/usecase"
	"github.com/secmon-lab/iris/pkg/utils/errutil"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type gatewayHandler struct {
	uc *usecase.UseCases
}

// requestToken returns the token of the request: the token query parameter, or the
// bearer token of the Authorization header
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// workspace resolves the workspace of the request, writing an error response on failure
func (h *gatewayHandler) workspace(w http.ResponseWriter, r *http.Request) (*usecase.Workspace, bool) {
	ws, err := h.uc.Workspace(requestToken(r))
	if err != nil {
		if errors.Is(err, usecase.ErrTokenRequired) {
			errutil.HandleHTTP(r.Context(), w, usecase.ErrTokenRequired, http.StatusBadRequest)
		} else {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		}
		return nil, false
	}
	return ws, true
}

func parseHistoryFilter(r *http.Request) (model.HistoryFilter, error) {
	q := r.URL.Query()
	filter := model.HistoryFilter{
		Oldest: q.Get("oldest"),
		Latest: q.Get("latest"),
		Cursor: q.Get("cursor"),
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, goerr.New("limit must be a non-negative integer", goerr.V("limit", v))
		}
		filter.Limit = limit
	}

	if v := q.Get("inclusive"); v != "" {
		inclusive, err := strconv.ParseBool(v)
		if err != nil {
			return filter, goerr.New("inclusive must be a boolean", goerr.V("inclusive", v))
		}
		filter.Inclusive = inclusive
	}

	return filter, nil
}

func splitChannels(v string) []string {
	var ids []string
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *gatewayHandler) listChannels(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	channels, err := ws.ListChannels(r.Context())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"channels": channels,
	})
}

func (h *gatewayHandler) listChannelMembers(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	channelID := chi.URLParam(r, "channelID")
	users, err := ws.ListChannelMembers(r.Context(), channelID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"channel": channelID,
		"users":   users,
		"total":   len(users),
	})
}

func (h *gatewayHandler) searchUsers(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	users, err := ws.SearchUsers(r.Context(), q.Get("email"), q.Get("name"))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, users)
}

func (h *gatewayHandler) crawl(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	channelIDs := splitChannels(r.URL.Query().Get("channels"))
	if len(channelIDs) == 0 {
		errutil.HandleHTTP(r.Context(), w, usecase.ErrChannelsRequired, http.StatusBadRequest)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatText
	}
	if format != formatText && format != formatJSON {
		errutil.HandleHTTP(r.Context(), w, goerr.New("format must be text or json", goerr.V("format", format)), http.StatusBadRequest)
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	results := ws.Crawl(r.Context(), channelIDs, filter)

	if format == formatJSON {
		resp := make(map[string]*model.ChannelMessages, len(results))
		for _, result := range results {
			resp[result.ChannelID] = result
		}
		writeJSON(w, r, http.StatusOK, resp)
		return
	}

	resp := make(map[string][]string, len(results))
	for _, result := range results {
		if result.Failed() {
			resp[result.ChannelID] = []string{"[error] " + result.Error}
			continue
		}
		resp[result.ChannelID] = result.Lines()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *gatewayHandler) crawlChannel(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	channelID := chi.URLParam(r, "channelID")
	result, err := ws.CrawlChannel(r.Context(), channelID, filter)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":     true,
		"channel":     channelID,
		"messages":    result.Messages,
		"total":       len(result.Messages),
		"has_more":    result.HasMore,
		"next_cursor": result.NextCursor,
	})
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *gatewayHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		errutil.HandleHTTP(r.Context(), w, usecase.ErrTextRequired, http.StatusBadRequest)
		return
	}

	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	channelID := chi.URLParam(r, "channelID")
	ts, err := ws.SendMessage(r.Context(), channelID, req.Text)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Message sent",
		"channel":   channelID,
		"timestamp": ts,
	})
}
