package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"fridgeshare/pkg/domain"
)

const sseKeepalive = 30 * time.Second

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, user domain.User) {
	room, err := s.app.GetRoom(user, r.PathValue("roomID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, user domain.User) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	messages, err := s.app.ChatHistory(user, r.PathValue("roomID"), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.ChatMessage{"messages": messages})
}

func (s *Server) handleSendChatMessage(w http.ResponseWriter, r *http.Request, user domain.User) {
	if !s.allowRate(w, r, s.messageLimiter, "too many messages, slow down") {
		return
	}
	var req chatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msgType := req.Type
	if msgType == "" {
		msgType = domain.MessageText
	}
	msg, err := s.app.SendChatMessage(r.Context(), user, r.PathValue("roomID"), msgType, req.Content, req.Location, req.LocationLabel)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// handleChatEvents streams room events over server-sent events until the
// client disconnects.
func (s *Server) handleChatEvents(w http.ResponseWriter, r *http.Request, user domain.User) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	roomID := r.PathValue("roomID")
	events, cancel, err := s.app.SubscribeRoom(user, roomID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	defer cancel()
	if _, err := s.app.JoinRoom(r.Context(), user, roomID); err != nil {
		writeAppError(w, err)
		return
	}
	defer func() {
		if err := s.app.LeaveRoom(user, roomID); err != nil {
			slog.Warn("leave room on disconnect", "room_id", roomID, "err", err)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request, user domain.User) {
	room, err := s.app.JoinRoom(r.Context(), user, r.PathValue("roomID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.app.LeaveRoom(user, r.PathValue("roomID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendDirectMessage(w http.ResponseWriter, r *http.Request, user domain.User) {
	if !s.allowRate(w, r, s.messageLimiter, "too many messages, slow down") {
		return
	}
	var req directMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.app.SendDirectMessage(user, req.Recipient, req.ItemID, req.Content)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request, user domain.User) {
	q := r.URL.Query()
	messages, err := s.app.Inbox(user, q.Get("peer"), q.Get("itemId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.DirectMessage{"messages": messages})
}

type chatMessageRequest struct {
	Type          domain.MessageType `json:"type"`
	Content       string             `json:"content"`
	Location      *domain.GeoPoint   `json:"location"`
	LocationLabel string             `json:"locationLabel"`
}

type directMessageRequest struct {
	Recipient string `json:"recipient"`
	ItemID    string `json:"itemId"`
	Content   string `json:"content"`
}
