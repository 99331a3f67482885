package chat

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chatserver/internal/apperror"
	"chatserver/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is deployment config, not enforced here
	},
}

type Handler struct {
	hub     *Hub
	service *Service
	gate    *AccessGate
	relay   Publisher
}

func NewHandler(hub *Hub, service *Service, gate *AccessGate, relay Publisher) *Handler {
	return &Handler{hub: hub, service: service, gate: gate, relay: relay}
}

// ServeWs upgrades the connection and starts the pumps. The upgrade itself
// establishes nothing: the client must still pass an OPEN frame through the
// access gate before any other frame is honored.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, h.gate, h.service, h.relay)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) CreateGroupRoom(w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("roomName")
	if roomName == "" {
		apperror.WriteJSON(w, apperror.InvalidState("roomName is required"))
		return
	}
	email, _ := middleware.EmailFromContext(r.Context())

	room, err := h.service.CreateGroupRoom(r.Context(), roomName, email)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"roomId": room.ID})
}

func (h *Handler) ListGroupRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListGroupRooms(r.Context())
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	type roomRes struct {
		RoomID   int64  `json:"roomId"`
		RoomName string `json:"roomName"`
	}
	res := make([]roomRes, 0, len(rooms))
	for _, room := range rooms {
		res = append(res, roomRes{RoomID: room.ID, RoomName: room.Name})
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) JoinGroupRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDParam(r)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	email, _ := middleware.EmailFromContext(r.Context())

	if err := h.service.JoinGroupRoom(r.Context(), roomID, email); err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) LeaveGroupRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDParam(r)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	email, _ := middleware.EmailFromContext(r.Context())

	if err := h.service.LeaveGroupRoom(r.Context(), roomID, email); err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GetOrCreatePrivateRoom(w http.ResponseWriter, r *http.Request) {
	partnerID, err := strconv.ParseInt(r.URL.Query().Get("chatPartnerId"), 10, 64)
	if err != nil {
		apperror.WriteJSON(w, apperror.InvalidState("chatPartnerId is required"))
		return
	}
	email, _ := middleware.EmailFromContext(r.Context())

	roomID, err := h.service.GetOrCreatePrivateRoom(r.Context(), email, partnerID)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"roomId": roomID})
}

func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDParam(r)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	email, _ := middleware.EmailFromContext(r.Context())

	messages, err := h.service.History(r.Context(), roomID, email)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	if messages == nil {
		messages = []ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) MarkRoomRead(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDParam(r)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	email, _ := middleware.EmailFromContext(r.Context())

	if err := h.service.MarkRoomRead(r.Context(), roomID, email); err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) MyRooms(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.EmailFromContext(r.Context())

	summaries, err := h.service.MyRooms(r.Context(), email)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}
	if summaries == nil {
		summaries = []RoomSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func roomIDParam(r *http.Request) (int64, error) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "roomId"), 10, 64)
	if err != nil {
		return 0, apperror.InvalidState("invalid room id")
	}
	return roomID, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
