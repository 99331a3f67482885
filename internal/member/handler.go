package member

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"chatserver/internal/apperror"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(s *Service) *Handler {
	return &Handler{
		service:  s,
		validate: validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperror.WriteJSON(w, apperror.InvalidState("invalid request body"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		apperror.WriteJSON(w, apperror.InvalidState(err.Error()))
		return
	}

	m, err := h.service.Create(r.Context(), &req)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int64{"id": m.ID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperror.WriteJSON(w, apperror.InvalidState("invalid request body"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		apperror.WriteJSON(w, apperror.InvalidState(err.Error()))
		return
	}

	res, err := h.service.Login(r.Context(), &req)
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		apperror.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(members)
}
