package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

const maxHouseholdNameLength = 100

// HouseholdHandler manages household membership: invites, joining, roles and
// removal.
type HouseholdHandler struct {
	householdStore *store.HouseholdStore
	inviteStore    *store.InviteStore
	sessionStore   *store.SessionStore
	logger         *slog.Logger
}

func NewHouseholdHandler(hs *store.HouseholdStore, is *store.InviteStore, ss *store.SessionStore, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		householdStore: hs,
		inviteStore:    is,
		sessionStore:   ss,
		logger:         logger,
	}
}

type householdResponse struct {
	Household *model.Household        `json:"household"`
	Members   []model.HouseholdMember `json:"members"`
}

// Current returns the session's household and its members.
func (h *HouseholdHandler) Current(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	household, err := h.householdStore.GetByID(householdID)
	if err != nil {
		h.logger.Error("get household", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "household not found")
		return
	}
	members, err := h.listMembers(householdID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, householdResponse{Household: household, Members: members})
}

func (h *HouseholdHandler) listMembers(householdID int64) ([]model.HouseholdMember, error) {
	members, err := h.householdStore.ListMembers(householdID)
	if members == nil {
		members = []model.HouseholdMember{}
	}
	return members, err
}

func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.listMembers(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type renameHouseholdRequest struct {
	Name string `json:"name"`
}

// Rename changes the household name. Admin only.
func (h *HouseholdHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameHouseholdRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxHouseholdNameLength {
		writeError(w, http.StatusBadRequest, "name must be 1-100 characters")
		return
	}

	household, err := h.householdStore.Rename(auth.HouseholdID(r.Context()), name)
	if err != nil {
		h.logger.Error("rename household", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "household not found")
		return
	}
	writeJSON(w, http.StatusOK, household)
}

type memberRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole promotes or demotes a member. Admin only.
func (h *HouseholdHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathInt(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req memberRoleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !auth.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "role must be admin or member")
		return
	}

	member, err := h.householdStore.UpdateMemberRole(auth.HouseholdID(r.Context()), userID, req.Role)
	if errors.Is(err, store.ErrLastAdmin) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("update member role", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// RemoveMember removes a member from the household. Admins may remove anyone;
// other members may only remove themselves. The removed user's sessions for
// this household end.
func (h *HouseholdHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID, err := parsePathInt(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != ac.UserID && ac.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	removed, err := h.householdStore.RemoveMember(ac.HouseholdID, userID)
	if errors.Is(err, store.ErrLastAdmin) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("remove member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := h.sessionStore.DeleteForHousehold(userID, ac.HouseholdID); err != nil {
		h.logger.Error("end removed member sessions", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

type inviteRequest struct {
	TTLHours int `json:"ttl_hours"`
}

// CreateInvite issues a single-use join code. Admin only.
func (h *HouseholdHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TTLHours < 0 || req.TTLHours > 24*14 {
		writeError(w, http.StatusBadRequest, "ttl_hours must be between 0 and 336")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	inv, err := h.inviteStore.Create(ac.HouseholdID, ac.UserID, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		h.logger.Error("create invite", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *HouseholdHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.inviteStore.ListPending(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list invites", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if invites == nil {
		invites = []model.HouseholdInvite{}
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *HouseholdHandler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invite id")
		return
	}
	ok, err := h.inviteStore.Revoke(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("revoke invite", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "invite not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type joinRequest struct {
	Code string `json:"code"`
}

// Join redeems an invite code, adds the caller to its household as a member
// and points the current session at it.
func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req joinRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if store.NormalizeInviteCode(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	inv, err := h.inviteStore.Accept(req.Code, ac.UserID)
	if errors.Is(err, store.ErrAlreadyMember) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("accept invite", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invite code is invalid or expired")
		return
	}

	if err := h.sessionStore.UpdateHouseholdID(ac.SessionID, inv.HouseholdID); err != nil {
		h.logger.Error("switch to joined household", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.logger.Info("member joined household", "household_id", inv.HouseholdID, "user_id", ac.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"household_id": inv.HouseholdID, "role": auth.RoleMember})
}
