package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
)

type memberResponse struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

func toMemberResponse(m repository.Membership) memberResponse {
	return memberResponse{
		TenantID: m.TenantID,
		UserID:   m.UserID,
		Role:     m.Role,
		Email:    m.Email,
		Username: m.Username,
	}
}

// ListMembers maneja GET /v1/orgs/{tenantID}/members. Cualquier miembro del
// tenant puede listar (RoleGuard ya validó la membresía).
func (a *API) ListMembers(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	members, err := a.RBAC.ListMembers(r.Context(), tenantID)
	if err != nil {
		WriteDomainError(w, err, 0)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"members": out})
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AddMember maneja POST /v1/orgs/{tenantID}/members (solo admin).
func (a *API) AddMember(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req addMemberRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Role == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request",
			"user_id y role son obligatorios", 1101)
		return
	}

	m, err := a.RBAC.AddMember(r.Context(), tenantID, req.UserID, req.Role)
	if err != nil {
		WriteDomainError(w, err, 0)
		return
	}
	WriteJSON(w, http.StatusCreated, toMemberResponse(*m))
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole maneja PUT /v1/orgs/{tenantID}/members/{userID}/role (solo
// admin). Demover al último admin del tenant responde 403.
func (a *API) ChangeRole(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	userID := chi.URLParam(r, "userID")

	var req changeRoleRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "role es obligatorio", 1101)
		return
	}

	if err := a.RBAC.ChangeRole(r.Context(), tenantID, userID, req.Role); err != nil {
		WriteDomainError(w, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember maneja DELETE /v1/orgs/{tenantID}/members/{userID} (solo
// admin). Mismo tratamiento de último admin que ChangeRole.
func (a *API) RemoveMember(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	userID := chi.URLParam(r, "userID")

	if err := a.RBAC.RemoveMember(r.Context(), tenantID, userID); err != nil {
		WriteDomainError(w, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
