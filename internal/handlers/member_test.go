package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/services"
)

func memberID(t *testing.T, env *testEnv, p *models.Profile) uint {
	t.Helper()
	var m models.ProjectMember
	if err := env.db.Where("project_id = ? AND user_id = ?", env.team.Project.ID, p.ID).First(&m).Error; err != nil {
		t.Fatalf("find membership of %s: %v", p.Email, err)
	}
	return m.ID
}

func TestMemberHandler_List(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	path := fmt.Sprintf("/api/projects/%d/members", team.Project.ID)

	w := env.do(t, team.Viewer, http.MethodGet, path, nil)
	expectStatus(t, w, http.StatusOK)
	var membership services.Membership
	decode(t, w, &membership)
	if len(membership.Members) != 4 || membership.Role != models.RoleViewer {
		t.Errorf("viewer sees %d members as %s, expected 4 as viewer", len(membership.Members), membership.Role)
	}
	if membership.Members[0].Email != team.Owner.Email {
		t.Errorf("first member = %s, expected owner", membership.Members[0].Email)
	}

	w = env.do(t, team.Outsider, http.MethodGet, path, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, nil, http.MethodGet, path, nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = env.do(t, team.Viewer, http.MethodGet, "/api/projects/0/members", nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestMemberHandler_InviteAndAccept(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	path := fmt.Sprintf("/api/projects/%d/invitations", team.Project.ID)

	tests := []struct {
		name   string
		actor  *models.Profile
		body   map[string]string
		status int
	}{
		{"member cannot invite", team.Member, map[string]string{"email": "new@example.com"}, http.StatusForbidden},
		{"bad email", team.Admin, map[string]string{"email": "not-an-email"}, http.StatusBadRequest},
		{"unknown role", team.Admin, map[string]string{"email": "new@example.com", "role": "boss"}, http.StatusBadRequest},
		{"existing member", team.Admin, map[string]string{"email": team.Member.Email}, http.StatusConflict},
		{"missing email", team.Admin, map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.actor, http.MethodPost, path, tt.body)
			expectStatus(t, w, tt.status)
		})
	}

	w := env.do(t, team.Admin, http.MethodPost, path, map[string]string{"email": team.Outsider.Email, "role": "viewer"})
	expectStatus(t, w, http.StatusCreated)

	var inv models.ProjectInvitation
	if err := env.db.Where("email = ?", team.Outsider.Email).First(&inv).Error; err != nil {
		t.Fatalf("invitation not stored: %v", err)
	}

	// only the addressee can accept
	w = env.do(t, team.Member, http.MethodPost, "/api/invitations/accept", map[string]string{"token": inv.Token})
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, team.Outsider, http.MethodPost, "/api/invitations/accept", map[string]string{"token": inv.Token})
	expectStatus(t, w, http.StatusOK)
	var result services.RedeemResult
	decode(t, w, &result)
	if result.Member == nil || result.Member.Role != models.RoleViewer {
		t.Fatalf("accept = %+v", result)
	}

	w = env.do(t, team.Outsider, http.MethodPost, "/api/invitations/accept", map[string]string{"token": inv.Token})
	expectStatus(t, w, http.StatusNotFound)
}

func TestMemberHandler_CancelInvitation(t *testing.T) {
	env := newTestEnv(t)
	team := env.team

	w := env.do(t, team.Owner, http.MethodPost, fmt.Sprintf("/api/projects/%d/invitations", team.Project.ID), map[string]string{"email": "later@example.com"})
	expectStatus(t, w, http.StatusCreated)
	var inv models.ProjectInvitation
	decode(t, w, &inv)

	w = env.do(t, team.Member, http.MethodDelete, fmt.Sprintf("/api/invitations/%d", inv.ID), nil)
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, team.Admin, http.MethodDelete, fmt.Sprintf("/api/invitations/%d", inv.ID), nil)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, team.Admin, http.MethodDelete, fmt.Sprintf("/api/invitations/%d", inv.ID), nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestMemberHandler_ChangeRoleAndRemove(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	member := fmt.Sprintf("/api/members/%d", memberID(t, env, team.Member))
	owner := fmt.Sprintf("/api/members/%d", memberID(t, env, team.Owner))

	tests := []struct {
		name   string
		actor  *models.Profile
		path   string
		role   string
		status int
	}{
		{"admin cannot grant admin", team.Admin, member, "admin", http.StatusForbidden},
		{"nobody grants owner", team.Owner, member, "owner", http.StatusForbidden},
		{"owner role is fixed", team.Admin, owner, "member", http.StatusForbidden},
		{"viewer cannot change", team.Viewer, member, "viewer", http.StatusForbidden},
		{"invalid role", team.Owner, member, "superuser", http.StatusBadRequest},
		{"admin demotes member", team.Admin, member, "viewer", http.StatusOK},
		{"owner promotes", team.Owner, member, "admin", http.StatusOK},
		{"missing member", team.Owner, "/api/members/9999", "viewer", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.actor, http.MethodPut, tt.path, map[string]string{"role": tt.role})
			expectStatus(t, w, tt.status)
		})
	}

	// the member is now an admin, so another admin cannot remove them
	w := env.do(t, team.Admin, http.MethodDelete, member, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, team.Owner, http.MethodDelete, owner, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, team.Owner, http.MethodDelete, member, nil)
	expectStatus(t, w, http.StatusOK)
}

func TestMemberHandler_Leave(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	path := fmt.Sprintf("/api/projects/%d/membership", team.Project.ID)

	w := env.do(t, team.Owner, http.MethodDelete, path, nil)
	expectStatus(t, w, http.StatusForbidden)

	var out struct {
		Left bool `json:"left"`
	}
	w = env.do(t, team.Viewer, http.MethodDelete, path, nil)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &out)
	if !out.Left {
		t.Error("viewer should have left")
	}

	w = env.do(t, team.Viewer, http.MethodDelete, path, nil)
	expectStatus(t, w, http.StatusOK)
	out.Left = true
	decode(t, w, &out)
	if out.Left {
		t.Error("second leave should report false")
	}
}
