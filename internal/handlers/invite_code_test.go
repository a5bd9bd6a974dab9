package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/testutil"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

type functionBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeFunction(t *testing.T, w *httptest.ResponseRecorder) functionBody {
	t.Helper()
	var body functionBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestInviteCodeFunction_Preflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, nil, http.MethodOptions, "/functions/v1/invite-code", nil)
	expectStatus(t, w, http.StatusOK)
	if w.Body.Len() != 0 {
		t.Errorf("preflight body = %q, expected empty", w.Body.String())
	}
}

func TestInviteCodeFunction_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	base := "/functions/v1/invite-code"

	w := env.do(t, team.Admin, http.MethodPost, base+"?action=generate", map[string]interface{}{
		"project_id": team.Project.ID,
		"uses_left":  1,
	})
	expectStatus(t, w, http.StatusOK)
	body := decodeFunction(t, w)
	var code models.ProjectInviteCode
	if err := json.Unmarshal(body.Data, &code); err != nil {
		t.Fatalf("decode code: %v", err)
	}
	if !body.Success || !codePattern.MatchString(code.Code) || code.Role != models.RoleMember {
		t.Fatalf("generate = %+v / %+v", body, code)
	}

	w = env.do(t, team.Admin, http.MethodGet, fmt.Sprintf("%s?project_id=%d", base, team.Project.ID), nil)
	expectStatus(t, w, http.StatusOK)
	var codes []models.ProjectInviteCode
	json.Unmarshal(decodeFunction(t, w).Data, &codes)
	if len(codes) != 1 {
		t.Fatalf("listed %d codes, expected 1", len(codes))
	}

	// lowercase input with whitespace still redeems
	w = env.do(t, team.Outsider, http.MethodPost, base+"?action=join", map[string]string{
		"code": "  " + strings.ToLower(code.Code) + " ",
	})
	expectStatus(t, w, http.StatusOK)
	var joined struct {
		Member      models.ProjectMember `json:"member"`
		ProjectName string               `json:"project_name"`
	}
	json.Unmarshal(decodeFunction(t, w).Data, &joined)
	if joined.ProjectName != team.Project.Name || joined.Member.UserID != team.Outsider.ID {
		t.Errorf("join = %+v", joined)
	}

	// single-use code is gone after redemption
	var remaining int64
	env.db.Model(&models.ProjectInviteCode{}).Where("id = ?", code.ID).Count(&remaining)
	if remaining != 0 {
		t.Error("single-use code should be deleted after redemption")
	}
}

func TestInviteCodeFunction_ErrorsAre500(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	base := "/functions/v1/invite-code"
	existing := testutil.CreateInviteCode(t, env.db, team.Project.ID, team.Owner.ID, "ABCD-EFGH-JKLM", models.RoleMember, time.Now().Add(time.Hour), nil)

	tests := []struct {
		name    string
		actor   *models.Profile
		method  string
		path    string
		body    interface{}
		wantErr string
	}{
		{"no token", nil, http.MethodGet, base + "?project_id=1", nil, "Unauthorized"},
		{"unknown action", team.Admin, http.MethodPost, base + "?action=explode", map[string]int{}, "Invalid action"},
		{"member cannot generate", team.Member, http.MethodPost, base + "?action=generate", map[string]uint{"project_id": team.Project.ID}, "permission denied"},
		{"missing project id", team.Admin, http.MethodPost, base + "?action=generate", map[string]int{}, "project_id is required"},
		{"already a member", team.Member, http.MethodPost, base + "?action=join", map[string]string{"code": existing.Code}, "already a member"},
		{"unknown code", team.Outsider, http.MethodPost, base + "?action=join", map[string]string{"code": "ZZZZ-ZZZZ-ZZZZ"}, "not found"},
		{"list needs project id", team.Admin, http.MethodGet, base, nil, "project_id is required"},
		{"viewer cannot revoke", team.Viewer, http.MethodDelete, fmt.Sprintf("%s?code_id=%d", base, existing.ID), nil, "permission denied"},
		{"unsupported method", team.Admin, http.MethodPut, base, nil, "Method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.actor, tt.method, tt.path, tt.body)
			expectStatus(t, w, http.StatusInternalServerError)
			body := decodeFunction(t, w)
			if body.Success || !strings.Contains(body.Error, tt.wantErr) {
				t.Errorf("body = %+v, expected error containing %q", body, tt.wantErr)
			}
		})
	}
}

func TestInviteCodeFunction_Revoke(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	code := testutil.CreateInviteCode(t, env.db, team.Project.ID, team.Owner.ID, "QWER-TYUI-OPAS", models.RoleViewer, time.Now().Add(time.Hour), nil)

	w := env.do(t, team.Admin, http.MethodDelete, fmt.Sprintf("/functions/v1/invite-code?code_id=%d", code.ID), nil)
	expectStatus(t, w, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != `{"success":true}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestInviteCodeREST(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	codesPath := fmt.Sprintf("/api/projects/%d/invite-codes", team.Project.ID)

	w := env.do(t, team.Member, http.MethodPost, codesPath, map[string]string{})
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, team.Admin, http.MethodPost, codesPath, map[string]string{"role": "admin"})
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, team.Owner, http.MethodPost, codesPath, map[string]string{"role": "owner"})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, team.Admin, http.MethodPost, codesPath, map[string]interface{}{"role": "viewer", "expires_in_days": 2})
	expectStatus(t, w, http.StatusCreated)
	var code models.ProjectInviteCode
	decode(t, w, &code)
	if code.Role != models.RoleViewer || code.ProjectID != team.Project.ID {
		t.Fatalf("created = %+v", code)
	}
	if d := time.Until(code.ExpiresAt); d < 47*time.Hour || d > 49*time.Hour {
		t.Errorf("expires in %v, expected about 48h", d)
	}

	w = env.do(t, team.Admin, http.MethodGet, codesPath, nil)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, team.Outsider, http.MethodPost, "/api/invite-codes/join", map[string]string{"code": code.Code})
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, team.Outsider, http.MethodPost, "/api/invite-codes/join", map[string]string{"code": code.Code})
	expectStatus(t, w, http.StatusConflict)

	w = env.do(t, team.Admin, http.MethodDelete, fmt.Sprintf("/api/invite-codes/%d", code.ID), nil)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, team.Admin, http.MethodDelete, fmt.Sprintf("/api/invite-codes/%d", code.ID), nil)
	expectStatus(t, w, http.StatusNotFound)

	w = env.do(t, team.Admin, http.MethodDelete, "/api/invite-codes/abc", nil)
	expectStatus(t, w, http.StatusBadRequest)
}
