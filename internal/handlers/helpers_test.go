package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/internal/testutil"
	"github.com/onboardhub/backend/internal/utils"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	out string
	err error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.out, g.err
}

const twoModules = "```json\n" + `{"modules":[
 {"title":"Intro","summary":"What we build","quiz":{"title":"Intro Quiz","questions":[{"question":"Q1","options":["a","b"],"correctAnswer":0}]}},
 {"title":"Setup","summary":"Local setup","quiz":{"title":"Setup Quiz","questions":[{"question":"Q2","options":["a","b"],"correctAnswer":1}]}}
]}` + "\n```"

// testEnv is a router wired like the server, backed by a fresh database.
type testEnv struct {
	db     *gorm.DB
	team   *testutil.Team
	gen    *stubGenerator
	queue  *services.SyncQueue
	events *services.CourseEventHub
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	env := &testEnv{
		db:     db,
		team:   testutil.SeedTeam(t, db, "h"),
		gen:    &stubGenerator{out: twoModules},
		queue:  services.NewSyncQueue(),
		events: services.NewCourseEventHub(),
	}

	inviteCfg := &config.InviteConfig{DefaultExpiryDays: 30, InvitationExpiryDays: 7}
	courses := services.NewCourseService(db, env.gen, env.events)
	env.queue.SetProcessor(courses.Process)
	courses.SetQueue(env.queue)
	t.Cleanup(func() { env.queue.Close() })

	codes := NewInviteCodeHandler(services.NewInviteCodeService(db, inviteCfg))
	members := NewMemberHandler(services.NewMemberService(db, nil, inviteCfg))
	projects := NewProjectHandler(services.NewProjectService(db), courses)
	course := NewCourseHandler(courses)
	docs := NewDocumentationHandler(db)
	logs := NewSystemLogHandler(db)
	auth := NewAuthHandler(db, &config.JWTConfig{ExpireHour: 1})

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, env.queue, env.events).CheckHealth)
	r.Any("/functions/v1/invite-code", codes.Function)

	api := r.Group("/api")
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.GET("/events/courses", NewSSEHandler(db, env.events).StreamCourseEvents)

	p := api.Group("", middleware.AuthRequired())
	p.GET("/auth/me", auth.GetCurrentUser)
	p.PUT("/auth/me", auth.UpdateCurrentUser)
	p.GET("/projects", projects.List)
	p.POST("/projects", projects.Create)
	p.POST("/projects/preview-course", projects.PreviewCourse)
	p.GET("/projects/:id", projects.GetByID)
	p.PUT("/projects/:id", projects.Update)
	p.DELETE("/projects/:id", projects.Delete)
	p.GET("/projects/:id/members", members.List)
	p.DELETE("/projects/:id/membership", members.Leave)
	p.POST("/projects/:id/invitations", members.Invite)
	p.PUT("/members/:memberId", members.ChangeRole)
	p.DELETE("/members/:memberId", members.Remove)
	p.POST("/invitations/accept", members.Accept)
	p.DELETE("/invitations/:invitationId", members.CancelInvitation)
	p.GET("/projects/:id/invite-codes", codes.List)
	p.POST("/projects/:id/invite-codes", codes.Generate)
	p.POST("/invite-codes/join", codes.Join)
	p.DELETE("/invite-codes/:codeId", codes.Revoke)
	p.GET("/projects/:id/course", course.Get)
	p.DELETE("/projects/:id/course", course.Delete)
	p.POST("/projects/:id/course/regenerate", course.Regenerate)
	p.POST("/projects/:id/course/generate", course.Generate)
	p.GET("/projects/:id/documentation", docs.Get)
	p.PUT("/projects/:id/documentation", docs.Upsert)
	p.GET("/projects/:id/logs", logs.List)

	env.router = r
	return env
}

func tokenFor(t *testing.T, p *models.Profile) string {
	t.Helper()
	token, err := utils.GenerateToken(p.ID, p.Email, 1)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

// do sends a request as p (anonymous when p is nil) and returns the recorder.
func (e *testEnv) do(t *testing.T, p *models.Profile, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, p))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// envelope is the {code, message, data} body of the REST API.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, expected %d (body %s)", w.Code, status, w.Body.String())
	}
}
