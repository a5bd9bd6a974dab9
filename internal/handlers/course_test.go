package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/services"
)

func TestCourseHandler_RegenerateAndFetch(t *testing.T) {
	env := newTestEnv(t)
	team := env.team
	base := fmt.Sprintf("/api/projects/%d/course", team.Project.ID)

	w := env.do(t, team.Member, http.MethodPost, base+"/regenerate", nil)
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, team.Admin, http.MethodPost, base+"/regenerate", nil)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, team.Viewer, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusOK)
	var topics []models.CourseTopic
	decode(t, w, &topics)
	if len(topics) != 2 {
		t.Fatalf("fetched %d topics, expected 2", len(topics))
	}
	if topics[0].Title != "Intro" || topics[1].OrderIndex != 1 {
		t.Errorf("topics out of order: %+v", topics)
	}
	if topics[0].Summary == nil || topics[0].Quiz == nil || len(topics[0].Quiz.Questions) != 1 {
		t.Errorf("summary/quiz not joined: %+v", topics[0])
	}

	w = env.do(t, team.Outsider, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusForbidden)
}

func TestCourseHandler_RegenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		err    error
		status int
	}{
		{"malformed", `{"modules":[{"title":"x"}]}`, nil, http.StatusUnprocessableEntity},
		{"generator unavailable", "", fmt.Errorf("%w: 503", services.ErrGeneratorUnavailable), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.gen.out, env.gen.err = tt.out, tt.err

			w := env.do(t, env.team.Owner, http.MethodPost, fmt.Sprintf("/api/projects/%d/course/regenerate", env.team.Project.ID), nil)
			expectStatus(t, w, tt.status)

			var project models.Project
			env.db.First(&project, env.team.Project.ID)
			if project.CourseStatus != models.CourseStatusFailed || project.CourseError == "" {
				t.Errorf("status = %s (%q), expected failed with a message", project.CourseStatus, project.CourseError)
			}
		})
	}
}

func TestCourseHandler_GenerateQueued(t *testing.T) {
	env := newTestEnv(t)
	base := fmt.Sprintf("/api/projects/%d/course", env.team.Project.ID)

	w := env.do(t, env.team.Viewer, http.MethodPost, base+"/generate", nil)
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, env.team.Admin, http.MethodPost, base+"/generate", nil)
	expectStatus(t, w, http.StatusAccepted)
	env.queue.Wait()

	var count int64
	env.db.Model(&models.CourseTopic{}).Where("project_id = ?", env.team.Project.ID).Count(&count)
	if count != 2 {
		t.Errorf("queued generation stored %d topics, expected 2", count)
	}
}

func TestCourseHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	base := fmt.Sprintf("/api/projects/%d/course", env.team.Project.ID)

	expectStatus(t, env.do(t, env.team.Owner, http.MethodPost, base+"/regenerate", nil), http.StatusOK)

	w := env.do(t, env.team.Member, http.MethodDelete, base, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, env.team.Admin, http.MethodDelete, base, nil)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, env.team.Member, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusOK)
	var topics []models.CourseTopic
	decode(t, w, &topics)
	if len(topics) != 0 {
		t.Errorf("%d topics left after delete", len(topics))
	}
	for _, model := range []interface{}{&models.CourseSummary{}, &models.CourseQuiz{}} {
		var n int64
		env.db.Model(model).Count(&n)
		if n != 0 {
			t.Errorf("%T rows left: %d", model, n)
		}
	}
}

func TestDocumentationHandler(t *testing.T) {
	env := newTestEnv(t)
	path := fmt.Sprintf("/api/projects/%d/documentation", env.team.Project.ID)

	w := env.do(t, env.team.Member, http.MethodPut, path, map[string]string{"overview": "hi"})
	expectStatus(t, w, http.StatusForbidden)

	w = env.do(t, env.team.Admin, http.MethodPut, path, map[string]string{"overview": "What we build", "setup": "make dev"})
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, env.team.Viewer, http.MethodGet, path, nil)
	expectStatus(t, w, http.StatusOK)
	var doc models.ProjectDocumentation
	decode(t, w, &doc)
	if doc.Overview != "What we build" || doc.Setup != "make dev" {
		t.Errorf("documentation = %+v", doc)
	}

	long := make([]byte, services.MaxDocumentationFieldLen+1)
	for i := range long {
		long[i] = 'a'
	}
	w = env.do(t, env.team.Admin, http.MethodPut, path, map[string]string{"resources": string(long)})
	expectStatus(t, w, http.StatusBadRequest)
}
