package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/onboardhub/backend/internal/models"
	"gorm.io/gorm"
)

// CreateProfile inserts a profile. The display name is taken from the email's local part.
func CreateProfile(t *testing.T, db *gorm.DB, email string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		Email:       email,
		DisplayName: strings.Split(email, "@")[0],
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create profile %s: %v", email, err)
	}
	return p
}

// CreateProject inserts a project owned by owner together with its owner membership.
func CreateProject(t *testing.T, db *gorm.DB, owner *models.Profile, name string) *models.Project {
	t.Helper()
	p := &models.Project{
		Name:         name,
		OwnerID:      owner.ID,
		CourseStatus: models.CourseStatusNone,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	AddMember(t, db, p.ID, owner.ID, models.RoleOwner)
	return p
}

func AddMember(t *testing.T, db *gorm.DB, projectID, userID uint, role models.Role) *models.ProjectMember {
	t.Helper()
	m := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("add member %d to project %d: %v", userID, projectID, err)
	}
	return m
}

// CreateInviteCode inserts a code directly, bypassing authorization.
func CreateInviteCode(t *testing.T, db *gorm.DB, projectID, createdBy uint, code string, role models.Role, expiresAt time.Time, usesLeft *int) *models.ProjectInviteCode {
	t.Helper()
	c := &models.ProjectInviteCode{
		ProjectID: projectID,
		Code:      code,
		Role:      role,
		CreatedBy: createdBy,
		ExpiresAt: expiresAt.UTC(),
		UsesLeft:  usesLeft,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create invite code %s: %v", code, err)
	}
	return c
}

// Team is a project with one profile per role.
type Team struct {
	Project *models.Project
	Owner   *models.Profile
	Admin   *models.Profile
	Member  *models.Profile
	Viewer  *models.Profile
	// Outsider has a profile but no membership.
	Outsider *models.Profile
}

// SeedTeam builds a Team under a unique email prefix.
func SeedTeam(t *testing.T, db *gorm.DB, prefix string) *Team {
	t.Helper()
	email := func(who string) string { return fmt.Sprintf("%s-%s@example.com", prefix, who) }

	team := &Team{
		Owner:    CreateProfile(t, db, email("owner")),
		Admin:    CreateProfile(t, db, email("admin")),
		Member:   CreateProfile(t, db, email("member")),
		Viewer:   CreateProfile(t, db, email("viewer")),
		Outsider: CreateProfile(t, db, email("outsider")),
	}
	team.Project = CreateProject(t, db, team.Owner, prefix+" project")
	AddMember(t, db, team.Project.ID, team.Admin.ID, models.RoleAdmin)
	AddMember(t, db, team.Project.ID, team.Member.ID, models.RoleMember)
	AddMember(t, db, team.Project.ID, team.Viewer.ID, models.RoleViewer)
	return team
}

func IntPtr(v int) *int { return &v }
