package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/config"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/content"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/database"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

func strPtr(s string) *string { return &s }

func main() {
	ctx := context.Background()

	configFile := flag.String("config", "", "Path to a YAML config file")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed demo tokens")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(&cfg.Database, database.LogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	wm := workflow.NewManager(db, workflow.Options{})
	admin := &auth.Principal{ID: "seed-script", Role: auth.RoleAdmin}

	// 1. Departments
	departments := []auth.Department{
		{ID: "cse", Name: "Computer Science and Engineering", CollegeID: "college-1"},
		{ID: "ece", Name: "Electronics and Communication", CollegeID: "college-1"},
		{ID: "me", Name: "Mechanical Engineering", CollegeID: "college-2"},
	}
	for _, d := range departments {
		if err := wm.Directory().UpsertDepartment(ctx, d); err != nil {
			log.Fatalf("Failed to seed department %s: %v", d.ID, err)
		}
	}
	slog.Info("Seeded departments", "count", len(departments))

	// 2. Workflow definitions, most specific last
	definitions := []model.CreateWorkflowDefinitionDTO{
		{
			Name:        "Default faculty review",
			Description: "Fallback for any content without a more specific workflow.",
			ContentType: model.ContentTypeAny,
			Stages: []model.StageTemplate{
				{Name: "Faculty review", Order: 1, RequiredRoles: []string{auth.RoleFaculty}},
			},
		},
		{
			Name:        "College marks verification",
			ContentType: model.ContentTypeMarks,
			CollegeID:   strPtr("college-1"),
			Stages: []model.StageTemplate{
				{Name: "Faculty verification", Order: 1, RequiredRoles: []string{auth.RoleFaculty}},
				{Name: "Principal sign-off", Order: 2, RequiredRoles: []string{auth.RolePrincipal}},
			},
		},
		{
			Name:         "CSE project review",
			ContentType:  model.ContentTypeProject,
			DepartmentID: strPtr("cse"),
			Stages: []model.StageTemplate{
				{Name: "Guide review", Order: 1, RequiredRoles: []string{auth.RoleFaculty}},
				{Name: "HOD approval", Order: 2, RequiredRoles: []string{auth.RoleHOD}},
			},
		},
	}
	for i := range definitions {
		dto := &definitions[i]
		def, err := wm.Definitions().Create(ctx, admin, dto)
		switch {
		case apperr.IsKind(err, apperr.KindConflict):
			slog.Info("Skipping existing workflow", "name", dto.Name)
		case err != nil:
			log.Fatalf("Failed to create workflow %s: %v", dto.Name, err)
		default:
			slog.Info("Seeded workflow", "name", def.Name, "id", def.ID)
		}
	}

	// 3. Demo content for one student
	marks := 86.5
	items := []content.Item{
		{ContentType: model.ContentTypeProject, ContentID: "proj-1", OwnerID: "student-1", Title: "Line following robot",
			Summary: "Arduino robot with PID control", Payload: datatypes.JSON(`{"repo":"https://example.org/robot"}`)},
		{ContentType: model.ContentTypeAchievement, ContentID: "ach-1", OwnerID: "student-1", Title: "Hackathon winner",
			Payload: datatypes.JSON(`{"event":"Smart India Hackathon","position":1}`)},
		{ContentType: model.ContentTypeMarks, ContentID: "marks-sem1", OwnerID: "student-1", Title: "Semester 1", Score: &marks},
		{ContentType: model.ContentTypeResume, ContentID: "resume-1", OwnerID: "student-1", Title: "Resume"},
	}
	for i := range items {
		if err := wm.Content().Upsert(ctx, &items[i]); err != nil {
			log.Fatalf("Failed to seed content %s: %v", items[i].ContentID, err)
		}
	}
	slog.Info("Seeded content", "count", len(items))

	// 4. Demo tokens
	parser := auth.NewTokenParser(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	principals := []auth.Principal{
		{ID: "student-1", Role: auth.RoleStudent, DepartmentID: strPtr("cse"), CollegeID: strPtr("college-1")},
		{ID: "faculty-1", Role: auth.RoleFaculty, DepartmentID: strPtr("cse"), CollegeID: strPtr("college-1")},
		{ID: "hod-1", Role: auth.RoleHOD, DepartmentID: strPtr("cse"), CollegeID: strPtr("college-1")},
		{ID: "principal-1", Role: auth.RolePrincipal, CollegeID: strPtr("college-1")},
		{ID: "admin-1", Role: auth.RoleAdmin},
	}
	for _, p := range principals {
		token, err := parser.Issue(p, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token for %s: %v", p.ID, err)
		}
		fmt.Printf("%-12s %-10s %s\n", p.ID, p.Role, token)
	}

	slog.Info("Seeding complete!")
}
