package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/content"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// setupTestDB returns a gorm DB backed by sqlmock speaking the postgres dialect.
func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, sqlMock
}

// setupSQLiteDB returns a migrated in-memory database. A single connection
// keeps every statement on the same memory database.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.WorkflowDefinition{},
		&model.ApprovalRequest{},
		&content.Item{},
		&auth.Department{},
	))
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_requests_active_content
		ON approval_requests (content_type, content_id)
		WHERE overall_status IN ('pending', 'in_progress') AND deleted_at IS NULL`).Error)
	return db
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func principal(id, role, department, college string) *auth.Principal {
	p := &auth.Principal{ID: id, Role: role}
	if department != "" {
		p.DepartmentID = strPtr(department)
	}
	if college != "" {
		p.CollegeID = strPtr(college)
	}
	return p
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

// MockContentProvider
type MockContentProvider struct {
	mock.Mock
}

func (m *MockContentProvider) GetOwner(ctx context.Context, contentType model.ContentType, contentID string) (string, error) {
	args := m.Called(ctx, contentType, contentID)
	return args.String(0), args.Error(1)
}

func (m *MockContentProvider) SetApprovalStateInTx(ctx context.Context, tx *gorm.DB, contentType model.ContentType, contentID string, state model.ContentApprovalState) error {
	args := m.Called(ctx, tx, contentType, contentID, state)
	return args.Error(0)
}

// MockDirectoryProvider
type MockDirectoryProvider struct {
	mock.Mock
}

func (m *MockDirectoryProvider) CollegeForDepartment(ctx context.Context, departmentID string) (string, error) {
	args := m.Called(ctx, departmentID)
	return args.String(0), args.Error(1)
}

// recordingPublisher collects published events synchronously.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []model.ApprovalEvent
	onEvent func(model.ApprovalEvent) error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.ApprovalEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	hook := p.onEvent
	p.mu.Unlock()
	if hook != nil {
		return hook(event)
	}
	return nil
}

func (p *recordingPublisher) Events() []model.ApprovalEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ApprovalEvent(nil), p.events...)
}
