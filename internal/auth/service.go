package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
)

// Department is a directory entry linking a department to its parent college.
type Department struct {
	ID        string `gorm:"type:varchar(100);column:id;primaryKey;not null" json:"id"`
	Name      string `gorm:"type:varchar(255);column:name;not null" json:"name"`
	CollegeID string `gorm:"type:varchar(100);column:college_id;not null;index" json:"collegeId"`
}

// TableName specifies the database table name for Department
func (d *Department) TableName() string {
	return "departments"
}

// DirectoryService resolves organizational relationships (department to college).
type DirectoryService struct {
	db *gorm.DB
}

// NewDirectoryService creates a new DirectoryService instance
func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{
		db: db,
	}
}

// CollegeForDepartment returns the parent college of a department.
// It is used when a submitter has no directly-assigned college.
func (ds *DirectoryService) CollegeForDepartment(ctx context.Context, departmentID string) (string, error) {
	if departmentID == "" {
		return "", apperr.Validation("department ID is empty")
	}

	var dept Department
	result := ds.db.WithContext(ctx).Where("id = ?", departmentID).First(&dept)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Debug("department not found", "department_id", departmentID)
			return "", apperr.NotFound("department %s not found", departmentID)
		}
		slog.Error("failed to fetch department from database",
			"department_id", departmentID,
			"error", result.Error,
		)
		return "", fmt.Errorf("failed to fetch department: %w", result.Error)
	}

	return dept.CollegeID, nil
}

// UpsertDepartment creates or updates a directory entry.
// Used when syncing the directory from the identity system and by the seed command.
func (ds *DirectoryService) UpsertDepartment(ctx context.Context, dept Department) error {
	if dept.ID == "" || dept.CollegeID == "" {
		return apperr.Validation("department ID and college ID are required")
	}

	result := ds.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "college_id"}),
	}).Create(&dept)
	if result.Error != nil {
		slog.Error("failed to upsert department",
			"department_id", dept.ID,
			"error", result.Error,
		)
		return fmt.Errorf("failed to upsert department: %w", result.Error)
	}

	slog.Debug("department upserted successfully", "department_id", dept.ID)
	return nil
}
