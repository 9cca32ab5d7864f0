package model

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment is a task owned by exactly one project.
type Assignment struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	ProjectID    uint             `gorm:"not null;index:idx_assignments_project_created,priority:1" json:"projectId"`
	Title        string           `gorm:"type:varchar(255);not null" json:"title"`
	Notes        *string          `gorm:"type:text" json:"notes"`
	AssigneeName *string          `gorm:"type:varchar(255);comment:free text, not a user reference" json:"assigneeName"`
	DueDate      *datatypes.Date  `json:"dueDate"`
	Status       AssignmentStatus `gorm:"type:varchar(32);not null;default:TODO" json:"status"`
	CreatedAt    time.Time        `gorm:"index:idx_assignments_project_created,priority:2" json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// DisplayDate is the due date when set, otherwise the creation date.
func (a *Assignment) DisplayDate() time.Time {
	if a.DueDate != nil {
		return time.Time(*a.DueDate)
	}
	return a.CreatedAt
}
