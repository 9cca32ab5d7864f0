package model

import (
	"time"

	"gorm.io/datatypes"
)

// Project is the central entity. Its assignments, contacts and files are
// removed by the database when the project row is deleted.
type Project struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"type:varchar(255);not null;comment:project name" json:"name"`
	Developer  *string         `gorm:"type:varchar(255);comment:developer company" json:"developer"`
	ListKind   ListKind        `gorm:"type:varchar(32);not null;default:NEGOTIATION;index:idx_projects_list_created,priority:1" json:"listKind"`
	Status     ProjectStatus   `gorm:"type:varchar(32);not null;default:ACTIVE" json:"status"`
	Standard   *string         `gorm:"type:text;comment:construction standard tokens and note" json:"standard"`
	Units      *int            `json:"units"`
	ScopeValue *string         `gorm:"type:varchar(255);comment:free-text scope or contract value" json:"scopeValue"`
	StartDate  *datatypes.Date `json:"startDate"`
	Execution  *int            `gorm:"comment:execution percentage 0-100" json:"execution"`
	Remaining  *string         `gorm:"type:varchar(255)" json:"remaining"`
	CreatedAt  time.Time       `gorm:"index:idx_projects_list_created,priority:2" json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`

	Assignments []Assignment  `gorm:"constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
	Contacts    []Contact     `gorm:"constraint:OnDelete:CASCADE" json:"contacts,omitempty"`
	Files       []ProjectFile `gorm:"constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

// ApplyDerivedRemaining sets Remaining from ScopeValue and Execution when
// both are present. It reports whether Remaining was changed.
func (p *Project) ApplyDerivedRemaining() bool {
	if p.ScopeValue == nil || p.Execution == nil {
		return false
	}
	remaining, ok := DeriveRemaining(*p.ScopeValue, *p.Execution)
	if !ok {
		return false
	}
	p.Remaining = &remaining
	return true
}
