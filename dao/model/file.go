package model

import "time"

// ProjectFile is the metadata row of an attachment. The bytes live in blob
// storage under StoredName.
type ProjectFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"not null;index" json:"projectId"`
	OriginalName string    `gorm:"type:varchar(512);not null;comment:display name" json:"originalName"`
	StoredName   string    `gorm:"type:varchar(255);not null;uniqueIndex;comment:blob storage key" json:"storedName"`
	MimeType     string    `gorm:"type:varchar(255);not null" json:"mimeType"`
	Size         int64     `gorm:"not null" json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
