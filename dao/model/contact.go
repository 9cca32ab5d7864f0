package model

import "time"

type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"projectId"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(64);not null" json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}
