package query

import (
	"fmt"

	"projtrack/dao/model"
	"projtrack/logutils"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrations lists schema changes made after the initial schema. A fresh
// database gets the current schema from InitSchema and all IDs recorded.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			// fill remaining for rows imported before it was derived on write
			ID: "202410150001",
			Migrate: func(tx *gorm.DB) error {
				var projects []model.Project
				err := tx.Where("remaining IS NULL AND scope_value IS NOT NULL AND execution IS NOT NULL").
					Find(&projects).Error
				if err != nil {
					return err
				}
				for i := range projects {
					p := &projects[i]
					if !p.ApplyDerivedRemaining() {
						continue
					}
					if err := tx.Model(p).UpdateColumn("remaining", p.Remaining).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(*gorm.DB) error {
				return nil
			},
		},
	}
}

// Migrate brings db to the current schema.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())

	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&model.Project{},
			&model.Assignment{},
			&model.Contact{},
			&model.ProjectFile{},
		)
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("could not migrate: %w", err)
	}
	logutils.Log.Info("database migrated")
	return nil
}
