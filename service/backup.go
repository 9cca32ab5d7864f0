package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"projtrack/dao/model"
	"projtrack/logutils"
	"projtrack/response"
	"projtrack/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SnapshotVersion is written into every export.
const SnapshotVersion = 1

// Snapshot is the full export of projects with their tasks and contacts.
// File metadata and content are not part of it.
type Snapshot struct {
	Version      int               `json:"version"`
	ExportedAt   time.Time         `json:"exportedAt"`
	ProjectCount int               `json:"projectCount"`
	Projects     []SnapshotProject `json:"projects"`
}

type SnapshotProject struct {
	model.Project
	Assignments []model.Assignment `json:"assignments"`
	Contacts    []model.Contact    `json:"contacts"`
}

// ExportSnapshot reads every project, oldest first.
func ExportSnapshot(ctx context.Context, db *gorm.DB) (*Snapshot, error) {
	var projects []model.Project
	err := db.WithContext(ctx).
		Preload("Assignments", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("Contacts", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Order("created_at ASC, id ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:      SnapshotVersion,
		ExportedAt:   time.Now().UTC(),
		ProjectCount: len(projects),
		Projects:     make([]SnapshotProject, len(projects)),
	}
	for i := range projects {
		sp := SnapshotProject{
			Project:     projects[i],
			Assignments: projects[i].Assignments,
			Contacts:    projects[i].Contacts,
		}
		if sp.Assignments == nil {
			sp.Assignments = []model.Assignment{}
		}
		if sp.Contacts == nil {
			sp.Contacts = []model.Contact{}
		}
		snap.Projects[i] = sp
	}
	return snap, nil
}

// RestorePlan is a fully validated import payload.
type RestorePlan struct {
	Projects []RestoreProject
}

type RestoreProject struct {
	Project     *ProjectInput
	Assignments []*AssignmentFields
}

// ParseSnapshot validates an import payload. Ids, timestamps and any "files"
// member are ignored. Nothing is written, so a rejected payload leaves the
// database untouched.
func ParseSnapshot(data []byte) (*RestorePlan, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return nil, err
	}
	if _, ok := r.raw["projects"]; !ok || r.blank("projects") {
		r.fail("projects", "is required")
		return nil, r.err()
	}
	items, ok := r.objects("projects")
	if !ok {
		return nil, r.err()
	}

	plan := &RestorePlan{Projects: make([]RestoreProject, 0, len(items))}
	for _, pr := range items {
		rp := RestoreProject{Project: readProjectInput(pr)}
		tasks, _ := pr.objects("assignments")
		for _, ar := range tasks {
			rp.Assignments = append(rp.Assignments, readAssignmentInput(ar))
		}
		contacts, _ := pr.objects("contacts")
		for _, cr := range contacts {
			rp.Project.Contacts = append(rp.Project.Contacts, readContactInput(cr))
		}
		plan.Projects = append(plan.Projects, rp)
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return plan, nil
}

// RestoreResult counts what an import wrote.
type RestoreResult struct {
	Projects    int `json:"projects"`
	Assignments int `json:"assignments"`
	Contacts    int `json:"contacts"`
	// released blob keys of the wiped file rows
	storedNames []string
}

// ImportSnapshot replaces every project with the plan's contents. The wipe
// and the inserts share one transaction, so any failure leaves the previous
// data in place.
func ImportSnapshot(ctx context.Context, db *gorm.DB, plan *RestorePlan) (*RestoreResult, error) {
	res := &RestoreResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ProjectFile{}).Pluck("stored_name", &res.storedNames).Error; err != nil {
			return err
		}
		// children go with their projects through ON DELETE CASCADE
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Project{}).Error; err != nil {
			return fmt.Errorf("wipe projects: %w", err)
		}

		for i, rp := range plan.Projects {
			p := rp.Project.Model()
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("insert project %d: %w", i, err)
			}
			res.Projects++
			for _, af := range rp.Assignments {
				a := af.Model(p.ID)
				if err := tx.Create(&a).Error; err != nil {
					return fmt.Errorf("insert assignment of project %d: %w", i, err)
				}
				res.Assignments++
			}
			if len(rp.Project.Contacts) == 0 {
				continue
			}
			contacts := make([]model.Contact, len(rp.Project.Contacts))
			for j, in := range rp.Project.Contacts {
				contacts[j] = in.Model(p.ID)
			}
			if err := tx.Create(&contacts).Error; err != nil {
				return fmt.Errorf("insert contacts of project %d: %w", i, err)
			}
			res.Contacts += len(contacts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Restore imports plan and then releases the blobs of the replaced files.
func Restore(ctx context.Context, db *gorm.DB, store storage.BlobStore, plan *RestorePlan) (*RestoreResult, error) {
	res, err := ImportSnapshot(ctx, db, plan)
	if err != nil {
		return nil, err
	}
	if store != nil {
		releaseBlobs(ctx, store, res.storedNames)
	}
	return res, nil
}

type BackupHandler struct {
	db    *gorm.DB
	store storage.BlobStore
}

func NewBackupHandler(db *gorm.DB, store storage.BlobStore) *BackupHandler {
	return &BackupHandler{db: db, store: store}
}

func (h *BackupHandler) Register(group *gin.RouterGroup) {
	group.GET("/backup", h.Export)
	group.POST("/backup", h.Import)
}

func (h *BackupHandler) Export(c *gin.Context) {
	snap, err := ExportSnapshot(c.Request.Context(), h.db)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="projtrack-backup-%s.json"`, snap.ExportedAt.Format("20060102-150405")))
	response.Success(c, snap)
}

func (h *BackupHandler) Import(c *gin.Context) {
	plan, ok := readBody(c, ParseSnapshot)
	if !ok {
		return
	}
	res, err := Restore(c.Request.Context(), h.db, h.store, plan)
	if err != nil {
		writeError(c, err, logutils.Fields{"projects": len(plan.Projects)})
		return
	}
	logutils.Log.WithFields(logutils.Fields{
		"projects":    res.Projects,
		"assignments": res.Assignments,
		"contacts":    res.Contacts,
	}).Info("backup restored")
	response.Success(c, res)
}

// MarshalSnapshot renders snap the way GET /backup does.
func MarshalSnapshot(snap *Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}
