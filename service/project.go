package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"projtrack/dao/model"
	"projtrack/logutils"
	"projtrack/response"
	"projtrack/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 200
	MaxListLimit     = 500
)

// ListParams selects one board page of projects.
type ListParams struct {
	ListKind model.ListKind
	Search   string
	Limit    int
}

// NewListParams reads list, search and limit from the query string. An
// unknown board falls back to the default one and limit is clamped.
func NewListParams(c *gin.Context) ListParams {
	p := ListParams{
		ListKind: model.ListKind(strings.ToUpper(strings.TrimSpace(c.Query("list")))),
		Search:   strings.TrimSpace(c.Query("search")),
		Limit:    DefaultListLimit,
	}
	if !p.ListKind.Valid() {
		p.ListKind = model.DefaultListKind
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			p.Limit = min(max(n, 1), MaxListLimit)
		}
	}
	return p
}

// ProjectListItem is a project annotated with its latest task.
type ProjectListItem struct {
	model.Project
	LastTaskTitle   *string    `json:"lastTaskTitle"`
	LastHandlerName *string    `json:"lastHandlerName"`
	LastTaskDate    *time.Time `json:"lastTaskDate"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListProjects returns one board, newest first, each project carrying the
// summary of its most recently created assignment.
func ListProjects(ctx context.Context, db *gorm.DB, p ListParams) ([]ProjectListItem, error) {
	q := db.WithContext(ctx).Where("list_kind = ?", string(p.ListKind))
	if p.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(p.Search)) + "%"
		q = q.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(developer) LIKE ? ESCAPE '\' OR LOWER(scope_value) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	var projects []model.Project
	if err := q.Order("created_at DESC, id DESC").Limit(p.Limit).Find(&projects).Error; err != nil {
		return nil, err
	}

	items := make([]ProjectListItem, len(projects))
	if len(projects) == 0 {
		return items, nil
	}
	ids := make([]uint, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	var tasks []model.Assignment
	if err := db.WithContext(ctx).
		Where("project_id IN ?", ids).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	latest := make(map[uint]*model.Assignment, len(projects))
	for i := range tasks {
		if _, seen := latest[tasks[i].ProjectID]; !seen {
			latest[tasks[i].ProjectID] = &tasks[i]
		}
	}

	for i := range projects {
		items[i].Project = projects[i]
		if a, ok := latest[projects[i].ID]; ok {
			date := a.DisplayDate()
			items[i].LastTaskTitle = &a.Title
			items[i].LastHandlerName = a.AssigneeName
			items[i].LastTaskDate = &date
		}
	}
	return items, nil
}

// GetProject loads a project with tasks newest first, contacts oldest first
// and files newest first.
func GetProject(ctx context.Context, db *gorm.DB, id uint) (*ProjectDetail, error) {
	var p model.Project
	err := db.WithContext(ctx).
		Preload("Assignments", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at DESC, id DESC") }).
		Preload("Contacts", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("Files", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at DESC, id DESC") }).
		First(&p, id).Error
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	return newProjectDetail(&p), nil
}

// CreateProject stores the project and its initial children in one
// transaction.
func CreateProject(ctx context.Context, db *gorm.DB, in *ProjectInput) (*ProjectDetail, error) {
	p := in.Model()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if in.Assignment != nil {
			a := in.Assignment.Model(p.ID)
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			p.Assignments = []model.Assignment{a}
		}
		if len(in.Contacts) > 0 {
			contacts := make([]model.Contact, len(in.Contacts))
			for i, c := range in.Contacts {
				contacts[i] = c.Model(p.ID)
			}
			if err := tx.Create(&contacts).Error; err != nil {
				return err
			}
			p.Contacts = contacts
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newProjectDetail(&p), nil
}

// UpdateProject applies patch. When scopeValue or execution is sent without
// remaining, remaining is derived again from the merged values.
func UpdateProject(ctx context.Context, db *gorm.DB, id uint, patch *ProjectPatch) (*model.Project, error) {
	var p model.Project
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err, ErrProjectNotFound)
		}
		cols := patch.Columns()
		if (patch.Has("scopeValue") || patch.Has("execution")) && !patch.Has("remaining") {
			merged := p
			if patch.Has("scopeValue") {
				merged.ScopeValue = patch.ScopeValue
			}
			if patch.Has("execution") {
				merged.Execution = patch.Execution
			}
			if merged.ApplyDerivedRemaining() {
				cols["remaining"] = *merged.Remaining
			}
		}
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(cols).Error; err != nil {
			return err
		}
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes the project row; the database cascades to its
// tasks, contacts and file rows. It returns the blob keys that belonged to
// the project so the caller can release them after commit.
func DeleteProject(ctx context.Context, db *gorm.DB, id uint) ([]string, error) {
	var storedNames []string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ProjectFile{}).
			Where("project_id = ?", id).
			Pluck("stored_name", &storedNames).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return storedNames, nil
}

// releaseBlobs deletes blobs whose rows are already gone. Failures are logged
// and otherwise ignored.
func releaseBlobs(ctx context.Context, store storage.BlobStore, storedNames []string) {
	for _, name := range storedNames {
		err := store.Delete(ctx, name)
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			logutils.Log.WithError(err).WithField("stored_name", name).Warn("failed to delete file content")
		}
	}
}

// ProjectDetail is a project with its children always rendered as arrays.
type ProjectDetail struct {
	model.Project
	Assignments []model.Assignment  `json:"assignments"`
	Contacts    []model.Contact     `json:"contacts"`
	Files       []model.ProjectFile `json:"files"`
}

func newProjectDetail(p *model.Project) *ProjectDetail {
	d := &ProjectDetail{
		Project:     *p,
		Assignments: p.Assignments,
		Contacts:    p.Contacts,
		Files:       p.Files,
	}
	if d.Assignments == nil {
		d.Assignments = []model.Assignment{}
	}
	if d.Contacts == nil {
		d.Contacts = []model.Contact{}
	}
	if d.Files == nil {
		d.Files = []model.ProjectFile{}
	}
	return d
}

type ProjectHandler struct {
	db    *gorm.DB
	store storage.BlobStore
}

func NewProjectHandler(db *gorm.DB, store storage.BlobStore) *ProjectHandler {
	return &ProjectHandler{db: db, store: store}
}

func (h *ProjectHandler) Register(group *gin.RouterGroup) {
	group.GET("/projects", h.List)
	group.POST("/projects", h.Create)
	group.GET("/projects/:id", h.Get)
	group.PATCH("/projects/:id", h.Update)
	group.DELETE("/projects/:id", h.Delete)
}

func (h *ProjectHandler) List(c *gin.Context) {
	items, err := ListProjects(c.Request.Context(), h.db, NewListParams(c))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, items)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := GetProject(c.Request.Context(), h.db, id)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": id})
		return
	}
	response.Success(c, p)
}

func (h *ProjectHandler) Create(c *gin.Context) {
	in, ok := readBody(c, ParseProjectInput)
	if !ok {
		return
	}
	p, err := CreateProject(c.Request.Context(), h.db, in)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Created(c, p)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	patch, ok := readBody(c, ParseProjectPatch)
	if !ok {
		return
	}
	p, err := UpdateProject(c.Request.Context(), h.db, id, patch)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": id})
		return
	}
	response.Success(c, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	storedNames, err := DeleteProject(c.Request.Context(), h.db, id)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": id})
		return
	}
	releaseBlobs(c.Request.Context(), h.store, storedNames)
	response.NoContent(c)
}
