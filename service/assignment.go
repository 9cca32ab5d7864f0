package service

import (
	"context"
	"errors"

	"projtrack/dao/model"
	"projtrack/logutils"
	"projtrack/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListAssignments returns the tasks of a project, newest first.
func ListAssignments(ctx context.Context, db *gorm.DB, projectID uint) ([]model.Assignment, error) {
	tasks := []model.Assignment{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProject(tx, projectID); err != nil {
			return err
		}
		return tx.Where("project_id = ?", projectID).Order("created_at DESC, id DESC").Find(&tasks).Error
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateAssignment adds a task to an existing project.
func CreateAssignment(ctx context.Context, db *gorm.DB, projectID uint, in *AssignmentFields) (*model.Assignment, error) {
	a := in.Model(projectID)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProject(tx, projectID); err != nil {
			return err
		}
		return tx.Create(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func UpdateAssignment(ctx context.Context, db *gorm.DB, id uint, patch *AssignmentPatch) (*model.Assignment, error) {
	var a model.Assignment
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&a, id).Error; err != nil {
			return notFound(err, ErrAssignmentNotFound)
		}
		cols := patch.Columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&a).Updates(cols).Error; err != nil {
			return err
		}
		return tx.First(&a, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func DeleteAssignment(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&model.Assignment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

type AssignmentHandler struct {
	db *gorm.DB
}

func NewAssignmentHandler(db *gorm.DB) *AssignmentHandler {
	return &AssignmentHandler{db: db}
}

func (h *AssignmentHandler) Register(group *gin.RouterGroup) {
	group.GET("/projects/:id/assignments", h.List)
	group.POST("/projects/:id/assignments", h.Create)
	group.PATCH("/assignments/:id", h.Update)
	group.DELETE("/assignments/:id", h.Delete)
}

func (h *AssignmentHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	tasks, err := ListAssignments(c.Request.Context(), h.db, projectID)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": projectID})
		return
	}
	response.Success(c, tasks)
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	in, ok := readBody(c, ParseAssignmentInput)
	if !ok {
		return
	}
	a, err := CreateAssignment(c.Request.Context(), h.db, projectID, in)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": projectID})
		return
	}
	response.Created(c, a)
}

func (h *AssignmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	patch, ok := readBody(c, ParseAssignmentPatch)
	if !ok {
		return
	}
	a, err := UpdateAssignment(c.Request.Context(), h.db, id, patch)
	if err != nil {
		writeError(c, err, logutils.Fields{"assignment_id": id})
		return
	}
	response.Success(c, a)
}

func (h *AssignmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := DeleteAssignment(c.Request.Context(), h.db, id); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			response.GoneError(c, "assignment already gone")
			return
		}
		writeError(c, err, logutils.Fields{"assignment_id": id})
		return
	}
	response.NoContent(c)
}
