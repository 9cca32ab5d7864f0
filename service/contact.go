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

// ListContacts returns the contacts of a project in the order they were added.
func ListContacts(ctx context.Context, db *gorm.DB, projectID uint) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProject(tx, projectID); err != nil {
			return err
		}
		return tx.Where("project_id = ?", projectID).Order("created_at ASC, id ASC").Find(&contacts).Error
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func CreateContact(ctx context.Context, db *gorm.DB, projectID uint, in *ContactInput) (*model.Contact, error) {
	contact := in.Model(projectID)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProject(tx, projectID); err != nil {
			return err
		}
		return tx.Create(&contact).Error
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func DeleteContact(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&model.Contact{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}

type ContactHandler struct {
	db *gorm.DB
}

func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{db: db}
}

func (h *ContactHandler) Register(group *gin.RouterGroup) {
	group.GET("/projects/:id/contacts", h.List)
	group.POST("/projects/:id/contacts", h.Create)
	group.DELETE("/contacts/:id", h.Delete)
}

func (h *ContactHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	contacts, err := ListContacts(c.Request.Context(), h.db, projectID)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": projectID})
		return
	}
	response.Success(c, contacts)
}

func (h *ContactHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	in, ok := readBody(c, ParseContactInput)
	if !ok {
		return
	}
	contact, err := CreateContact(c.Request.Context(), h.db, projectID, in)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": projectID})
		return
	}
	response.Created(c, contact)
}

func (h *ContactHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := DeleteContact(c.Request.Context(), h.db, id); err != nil {
		if errors.Is(err, ErrContactNotFound) {
			response.GoneError(c, "contact already gone")
			return
		}
		writeError(c, err, logutils.Fields{"contact_id": id})
		return
	}
	response.NoContent(c)
}
