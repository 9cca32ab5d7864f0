package service

import (
	"errors"
	"strconv"

	"projtrack/dao/model"
	"projtrack/logutils"
	"projtrack/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// parseID reads a positive numeric path parameter. It answers 400 and
// returns false when the parameter is malformed.
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		response.BadRequestError(c, "invalid "+param)
		return 0, false
	}
	return uint(id), true
}

// readBody decodes the request body with parse, answering 400 on failure.
func readBody[T any](c *gin.Context, parse func([]byte) (T, error)) (T, bool) {
	var zero T
	data, err := c.GetRawData()
	if err != nil {
		response.BadRequestError(c, "failed to read request body")
		return zero, false
	}
	v, err := parse(data)
	if err != nil {
		writeError(c, err, nil)
		return zero, false
	}
	return v, true
}

// writeError maps service errors onto responses. Anything unrecognized is a
// downstream failure and is logged with fields.
func writeError(c *gin.Context, err error, fields logutils.Fields) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationError(c, verr.Issues)
	case errors.Is(err, ErrProjectNotFound):
		response.NotFoundError(c, "project not found")
	case errors.Is(err, ErrAssignmentNotFound):
		response.NotFoundError(c, "assignment not found")
	case errors.Is(err, ErrContactNotFound):
		response.NotFoundError(c, "contact not found")
	case errors.Is(err, ErrFileNotFound):
		response.NotFoundError(c, "file not found")
	case errors.Is(err, ErrStorage):
		response.StorageUnavailableError(c, err, fields)
	default:
		response.InternalServerError(c, err, "request failed", fields)
	}
}

// ensureProject returns ErrProjectNotFound when no project has id.
func ensureProject(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&model.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
