package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"projtrack/dao/model"
	"projtrack/logutils"
	"projtrack/response"
	"projtrack/storage"
	"projtrack/util"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// multipartSlack covers multipart headers and boundaries on top of the file.
const multipartSlack = 1 << 20

const defaultMimeType = "application/octet-stream"

// Upload is one received file waiting to be stored.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// SaveFile writes the upload to blob storage and then records its metadata.
// No row is created when the blob write fails.
func SaveFile(ctx context.Context, db *gorm.DB, store storage.BlobStore, projectID uint, up Upload) (*model.ProjectFile, error) {
	if err := ensureProject(db.WithContext(ctx), projectID); err != nil {
		return nil, err
	}

	meta := model.ProjectFile{
		ProjectID:    projectID,
		OriginalName: util.RecoverFilename(up.Filename),
		MimeType:     strings.TrimSpace(up.ContentType),
		Size:         up.Size,
	}
	meta.StoredName = util.NewStoredName(meta.OriginalName)
	if meta.MimeType == "" || meta.MimeType == defaultMimeType {
		meta.MimeType = sniffMimeType(up.Body)
	}

	if err := store.Put(ctx, meta.StoredName, up.Body, up.Size, meta.MimeType); err != nil {
		return nil, fmt.Errorf("%w: put %s: %w", ErrStorage, meta.StoredName, err)
	}
	if err := db.WithContext(ctx).Create(&meta).Error; err != nil {
		releaseBlobs(ctx, store, []string{meta.StoredName})
		return nil, err
	}
	return &meta, nil
}

func sniffMimeType(body io.ReadSeeker) string {
	mtype, err := mimetype.DetectReader(body)
	if _, seekErr := body.Seek(0, io.SeekStart); seekErr != nil || err != nil {
		return defaultMimeType
	}
	return mtype.String()
}

func ListFiles(ctx context.Context, db *gorm.DB, projectID uint) ([]model.ProjectFile, error) {
	files := []model.ProjectFile{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProject(tx, projectID); err != nil {
			return err
		}
		return tx.Where("project_id = ?", projectID).Order("created_at DESC, id DESC").Find(&files).Error
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// OpenFile resolves the metadata row and opens its content. The caller
// closes the returned object.
func OpenFile(ctx context.Context, db *gorm.DB, store storage.BlobStore, id uint) (*model.ProjectFile, *storage.Object, error) {
	var meta model.ProjectFile
	if err := db.WithContext(ctx).First(&meta, id).Error; err != nil {
		return nil, nil, notFound(err, ErrFileNotFound)
	}
	obj, err := store.Get(ctx, meta.StoredName)
	if errors.Is(err, storage.ErrObjectNotFound) {
		logutils.Log.WithFields(logutils.Fields{"file_id": id, "stored_name": meta.StoredName}).
			Warn("file content missing from storage")
		return nil, nil, ErrFileNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: get %s: %w", ErrStorage, meta.StoredName, err)
	}
	return &meta, obj, nil
}

// DeleteFile removes the content on a best-effort basis and then always
// removes the metadata row.
func DeleteFile(ctx context.Context, db *gorm.DB, store storage.BlobStore, id uint) error {
	var meta model.ProjectFile
	if err := db.WithContext(ctx).First(&meta, id).Error; err != nil {
		return notFound(err, ErrFileNotFound)
	}
	releaseBlobs(ctx, store, []string{meta.StoredName})
	res := db.WithContext(ctx).Delete(&model.ProjectFile{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

type FileHandler struct {
	db      *gorm.DB
	store   storage.BlobStore
	maxSize int64
}

func NewFileHandler(db *gorm.DB, store storage.BlobStore, maxSize int64) *FileHandler {
	return &FileHandler{db: db, store: store, maxSize: maxSize}
}

func (h *FileHandler) Register(group *gin.RouterGroup) {
	group.POST("/projects/:id/files", h.Upload)
	group.GET("/projects/:id/files", h.List)
	group.GET("/files/:fileId", h.Download)
	group.DELETE("/files/:fileId", h.Delete)
}

func (h *FileHandler) tooLarge(c *gin.Context) {
	response.HTTPError(c, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("file exceeds the %d MB limit", h.maxSize>>20), response.PayloadTooLarge)
}

func (h *FileHandler) Upload(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit := h.maxSize + multipartSlack
	if c.Request.ContentLength > limit {
		h.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.tooLarge(c)
		case errors.Is(err, http.ErrMissingFile):
			response.ValidationError(c, []response.Issue{{Field: "file", Message: "is required"}})
		default:
			response.BadRequestError(c, "invalid multipart body")
		}
		return
	}
	if fh.Size > h.maxSize {
		h.tooLarge(c)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalServerError(c, err, "failed to open upload", logutils.Fields{"project_id": projectID})
		return
	}
	defer f.Close()

	meta, err := SaveFile(c.Request.Context(), h.db, h.store, projectID, Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": projectID, "filename": fh.Filename})
		return
	}
	response.Created(c, meta)
}

func (h *FileHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	files, err := ListFiles(c.Request.Context(), h.db, projectID)
	if err != nil {
		writeError(c, err, logutils.Fields{"project_id": projectID})
		return
	}
	response.Success(c, files)
}

func (h *FileHandler) Download(c *gin.Context) {
	id, ok := parseID(c, "fileId")
	if !ok {
		return
	}
	meta, obj, err := OpenFile(c.Request.Context(), h.db, h.store, id)
	if err != nil {
		writeError(c, err, logutils.Fields{"file_id": id})
		return
	}
	defer obj.Reader.Close()

	contentType := meta.MimeType
	if contentType == "" {
		contentType = obj.ContentType
	}
	if contentType == "" {
		contentType = defaultMimeType
	}
	size := obj.Size
	if size <= 0 {
		size = meta.Size
	}
	c.DataFromReader(http.StatusOK, size, contentType, obj.Reader, map[string]string{
		"Content-Disposition": util.ContentDisposition(meta.OriginalName),
	})
}

func (h *FileHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "fileId")
	if !ok {
		return
	}
	if err := DeleteFile(c.Request.Context(), h.db, h.store, id); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			response.GoneError(c, "file already gone")
			return
		}
		writeError(c, err, logutils.Fields{"file_id": id})
		return
	}
	response.NoContent(c)
}
