package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"projtrack/dao/model"
	"projtrack/response"
	"projtrack/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(projectID int, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	body, ct := multipartBody(e.t, filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/projects/%d/files", projectID), body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// uploadFile uploads content and returns the stored name.
func uploadFile(t *testing.T, env *testEnv, projectID int, filename string, content []byte) string {
	t.Helper()
	w := env.upload(projectID, filename, "", content)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.ProjectFile](t, w).StoredName
}

func TestUploadDownloadDelete(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Files"})
	id := idOf(p)

	w := env.upload(id, "תוכנית.pdf", "", []byte("%PDF-1.7 some pdf bytes"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	meta := decode[model.ProjectFile](t, w)
	assert.Equal(t, "תוכנית.pdf", meta.OriginalName)
	assert.Equal(t, "application/pdf", meta.MimeType)
	assert.EqualValues(t, len("%PDF-1.7 some pdf bytes"), meta.Size)
	assert.Regexp(t, `^\d+-[0-9a-f]{16}\.pdf$`, meta.StoredName)

	list := decode[[]model.ProjectFile](t, env.do(http.MethodGet, fmt.Sprintf("/projects/%d/files", id), nil))
	require.Len(t, list, 1)
	assert.Equal(t, meta.ID, list[0].ID)

	w = env.do(http.MethodGet, fmt.Sprintf("/files/%d", meta.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.7 some pdf bytes", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t,
		`attachment; filename="______.pdf"; filename*=UTF-8''%D7%AA%D7%95%D7%9B%D7%A0%D7%99%D7%AA.pdf`,
		w.Header().Get("Content-Disposition"))

	w = env.do(http.MethodDelete, fmt.Sprintf("/files/%d", meta.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	_, err := env.store.Get(t.Context(), meta.StoredName)
	assert.Error(t, err)

	w = env.do(http.MethodDelete, fmt.Sprintf("/files/%d", meta.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.AlreadyGone, decode[response.ErrorBody](t, w).Code)
}

func TestUploadRecoversMojibakeName(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Mojibake"})

	// UTF-8 bytes of "חוזה.txt" read back as Latin-1
	var misread []rune
	for _, b := range []byte("חוזה.txt") {
		misread = append(misread, rune(b))
	}
	w := env.upload(idOf(p), string(misread), "text/plain", []byte("contract"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	meta := decode[model.ProjectFile](t, w)
	assert.Equal(t, "חוזה.txt", meta.OriginalName)
	assert.Equal(t, "text/plain", meta.MimeType)
}

func TestUploadTooLargeCreatesNothing(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Big"})

	w := env.upload(idOf(p), "big.bin", "application/octet-stream", bytes.Repeat([]byte{'x'}, 1<<20+1))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, response.PayloadTooLarge, decode[response.ErrorBody](t, w).Code)

	var count int64
	require.NoError(t, env.db.Model(&model.ProjectFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUploadErrors(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Edge"})

	assert.Equal(t, http.StatusNotFound, env.upload(999, "a.txt", "", []byte("a")).Code)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/projects/%d/files", idOf(p)), http.NoBody)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set("Authorization", "Bearer "+env.token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingStore struct{}

func (failingStore) Put(_ context.Context, _ string, _ io.Reader, _ int64, _ string) error {
	return errors.New("bucket offline")
}

func (failingStore) Get(_ context.Context, _ string) (*storage.Object, error) {
	return nil, errors.New("bucket offline")
}

func (failingStore) Delete(_ context.Context, _ string) error {
	return errors.New("bucket offline")
}

func TestSaveFileStorageFailureLeavesNoRow(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Offline"})

	_, err := SaveFile(t.Context(), env.db, failingStore{}, uint(idOf(p)), Upload{
		Filename: "a.txt",
		Size:     1,
		Body:     bytes.NewReader([]byte("a")),
	})
	require.ErrorIs(t, err, ErrStorage)

	var count int64
	require.NoError(t, env.db.Model(&model.ProjectFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteFileSurvivesStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Cleanup"})
	uploadFile(t, env, idOf(p), "notes.txt", []byte("hello"))

	var meta model.ProjectFile
	require.NoError(t, env.db.First(&meta).Error)
	require.NoError(t, DeleteFile(t.Context(), env.db, failingStore{}, meta.ID))

	var count int64
	require.NoError(t, env.db.Model(&model.ProjectFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDownloadMissingContent(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Lost"})
	stored := uploadFile(t, env, idOf(p), "lost.txt", []byte("gone soon"))
	require.NoError(t, env.store.Delete(t.Context(), stored))

	var meta model.ProjectFile
	require.NoError(t, env.db.First(&meta).Error)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, fmt.Sprintf("/files/%d", meta.ID), nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/files/abc", nil).Code)
}
