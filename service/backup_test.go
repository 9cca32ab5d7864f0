package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"projtrack/dao/model"
	"projtrack/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBackupData(env *testEnv) {
	env.createProject(map[string]any{
		"name":       "Alpha",
		"developer":  "Acme",
		"listKind":   "SIGNED",
		"status":     "COMPLETED",
		"scopeValue": "₪500,000",
		"execution":  50,
		"assignment": map[string]any{"title": "inspect", "dueDate": "2024-09-01", "status": "DONE"},
		"contacts":   []map[string]any{{"name": "Ron", "phone": "0521112222"}},
	})
	env.createProject(map[string]any{"name": "Beta", "standard": "A;B", "units": 12})
}

type projectSummary struct {
	Name       string
	Developer  *string
	ListKind   model.ListKind
	Status     model.ProjectStatus
	ScopeValue *string
	Execution  *int
	Remaining  *string
	Tasks      int
	Contacts   int
}

func summarize(snap Snapshot) []projectSummary {
	out := make([]projectSummary, len(snap.Projects))
	for i, p := range snap.Projects {
		out[i] = projectSummary{
			Name:       p.Name,
			Developer:  p.Developer,
			ListKind:   p.ListKind,
			Status:     p.Status,
			ScopeValue: p.ScopeValue,
			Execution:  p.Execution,
			Remaining:  p.Remaining,
			Tasks:      len(p.Assignments),
			Contacts:   len(p.Contacts),
		}
	}
	return out
}

func TestBackupRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	seedBackupData(env)

	w := env.do(http.MethodGet, "/backup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.String()
	before := decode[Snapshot](t, w)
	assert.Equal(t, SnapshotVersion, before.Version)
	assert.Equal(t, 2, before.ProjectCount)

	w = env.do(http.MethodPost, "/backup", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"projects": float64(2), "assignments": float64(1), "contacts": float64(1)},
		decode[map[string]any](t, w))

	after := decode[Snapshot](t, env.do(http.MethodGet, "/backup", nil))
	assert.Equal(t, before.ProjectCount, after.ProjectCount)
	assert.Equal(t, summarize(before), summarize(after))
	task := after.Projects[0].Assignments[0]
	assert.Equal(t, model.AssignmentDone, task.Status)
	assert.Equal(t, "2024-09-01", task.DisplayDate().Format("2006-01-02"))
}

func TestImportRejectsMalformedPayloadWithoutChanges(t *testing.T) {
	env := newTestEnv(t)
	seedBackupData(env)
	before := summarize(decode[Snapshot](t, env.do(http.MethodGet, "/backup", nil)))

	payloads := []string{
		`{"version":1}`,
		`{"projects":null}`,
		`{"projects":{"name":"x"}}`,
		`{"projects":[{"name":"ok"},{"developer":"no name"}]}`,
		`{"projects":[{"name":"bad","contacts":[{"name":"c","phone":"1"}]}]}`,
		`not json`,
	}
	for _, payload := range payloads {
		w := env.do(http.MethodPost, "/backup", payload)
		require.Equal(t, http.StatusBadRequest, w.Code, payload)
		assert.Equal(t, response.ValidationFailed, decode[response.ErrorBody](t, w).Code, payload)
	}

	after := summarize(decode[Snapshot](t, env.do(http.MethodGet, "/backup", nil)))
	assert.Equal(t, before, after)
}

func TestImportFailureRollsBackToPreviousData(t *testing.T) {
	env := newTestEnv(t)
	seedBackupData(env)
	before := summarize(decode[Snapshot](t, env.do(http.MethodGet, "/backup", nil)))

	plan, err := ParseSnapshot([]byte(`{"projects":[{"name":"New"}]}`))
	require.NoError(t, err)
	plan.Projects[0].Assignments = []*AssignmentFields{{Title: ptr("fails on insert")}}
	require.NoError(t, env.db.Exec(
		`CREATE TRIGGER reject_new BEFORE INSERT ON assignments BEGIN SELECT RAISE(ABORT, 'rejected'); END`).Error)

	_, err = ImportSnapshot(t.Context(), env.db, plan)
	require.Error(t, err)

	after := summarize(decode[Snapshot](t, env.do(http.MethodGet, "/backup", nil)))
	assert.Equal(t, before, after)
}

func TestImportIgnoresIdsTimestampsAndFiles(t *testing.T) {
	env := newTestEnv(t)
	payload := map[string]any{
		"version": 1,
		"projects": []map[string]any{{
			"id":          77,
			"name":        "Imported",
			"createdAt":   "2001-01-01T00:00:00Z",
			"files":       []map[string]any{{"storedName": "x"}},
			"assignments": []map[string]any{{"id": 5, "projectId": 77, "title": "carry"}},
		}},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	w := env.do(http.MethodPost, "/backup", string(data))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p model.Project
	require.NoError(t, env.db.Preload("Assignments").First(&p).Error)
	assert.Equal(t, "Imported", p.Name)
	assert.NotEqual(t, 2001, p.CreatedAt.Year())
	require.Len(t, p.Assignments, 1)
	assert.Equal(t, p.ID, p.Assignments[0].ProjectID)

	var files int64
	require.NoError(t, env.db.Model(&model.ProjectFile{}).Count(&files).Error)
	assert.Zero(t, files)
}

func TestImportReleasesReplacedFiles(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(map[string]any{"name": "Has files"})
	stored := uploadFile(t, env, idOf(p), "a.txt", []byte("a"))

	w := env.do(http.MethodPost, "/backup", `{"projects":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, err := env.store.Get(t.Context(), stored)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, fmt.Sprintf("/projects/%d", idOf(p)), nil).Code)
}

func ptr[T any](v T) *T {
	return &v
}
