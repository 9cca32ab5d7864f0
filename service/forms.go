package service

import (
	"fmt"
	"unicode/utf8"

	"projtrack/dao/model"

	"gorm.io/datatypes"
)

// ProjectFields are the writable columns of a project. A nil pointer means
// "not given" on create and "clear" on patch when the key was present.
type ProjectFields struct {
	Name       *string              `json:"name" binding:"omitnil,max=255"`
	Developer  *string              `json:"developer" binding:"omitnil,max=255"`
	ListKind   *model.ListKind      `json:"listKind" binding:"omitnil,oneof=NEGOTIATION SIGNED ARCHIVE"`
	Status     *model.ProjectStatus `json:"status" binding:"omitnil,oneof=ACTIVE ON_HOLD COMPLETED QUOTE_GIVEN"`
	Standard   *string              `json:"standard" binding:"omitnil,max=4000"`
	Units      *int                 `json:"units" binding:"omitnil,min=0"`
	ScopeValue *string              `json:"scopeValue" binding:"omitnil,max=255"`
	StartDate  *datatypes.Date      `json:"startDate"`
	Execution  *int                 `json:"execution" binding:"omitnil,min=0,max=100"`
	Remaining  *string              `json:"remaining" binding:"omitnil,max=255"`
}

func readProjectFields(r *fieldReader) ProjectFields {
	f := ProjectFields{
		Name:       r.text("name"),
		Developer:  r.text("developer"),
		ListKind:   enumText[model.ListKind](r, "listKind"),
		Status:     enumText[model.ProjectStatus](r, "status"),
		Standard:   r.text("standard"),
		Units:      r.integer("units"),
		ScopeValue: r.text("scopeValue"),
		StartDate:  r.date("startDate"),
		Execution:  r.integer("execution"),
		Remaining:  r.text("remaining"),
	}
	r.validate(&f)
	return f
}

// ProjectInput is a validated create request.
type ProjectInput struct {
	ProjectFields
	Assignment *AssignmentFields
	Contacts   []ContactInput
}

// Model builds the project row, filling defaults and deriving remaining
// unless it was supplied.
func (in *ProjectInput) Model() model.Project {
	p := model.Project{
		Name:       deref(in.Name),
		Developer:  in.Developer,
		ListKind:   model.DefaultListKind,
		Status:     model.StatusActive,
		Standard:   in.Standard,
		Units:      in.Units,
		ScopeValue: in.ScopeValue,
		StartDate:  in.StartDate,
		Execution:  in.Execution,
		Remaining:  in.Remaining,
	}
	if in.ListKind != nil {
		p.ListKind = *in.ListKind
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if p.Remaining == nil {
		p.ApplyDerivedRemaining()
	}
	return p
}

func readProjectInput(r *fieldReader) *ProjectInput {
	r.require("name")
	return &ProjectInput{ProjectFields: readProjectFields(r)}
}

// ParseProjectInput validates a create body: the project fields plus an
// optional "assignment" object and an optional "contacts" array.
func ParseProjectInput(data []byte) (*ProjectInput, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return nil, err
	}
	in := readProjectInput(r)
	if ar := r.object("assignment"); ar != nil {
		in.Assignment = readAssignmentInput(ar)
	}
	contacts, _ := r.objects("contacts")
	for _, cr := range contacts {
		in.Contacts = append(in.Contacts, readContactInput(cr))
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return in, nil
}

// ProjectPatch is a validated partial update.
type ProjectPatch struct {
	ProjectFields
	present map[string]bool
}

// Has reports whether key was sent, including as an explicit null.
func (p *ProjectPatch) Has(key string) bool {
	return p.present[key]
}

func ParseProjectPatch(data []byte) (*ProjectPatch, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"name", "listKind", "status"} {
		r.notEmpty(key)
	}
	patch := &ProjectPatch{ProjectFields: readProjectFields(r), present: presentKeys(r)}
	if err := r.err(); err != nil {
		return nil, err
	}
	return patch, nil
}

// Columns maps the present keys to column updates; nil clears a column.
func (p *ProjectPatch) Columns() map[string]any {
	cols := map[string]any{}
	set := func(key, column string, v any) {
		if p.Has(key) {
			cols[column] = v
		}
	}
	set("name", "name", nullable(p.Name))
	set("developer", "developer", nullable(p.Developer))
	set("listKind", "list_kind", nullableString(p.ListKind))
	set("status", "status", nullableString(p.Status))
	set("standard", "standard", nullable(p.Standard))
	set("units", "units", nullable(p.Units))
	set("scopeValue", "scope_value", nullable(p.ScopeValue))
	set("startDate", "start_date", nullable(p.StartDate))
	set("execution", "execution", nullable(p.Execution))
	set("remaining", "remaining", nullable(p.Remaining))
	return cols
}

// AssignmentFields are the writable columns of a task.
type AssignmentFields struct {
	Title        *string                 `json:"title" binding:"omitnil,max=255"`
	Notes        *string                 `json:"notes" binding:"omitnil,max=4000"`
	AssigneeName *string                 `json:"assigneeName" binding:"omitnil,max=255"`
	DueDate      *datatypes.Date         `json:"dueDate"`
	Status       *model.AssignmentStatus `json:"status" binding:"omitnil,oneof=TODO IN_PROGRESS DONE"`
}

func readAssignmentFields(r *fieldReader) *AssignmentFields {
	f := &AssignmentFields{
		Title:        r.text("title"),
		Notes:        r.text("notes"),
		AssigneeName: r.text("assigneeName"),
		DueDate:      r.date("dueDate"),
		Status:       enumText[model.AssignmentStatus](r, "status"),
	}
	r.validate(f)
	return f
}

func readAssignmentInput(r *fieldReader) *AssignmentFields {
	r.require("title")
	return readAssignmentFields(r)
}

// Model builds a task row owned by projectID.
func (f *AssignmentFields) Model(projectID uint) model.Assignment {
	a := model.Assignment{
		ProjectID:    projectID,
		Title:        deref(f.Title),
		Notes:        f.Notes,
		AssigneeName: f.AssigneeName,
		DueDate:      f.DueDate,
		Status:       model.AssignmentTodo,
	}
	if f.Status != nil {
		a.Status = *f.Status
	}
	return a
}

func ParseAssignmentInput(data []byte) (*AssignmentFields, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return nil, err
	}
	in := readAssignmentInput(r)
	if err := r.err(); err != nil {
		return nil, err
	}
	return in, nil
}

// AssignmentPatch is a validated partial task update.
type AssignmentPatch struct {
	AssignmentFields
	present map[string]bool
}

func ParseAssignmentPatch(data []byte) (*AssignmentPatch, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return nil, err
	}
	r.notEmpty("title")
	r.notEmpty("status")
	patch := &AssignmentPatch{AssignmentFields: *readAssignmentFields(r), present: presentKeys(r)}
	if err := r.err(); err != nil {
		return nil, err
	}
	return patch, nil
}

func (p *AssignmentPatch) Columns() map[string]any {
	cols := map[string]any{}
	set := func(key, column string, v any) {
		if p.present[key] {
			cols[column] = v
		}
	}
	set("title", "title", nullable(p.Title))
	set("notes", "notes", nullable(p.Notes))
	set("assigneeName", "assignee_name", nullable(p.AssigneeName))
	set("dueDate", "due_date", nullable(p.DueDate))
	set("status", "status", nullableString(p.Status))
	return cols
}

// ContactInput is a validated contact create request.
type ContactInput struct {
	Name  string `json:"name" binding:"required,max=255"`
	Phone string `json:"phone" binding:"required,max=64"`
}

func readContactInput(r *fieldReader) ContactInput {
	in := ContactInput{
		Name:  deref(r.text("name")),
		Phone: deref(r.text("phone")),
	}
	r.validate(&in)
	if in.Phone != "" && utf8.RuneCountInString(in.Phone) < model.MinPhoneLength {
		r.fail("phone", fmt.Sprintf("must be at least %d characters", model.MinPhoneLength))
	}
	return in
}

// Model builds a contact row owned by projectID.
func (in ContactInput) Model(projectID uint) model.Contact {
	return model.Contact{ProjectID: projectID, Name: in.Name, Phone: in.Phone}
}

func ParseContactInput(data []byte) (*ContactInput, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return nil, err
	}
	in := readContactInput(r)
	if err := r.err(); err != nil {
		return nil, err
	}
	return &in, nil
}

func presentKeys(r *fieldReader) map[string]bool {
	present := make(map[string]bool, len(r.raw))
	for key := range r.raw {
		present[key] = true
	}
	return present
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString[T ~string](p *T) any {
	if p == nil {
		return nil
	}
	return string(*p)
}
