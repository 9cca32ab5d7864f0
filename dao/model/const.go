package model

// ListKind is the board a project is shown on.
type ListKind string

const (
	ListNegotiation ListKind = "NEGOTIATION"
	ListSigned      ListKind = "SIGNED"
	ListArchive     ListKind = "ARCHIVE"
)

// DefaultListKind is used when a list query names no valid board.
const DefaultListKind = ListNegotiation

func (k ListKind) Valid() bool {
	switch k {
	case ListNegotiation, ListSigned, ListArchive:
		return true
	}
	return false
}

// ProjectStatus is the lifecycle stage of a project within its board.
type ProjectStatus string

const (
	StatusActive     ProjectStatus = "ACTIVE"
	StatusOnHold     ProjectStatus = "ON_HOLD"
	StatusCompleted  ProjectStatus = "COMPLETED"
	StatusQuoteGiven ProjectStatus = "QUOTE_GIVEN"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusActive, StatusOnHold, StatusCompleted, StatusQuoteGiven:
		return true
	}
	return false
}

// AssignmentStatus is the progress of a task.
type AssignmentStatus string

const (
	AssignmentTodo       AssignmentStatus = "TODO"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentDone       AssignmentStatus = "DONE"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentTodo, AssignmentInProgress, AssignmentDone:
		return true
	}
	return false
}

// MinPhoneLength is the shortest phone number a contact may carry.
const MinPhoneLength = 6
