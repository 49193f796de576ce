package models

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "backlog"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists the columns in board order.
var TaskStatuses = []TaskStatus{TaskStatusBacklog, TaskStatusInProgress, TaskStatusCompleted}

// Valid reports whether s is one of the board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusBacklog, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Label returns the column heading.
func (s TaskStatus) Label() string {
	switch s {
	case TaskStatusBacklog:
		return "Backlog"
	case TaskStatusInProgress:
		return "In progress"
	case TaskStatusCompleted:
		return "Completed"
	}
	return string(s)
}

// SprintStatus is the lifecycle stage of a sprint.
type SprintStatus string

const (
	SprintStatusPlanning  SprintStatus = "planning"
	SprintStatusActive    SprintStatus = "active"
	SprintStatusCompleted SprintStatus = "completed"
)

// Valid reports whether s is a known sprint stage.
func (s SprintStatus) Valid() bool {
	switch s {
	case SprintStatusPlanning, SprintStatusActive, SprintStatusCompleted:
		return true
	}
	return false
}

// UserRole is the team function of a board member.
type UserRole string

const (
	RoleDeveloper UserRole = "developer"
	RoleDesigner  UserRole = "designer"
	RolePM        UserRole = "pm"
	RoleQA        UserRole = "qa"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleDeveloper, RoleDesigner, RolePM, RoleQA:
		return true
	}
	return false
}

// PRStatus is the review state of a pull request.
type PRStatus string

const (
	PRStatusOpen   PRStatus = "open"
	PRStatusClosed PRStatus = "closed"
	PRStatusMerged PRStatus = "merged"
)

// Valid reports whether s is a known pull request state.
func (s PRStatus) Valid() bool {
	switch s {
	case PRStatusOpen, PRStatusClosed, PRStatusMerged:
		return true
	}
	return false
}

// SuggestedTaskStatus maps a pull request state to the column its task
// should move to.
func (s PRStatus) SuggestedTaskStatus() TaskStatus {
	switch s {
	case PRStatusOpen:
		return TaskStatusInProgress
	case PRStatusMerged:
		return TaskStatusCompleted
	}
	return TaskStatusBacklog
}

// Color returns the badge classes used by the front-end.
func (s PRStatus) Color() string {
	switch s {
	case PRStatusOpen:
		return "bg-green-100 text-green-800"
	case PRStatusMerged:
		return "bg-purple-100 text-purple-800"
	case PRStatusClosed:
		return "bg-red-100 text-red-800"
	}
	return "bg-gray-100 text-gray-800"
}

// Icon returns the badge glyph used by the front-end.
func (s PRStatus) Icon() string {
	switch s {
	case PRStatusOpen:
		return "🔄"
	case PRStatusMerged:
		return "✅"
	case PRStatusClosed:
		return "❌"
	}
	return "📝"
}

// Label returns a display name for the status.
func (s PRStatus) Label() string {
	switch s {
	case PRStatusOpen:
		return "Open"
	case PRStatusMerged:
		return "Merged"
	case PRStatusClosed:
		return "Closed"
	}
	return string(s)
}
