package models

import "time"

// TaskInput holds the caller supplied fields of a new task.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	StoryPoints int        `json:"storyPoints"`
	AssignedTo  *User      `json:"assignedTo,omitempty"`
	SprintID    *string    `json:"sprintId,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	GitHubPR    *GitHubPR  `json:"githubPR,omitempty"`
}

// TaskUpdate is a partial task update. Nil pointers and unset Optionals leave
// the field untouched.
type TaskUpdate struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	Status      *TaskStatus         `json:"status,omitempty"`
	StoryPoints *int                `json:"storyPoints,omitempty"`
	AssignedTo  Optional[User]      `json:"assignedTo"`
	SprintID    Optional[string]    `json:"sprintId"`
	CompletedAt Optional[time.Time] `json:"completedAt"`
	GitHubPR    Optional[GitHubPR]  `json:"githubPR"`
}

// SprintInput holds the caller supplied fields of a new sprint.
type SprintInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
	WorkingDays int          `json:"workingDays"`
	Status      SprintStatus `json:"status"`
}

// SprintUpdate is a partial sprint update. Derived aggregates are not
// updatable.
type SprintUpdate struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
	WorkingDays *int          `json:"workingDays,omitempty"`
	Status      *SprintStatus `json:"status,omitempty"`
}

// UserUpdate is a partial user update.
type UserUpdate struct {
	Name          *string   `json:"name,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Avatar        *string   `json:"avatar,omitempty"`
	Role          *UserRole `json:"role,omitempty"`
	Login         *string   `json:"login,omitempty"`
	Bio           *string   `json:"bio,omitempty"`
	Company       *string   `json:"company,omitempty"`
	Location      *string   `json:"location,omitempty"`
	GitHubURL     *string   `json:"githubUrl,omitempty"`
	Contributions *int      `json:"contributions,omitempty"`
}

// NewPR describes a pull request to open for a task branch.
type NewPR struct {
	Title  string `json:"title"`
	Branch string `json:"branch"`
}
