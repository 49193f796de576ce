package models

import "time"

// Task represents a single card on the kanban board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	StoryPoints int        `json:"storyPoints"`
	AssignedTo  *User      `json:"assignedTo,omitempty"`
	SprintID    *string    `json:"sprintId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	GitHubPR    *GitHubPR  `json:"githubPR,omitempty"`
}

// Clone returns a deep copy so embedded values never alias store state.
func (t Task) Clone() Task {
	out := t
	if t.AssignedTo != nil {
		u := *t.AssignedTo
		out.AssignedTo = &u
	}
	if t.SprintID != nil {
		id := *t.SprintID
		out.SprintID = &id
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	if t.GitHubPR != nil {
		pr := *t.GitHubPR
		out.GitHubPR = &pr
	}
	return out
}

// InSprint reports whether the task belongs to the given sprint.
func (t Task) InSprint(sprintID string) bool {
	return t.SprintID != nil && *t.SprintID == sprintID
}

// Sprint groups tasks into a fixed working period. The story point totals and
// the task id list are derived from the task collection.
type Sprint struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Description          string       `json:"description,omitempty"`
	StartDate            time.Time    `json:"startDate"`
	EndDate              time.Time    `json:"endDate"`
	WorkingDays          int          `json:"workingDays"`
	Status               SprintStatus `json:"status"`
	TotalStoryPoints     int          `json:"totalStoryPoints"`
	CompletedStoryPoints int          `json:"completedStoryPoints"`
	TaskIDs              []string     `json:"tasks"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

// Clone returns a copy with its own task id slice.
func (s Sprint) Clone() Sprint {
	out := s
	out.TaskIDs = append([]string(nil), s.TaskIDs...)
	return out
}

// User is a board member tasks can be assigned to. The GitHub fields are only
// populated for users sourced from the contributor API.
type User struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Avatar        string   `json:"avatar,omitempty"`
	Role          UserRole `json:"role"`
	Login         string   `json:"login,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	Company       string   `json:"company,omitempty"`
	Location      string   `json:"location,omitempty"`
	GitHubURL     string   `json:"githubUrl,omitempty"`
	Contributions int      `json:"contributions,omitempty"`
}

// GitHubPR is a pull request snapshot embedded in a task.
type GitHubPR struct {
	Number     int      `json:"number" yaml:"number"`
	Title      string   `json:"title" yaml:"title"`
	URL        string   `json:"url" yaml:"url"`
	Status     PRStatus `json:"status" yaml:"status"`
	Author     string   `json:"author" yaml:"author"`
	CreatedAt  string   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt  string   `json:"updatedAt" yaml:"updatedAt"`
	Branch     string   `json:"branch" yaml:"branch"`
	Repository string   `json:"repository" yaml:"repository"`
}

// RateLimit is the remaining request allowance of the GitHub API.
type RateLimit struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Reset     time.Time `json:"reset"`
}

// RepoInfo identifies the repository pull requests are read from.
type RepoInfo struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Mode  string `json:"mode"`
}
