package board

import (
	"time"

	"kanban/internal/calendar"
	"kanban/internal/models"
)

// BurndownPoint is one working day of a sprint burndown chart.
type BurndownPoint struct {
	Date            string  `json:"date"`
	IdealRemaining  float64 `json:"idealRemaining"`
	ActualRemaining int     `json:"actualRemaining"`
	Completed       int     `json:"completed"`
}

// Burndown computes, for each working day of the sprint, the ideal linear
// burn and the points actually left at the end of that day.
func Burndown(sp models.Sprint, tasks []models.Task) []BurndownPoint {
	var members []models.Task
	total := 0
	for _, t := range tasks {
		if t.InSprint(sp.ID) {
			members = append(members, t)
			total += t.StoryPoints
		}
	}

	days := calendar.WorkingDaysBetween(sp.StartDate, sp.EndDate)
	points := make([]BurndownPoint, 0, len(days))
	for i, day := range days {
		ideal := float64(total) - float64(total)*float64(i+1)/float64(len(days))

		dayEnd := calendar.EndOfDay(day)
		completed := 0
		for _, t := range members {
			if t.Status == models.TaskStatusCompleted && t.CompletedAt != nil && !t.CompletedAt.After(dayEnd) {
				completed += t.StoryPoints
			}
		}

		points = append(points, BurndownPoint{
			Date:            day.Format(time.DateOnly),
			IdealRemaining:  max(0, ideal),
			ActualRemaining: max(0, total-completed),
			Completed:       completed,
		})
	}
	return points
}

// SprintProgress summarizes elapsed working days of a sprint.
type SprintProgress struct {
	TotalDays     int     `json:"totalDays"`
	ElapsedDays   int     `json:"elapsedDays"`
	RemainingDays int     `json:"remainingDays"`
	Percent       float64 `json:"progressPercentage"`
}

// Progress reports how far into its working days the sprint is at now.
func Progress(sp models.Sprint, now time.Time) SprintProgress {
	total := sp.WorkingDays
	elapsed := 0
	if !now.Before(sp.StartDate) {
		elapsed = min(calendar.CountWorkingDays(sp.StartDate, now), total)
	}
	percent := 0.0
	if total > 0 {
		percent = min(100, float64(elapsed)/float64(total)*100)
	}
	return SprintProgress{
		TotalDays:     total,
		ElapsedDays:   elapsed,
		RemainingDays: max(0, total-elapsed),
		Percent:       percent,
	}
}
