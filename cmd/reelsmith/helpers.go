package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var stageTitle = cases.Title(language.Und)

// stageLabel turns a stage identifier like "scrape_images" into a display
// label like "Scrape Images".
func stageLabel(stage string) string {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return "-"
	}
	return stageTitle.String(strings.ReplaceAll(stage, "_", " "))
}

func formatMinutes(minutes float64) string {
	if minutes <= 0 {
		return "-"
	}
	if minutes < 1 {
		return "<1 min"
	}
	if minutes < 60 {
		return fmt.Sprintf("%.0f min", minutes)
	}
	return fmt.Sprintf("%dh %02dm", int(minutes)/60, int(minutes)%60)
}

func formatAge(since time.Time) string {
	if since.IsZero() {
		return "-"
	}
	age := time.Since(since)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh%02dm", int(age.Hours()), int(age.Minutes())%60)
	default:
		return since.Local().Format("2006-01-02 15:04")
	}
}

func truncate(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
