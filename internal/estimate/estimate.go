// Package estimate predicts how long a job will take, in minutes. The static
// cost model prices each remaining stage; when past jobs of similar size
// exist in the history, their mean duration is blended in at equal weight.
// Predictions never exceed the job timeout ceiling, since no job is allowed
// to run longer than that.
package estimate

import (
	"math"

	"reelsmith/internal/config"
	"reelsmith/internal/history"
	"reelsmith/internal/job"
	"reelsmith/internal/plan"
)

// Estimate predicts the remaining runtime of a job in minutes. Stages whose
// artifacts already exist cost nothing. capMinutes is the job timeout
// ceiling; a non-positive cap disables capping.
func Estimate(j *job.Job, entries []history.Entry, cfg config.Estimator, capMinutes float64) float64 {
	model := modelMinutes(j, cfg)

	if blended, ok := historyMean(j.LinkCount(), entries, cfg.HistoryTolerance); ok {
		model = (model + blended) / 2
	}

	if capMinutes > 0 && model > capMinutes {
		model = capMinutes
	}
	if model < 0 {
		model = 0
	}
	return model
}

// modelMinutes prices the job's remaining stages from the static constants.
func modelMinutes(j *job.Job, cfg config.Estimator) float64 {
	if j == nil || len(j.Links) == 0 {
		return 0
	}
	minImages := j.Settings.MinImages
	remaining := plan.MissingStages(j, minImages)

	var total float64
	linkCount := float64(len(j.Links))
	for _, stage := range remaining {
		switch stage {
		case job.StageDownload:
			total += cfg.DownloadPerLink * linkCount
		case job.StageTranscribe:
			total += cfg.TranscribePerLink * float64(transcriptLinks(j))
		case job.StageScrape:
			total += cfg.ScrapePerImage * float64(imagesNeeded(j, minImages))
		case job.StageRender:
			total += renderMinutes(renderImageCount(j, minImages, remaining), cfg)
		}
	}
	return total
}

// imagesNeeded is how many images scraping still has to fetch.
func imagesNeeded(j *job.Job, minImages int) int {
	needed := minImages - len(j.Artifacts.Images)
	if needed < 0 {
		return 0
	}
	return needed
}

// renderImageCount is the number of images render will compose: what is on
// disk already, topped up to the scrape target when scraping is still ahead.
func renderImageCount(j *job.Job, minImages int, remaining []string) int {
	count := len(j.Artifacts.Images)
	for _, stage := range remaining {
		if stage == job.StageScrape && count < minImages {
			count = minImages
		}
	}
	return count
}

// renderMinutes prices the render stage: a base cost plus a per-image cost,
// clamped to the configured floor and ceiling.
func renderMinutes(imageCount int, cfg config.Estimator) float64 {
	cost := cfg.RenderBase + cfg.RenderPerImage*float64(imageCount)
	if cfg.RenderMin > 0 && cost < cfg.RenderMin {
		cost = cfg.RenderMin
	}
	if cfg.RenderMax > 0 && cost > cfg.RenderMax {
		cost = cfg.RenderMax
	}
	return cost
}

// historyMean averages the durations of past jobs whose link count is within
// the tolerance of the given count. It reports false when no entry qualifies.
func historyMean(linkCount int, entries []history.Entry, tolerance int) (float64, bool) {
	if tolerance < 0 {
		tolerance = 0
	}
	var sum float64
	var n int
	for _, entry := range entries {
		if math.Abs(float64(entry.LinkCount-linkCount)) <= float64(tolerance) {
			sum += entry.DurationMinutes
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func transcriptLinks(j *job.Job) int {
	var n int
	for _, link := range j.Links {
		if link.WantTranscript {
			n++
		}
	}
	return n
}
