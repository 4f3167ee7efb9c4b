// Package plan computes which pipeline stages a job still needs. Resume and
// fresh runs go through the same computation: stages whose artifacts already
// exist are skipped, never redone.
package plan

import (
	"reelsmith/internal/job"
)

// MissingStages returns the stages a job still needs, in pipeline order.
// An empty result means the job is complete as it stands. A job with no
// links has nothing to do and is trivially complete.
func MissingStages(j *job.Job, minImages int) []string {
	if j == nil || len(j.Links) == 0 {
		return nil
	}
	if minImages < 0 {
		minImages = 0
	}

	needed := make(map[string]bool, 4)

	for _, link := range j.Links {
		if _, ok := j.Artifacts.MediaFor(link.URL); !ok {
			needed[job.StageDownload] = true
		}
		if link.WantTranscript {
			if _, ok := j.Artifacts.TranscriptFor(link.URL); !ok {
				needed[job.StageTranscribe] = true
			}
		}
	}

	if wantsImages(j) && len(j.Artifacts.Images) < minImages {
		needed[job.StageScrape] = true
	}

	if !j.Artifacts.Render.Complete() {
		needed[job.StageRender] = true
	}

	var stages []string
	for _, stage := range job.StageOrder() {
		if needed[stage] {
			stages = append(stages, stage)
		}
	}
	return stages
}

// Complete reports whether nothing remains to do for the job.
func Complete(j *job.Job, minImages int) bool {
	return len(MissingStages(j, minImages)) == 0
}

func wantsImages(j *job.Job) bool {
	for _, link := range j.Links {
		if link.WantImages {
			return true
		}
	}
	return false
}
