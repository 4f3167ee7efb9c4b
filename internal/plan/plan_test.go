package plan

import (
	"reflect"
	"testing"
	"time"

	"reelsmith/internal/job"
)

func newJob(links []job.Link) *job.Job {
	return job.New(links, job.SettingsSnapshot{MinImages: 15}, time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))
}

func TestMissingStagesFreshJob(t *testing.T) {
	j := newJob([]job.Link{
		{URL: "https://youtube.com/watch?v=a", WantTranscript: true, WantImages: true},
		{URL: "https://tiktok.com/@u/video/1", WantTranscript: true, WantImages: true},
	})

	got := MissingStages(j, 15)
	want := []string{job.StageDownload, job.StageTranscribe, job.StageScrape, job.StageRender}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingStages = %v, want %v", got, want)
	}
}

func TestMissingStagesNoFlags(t *testing.T) {
	// Three plain links that want neither transcripts nor images still need
	// downloading and rendering.
	j := newJob([]job.Link{
		{URL: "https://youtube.com/watch?v=a"},
		{URL: "https://youtube.com/watch?v=b"},
		{URL: "https://youtube.com/watch?v=c"},
	})

	got := MissingStages(j, 15)
	want := []string{job.StageDownload, job.StageRender}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingStages = %v, want %v", got, want)
	}
}

func TestMissingStagesPartialArtifacts(t *testing.T) {
	j := newJob([]job.Link{
		{URL: "https://youtube.com/watch?v=a", WantTranscript: true, WantImages: true},
		{URL: "https://youtube.com/watch?v=b", WantTranscript: true, WantImages: true},
	})
	j.Artifacts.Download = []job.Media{
		{URL: "https://youtube.com/watch?v=a", Path: "/j/downloads/a.mp4", Platform: "youtube"},
		{URL: "https://youtube.com/watch?v=b", Path: "/j/downloads/b.mp4", Platform: "youtube"},
	}
	j.Artifacts.Transcripts = map[string]string{
		"https://youtube.com/watch?v=a": "/j/srt/a.srt",
	}

	got := MissingStages(j, 15)
	want := []string{job.StageTranscribe, job.StageScrape, job.StageRender}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingStages = %v, want %v", got, want)
	}
}

func TestMissingStagesImageThreshold(t *testing.T) {
	j := newJob([]job.Link{{URL: "https://youtube.com/watch?v=a", WantImages: true}})
	j.Artifacts.Download = []job.Media{{URL: "https://youtube.com/watch?v=a", Path: "/j/downloads/a.mp4"}}
	j.Artifacts.Images = make([]string, 14)

	got := MissingStages(j, 15)
	want := []string{job.StageScrape, job.StageRender}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("14 images below threshold: MissingStages = %v, want %v", got, want)
	}

	j.Artifacts.Images = make([]string, 15)
	got = MissingStages(j, 15)
	want = []string{job.StageRender}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("15 images meets threshold: MissingStages = %v, want %v", got, want)
	}
}

func TestMissingStagesCompleteJob(t *testing.T) {
	j := newJob([]job.Link{{URL: "https://youtube.com/watch?v=a", WantTranscript: true, WantImages: true}})
	j.Artifacts.Download = []job.Media{{URL: "https://youtube.com/watch?v=a", Path: "/j/downloads/a.mp4"}}
	j.Artifacts.Transcripts = map[string]string{"https://youtube.com/watch?v=a": "/j/srt/a.srt"}
	j.Artifacts.Images = make([]string, 15)
	j.Artifacts.Render = job.Outputs{
		Landscape: "/j/renders/output_landscape.mp4",
		Portrait:  "/j/renders/output_portrait.mp4",
		Montage:   "/j/renders/output_montage.mp4",
	}

	if got := MissingStages(j, 15); len(got) != 0 {
		t.Fatalf("complete job should need nothing, got %v", got)
	}
	if !Complete(j, 15) {
		t.Fatal("Complete should report true")
	}
}

func TestMissingStagesEmptyLinks(t *testing.T) {
	j := newJob(nil)
	if got := MissingStages(j, 15); len(got) != 0 {
		t.Fatalf("empty links job should be trivially complete, got %v", got)
	}
}

func TestMissingStagesIdempotent(t *testing.T) {
	j := newJob([]job.Link{{URL: "https://youtube.com/watch?v=a", WantTranscript: true}})
	first := MissingStages(j, 15)
	second := MissingStages(j, 15)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("plan not stable: %v vs %v", first, second)
	}
}

func TestMissingStagesPartialRenderOutputs(t *testing.T) {
	j := newJob([]job.Link{{URL: "https://youtube.com/watch?v=a"}})
	j.Artifacts.Download = []job.Media{{URL: "https://youtube.com/watch?v=a", Path: "/j/downloads/a.mp4"}}
	j.Artifacts.Render = job.Outputs{Landscape: "/j/renders/output_landscape.mp4"}

	got := MissingStages(j, 15)
	want := []string{job.StageRender}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("missing portrait/montage should require render: %v", got)
	}
}
