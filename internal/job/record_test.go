package job

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	original := New([]Link{
		{URL: "https://youtube.com/watch?v=abc", WantTranscript: true, WantImages: true},
		{URL: "https://tiktok.com/@u/video/1", WantTranscript: false, WantImages: false},
	}, SettingsSnapshot{MinImages: 15, WhisperModel: "base", UseGPU: true}, created)
	original.Artifacts.Download = []Media{{URL: "https://youtube.com/watch?v=abc", Path: "/jobs/x/downloads/abc.mp4", Platform: "youtube"}}
	original.Artifacts.Transcripts = map[string]string{"https://youtube.com/watch?v=abc": "/jobs/x/srt/abc.srt"}
	original.Artifacts.Keywords = []string{"b-roll", "footage"}
	original.Artifacts.Render = Outputs{Landscape: "/jobs/x/renders/output_landscape.mp4"}
	original.AppendError("scrape_images: invoke: exit status 3")

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.ID != original.ID {
		t.Fatalf("id = %q, want %q", decoded.ID, original.ID)
	}
	if len(decoded.Links) != 2 || decoded.Links[0].URL != original.Links[0].URL {
		t.Fatalf("links mismatch: %+v", decoded.Links)
	}
	if decoded.Links[1].WantTranscript {
		t.Fatal("per-link flag lost in round trip")
	}
	if got, ok := decoded.Artifacts.TranscriptFor("https://youtube.com/watch?v=abc"); !ok || got != "/jobs/x/srt/abc.srt" {
		t.Fatalf("transcript artifact lost: %q %v", got, ok)
	}
	if decoded.Artifacts.Render.Landscape != original.Artifacts.Render.Landscape {
		t.Fatal("render output lost")
	}
	if len(decoded.Errors) != 1 {
		t.Fatalf("errors = %v", decoded.Errors)
	}
	if decoded.Settings != original.Settings {
		t.Fatalf("settings snapshot mismatch: %+v", decoded.Settings)
	}
}

func TestDecodeLegacyRecord(t *testing.T) {
	// Record shape written by the original desktop application.
	legacy := `{
	  "id": "20250103-090000-job",
	  "status": "processing",
	  "progress": 40,
	  "generateSrt": true,
	  "links": ["https://tiktok.com/@u/video/9", "https://youtube.com/watch?v=zz"],
	  "downloadedVideos": [
	    {"url": "https://tiktok.com/@u/video/9", "path": "/out/j/downloads/clip9.mp4", "platform": "tiktok"}
	  ],
	  "srtFiles": ["/out/j/srt/clip9.srt"],
	  "keywords": ["city", "night"],
	  "images": ["/out/j/images/img1.jpg"],
	  "outputs": {"slideshow": "/out/j/renders/output_landscape.mp4", "youtube_mix": "/out/j/renders/output_youtube_mix.mp4"},
	  "error": "search failed for 'city'",
	  "someFutureField": {"ignored": true}
	}`

	j, err := Decode([]byte(legacy))
	if err != nil {
		t.Fatalf("Decode legacy: %v", err)
	}
	if j.Status != StatusRunning {
		t.Fatalf("status = %q, want running", j.Status)
	}
	if j.ProgressPercent != 40 {
		t.Fatalf("progress = %d", j.ProgressPercent)
	}
	if len(j.Links) != 2 || !j.Links[0].WantTranscript || !j.Links[0].WantImages {
		t.Fatalf("legacy links not migrated: %+v", j.Links)
	}
	if path, ok := j.Artifacts.TranscriptFor("https://tiktok.com/@u/video/9"); !ok || path != "/out/j/srt/clip9.srt" {
		t.Fatalf("legacy srt not keyed to link: %q %v", path, ok)
	}
	if j.Artifacts.Render.Landscape != "/out/j/renders/output_landscape.mp4" {
		t.Fatalf("legacy slideshow output not migrated: %+v", j.Artifacts.Render)
	}
	if j.Artifacts.Render.Montage != "/out/j/renders/output_youtube_mix.mp4" {
		t.Fatalf("legacy youtube_mix output not migrated: %+v", j.Artifacts.Render)
	}
	if len(j.Errors) != 1 || !strings.Contains(j.Errors[0], "search failed") {
		t.Fatalf("legacy error not migrated: %v", j.Errors)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Decode([]byte(`{"status": "pending"}`)); err == nil {
		t.Fatal("expected missing id error")
	}
	if _, err := Decode([]byte(`{"id": "x", "status": "exploded"}`)); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Pending "); !ok || status != StatusPending {
		t.Fatalf("ParseStatus = %q %v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("bogus status should not parse")
	}
}

func TestNewIDShape(t *testing.T) {
	now := time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC)
	id := NewID(now)
	if !strings.HasPrefix(id, "20260823-143005-") {
		t.Fatalf("id = %q", id)
	}
	if len(id) != len("20260823-143005-")+8 {
		t.Fatalf("id suffix length wrong: %q", id)
	}
}

func TestDetectPlatform(t *testing.T) {
	cases := map[string]string{
		"https://www.tiktok.com/@u/video/1": "tiktok",
		"https://youtu.be/abc":              "youtube",
		"https://instagram.com/reel/x":      "instagram",
		"https://x.com/u/status/1":          "twitter",
		"https://example.com/video":         "other",
	}
	for url, want := range cases {
		if got := DetectPlatform(url); got != want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestAppendErrorSkipsEmpty(t *testing.T) {
	j := &Job{}
	j.AppendError("  ")
	j.AppendError("real failure")
	if len(j.Errors) != 1 {
		t.Fatalf("errors = %v", j.Errors)
	}
}
