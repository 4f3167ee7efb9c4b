package stageexec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"reelsmith/internal/job"
)

// Stage executors communicate results through the job folder layout alone:
// downloads/ holds one media file per link prefixed with the 1-based link
// ordinal ("001_title.mp4"), srt/ holds transcripts sharing the media file's
// stem, images/ holds scraped stills, and renders/ holds the three canonical
// outputs. CollectArtifacts reconciles that layout into the job record.

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// CollectArtifacts scans the job folder and merges discovered artifacts into
// the record. Existing entries are kept; collection only ever adds.
func CollectArtifacts(j *job.Job) error {
	if j == nil || j.FolderRef == "" {
		return fmt.Errorf("job has no folder reference")
	}
	if err := collectDownloads(j); err != nil {
		return err
	}
	if err := collectTranscripts(j); err != nil {
		return err
	}
	if err := collectImages(j); err != nil {
		return err
	}
	return collectRenders(j)
}

func collectDownloads(j *job.Job) error {
	files, err := listFiles(filepath.Join(j.FolderRef, "downloads"))
	if err != nil {
		return fmt.Errorf("scan downloads: %w", err)
	}
	for _, path := range files {
		index, ok := linkOrdinal(path)
		if !ok {
			// A single-link job needs no ordinal prefix.
			if len(j.Links) == 1 {
				index = 0
			} else {
				continue
			}
		}
		if index < 0 || index >= len(j.Links) {
			continue
		}
		url := j.Links[index].URL
		if _, exists := j.Artifacts.MediaFor(url); exists {
			continue
		}
		j.Artifacts.Download = append(j.Artifacts.Download, job.Media{
			URL:      url,
			Path:     path,
			Platform: job.DetectPlatform(url),
		})
	}
	return nil
}

func collectTranscripts(j *job.Job) error {
	files, err := listFiles(filepath.Join(j.FolderRef, "srt"))
	if err != nil {
		return fmt.Errorf("scan srt: %w", err)
	}
	for _, path := range files {
		if !strings.EqualFold(filepath.Ext(path), ".srt") {
			continue
		}
		stem := fileStem(path)
		for _, media := range j.Artifacts.Download {
			if fileStem(media.Path) != stem {
				continue
			}
			if _, exists := j.Artifacts.TranscriptFor(media.URL); exists {
				break
			}
			if j.Artifacts.Transcripts == nil {
				j.Artifacts.Transcripts = make(map[string]string)
			}
			j.Artifacts.Transcripts[media.URL] = path
			break
		}
	}
	return nil
}

func collectImages(j *job.Job) error {
	files, err := listFiles(filepath.Join(j.FolderRef, "images"))
	if err != nil {
		return fmt.Errorf("scan images: %w", err)
	}
	known := make(map[string]bool, len(j.Artifacts.Images))
	for _, existing := range j.Artifacts.Images {
		known[existing] = true
	}
	for _, path := range files {
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		if known[path] {
			continue
		}
		j.Artifacts.Images = append(j.Artifacts.Images, path)
	}
	return nil
}

func collectRenders(j *job.Job) error {
	dir := filepath.Join(j.FolderRef, "renders")
	assign := func(target *string, name string) {
		if *target != "" {
			return
		}
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Size() > 0 {
			*target = path
		}
	}
	assign(&j.Artifacts.Render.Landscape, "output_landscape.mp4")
	assign(&j.Artifacts.Render.Portrait, "output_portrait.mp4")
	assign(&j.Artifacts.Render.Montage, "output_montage.mp4")
	return nil
}

// linkOrdinal extracts the 1-based link ordinal from a "NNN_name.ext" file
// name, returning the 0-based index.
func linkOrdinal(path string) (int, bool) {
	base := filepath.Base(path)
	prefix, _, found := strings.Cut(base, "_")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
