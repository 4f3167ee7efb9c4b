// Package linksfile parses the plain-text submission format: one source URL
// per line with optional per-link flags, # starting a comment.
package linksfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"reelsmith/internal/job"
	"reelsmith/internal/services"
)

// Parse reads links with their flags. Each line is a URL followed by
// whitespace-separated flags; "no-srt" skips the transcript and "no-images"
// skips image scraping for that link. Both default to on.
func Parse(r io.Reader) ([]job.Link, error) {
	var links []job.Link
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		url := fields[0]
		if !strings.Contains(url, "://") {
			return nil, services.Wrap(services.ErrValidation, "", "parse",
				fmt.Sprintf("line %d: %q is not a URL", lineNo, url), nil)
		}
		link := job.Link{URL: url, WantTranscript: true, WantImages: true}
		for _, flag := range fields[1:] {
			switch strings.ToLower(flag) {
			case "no-srt", "nosrt":
				link.WantTranscript = false
			case "srt":
				link.WantTranscript = true
			case "no-images", "noimages", "no-img":
				link.WantImages = false
			case "images", "img":
				link.WantImages = true
			default:
				return nil, services.Wrap(services.ErrValidation, "", "parse",
					fmt.Sprintf("line %d: unknown flag %q", lineNo, flag), nil)
			}
		}
		links = append(links, link)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read links: %w", err)
	}
	return links, nil
}

// ParseFile parses a links file on disk.
func ParseFile(path string) ([]job.Link, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("open links file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}
