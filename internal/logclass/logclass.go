// Package logclass classifies stage executor output lines. Media tools such
// as downloaders and encoders write progress meters to stderr, so stderr text
// cannot be treated as failure wholesale; lines matching a known progress
// shape are informational and everything else is a potential error signal.
package logclass

import (
	"regexp"
	"strings"
)

// Kind is the classification of one output line.
type Kind string

const (
	// KindInfo marks progress or status chatter.
	KindInfo Kind = "info"
	// KindErrorSignal marks a line that looks like a real failure message.
	KindErrorSignal Kind = "error_signal"
)

// Event is one classified line of stage output.
type Event struct {
	Stage string
	Kind  Kind
	Text  string
}

// progressPatterns match the meters and counters common media tools emit.
var progressPatterns = []*regexp.Regexp{
	// percent meters: "42%", "42.7%", "[download]  42.7% of 10MiB"
	regexp.MustCompile(`\b\d{1,3}(?:\.\d+)?%`),
	// ffmpeg frame counters: "frame= 1024 fps= 30 ..."
	regexp.MustCompile(`\bframe=\s*\d+`),
	regexp.MustCompile(`\bfps=\s*\d+`),
	// transfer stats: "speed=1.2x", "ETA 00:12", "eta 3s"
	regexp.MustCompile(`\bspeed=\s*[\d.]+x?`),
	regexp.MustCompile(`(?i)\beta[ =:]+[\d:.a-z]+`),
	// elapsed/remaining timestamps: "time=00:01:23.45"
	regexp.MustCompile(`\btime=\d{2}:\d{2}:\d{2}`),
	// yt-dlp style section tags: "[download]", "[ExtractAudio]"
	regexp.MustCompile(`^\s*\[[A-Za-z][\w ]*\]`),
	// whisper-style segment timestamps: "[00:01.000 --> 00:04.000]"
	regexp.MustCompile(`\[\d{2}:\d{2}(?:\.\d+)?\s*-->\s*\d{2}:\d{2}`),
}

// meterRunes are block-drawing characters used by textual progress bars.
const meterRunes = "█▓▒░▏▎▍▌▋▊▉|#="

// errorMarkers promote a line to an error signal even when a progress token
// also appears, e.g. "[download] ERROR: unable to fetch".
var errorMarkers = regexp.MustCompile(`(?i)\b(error|fatal|failed|failure|exception|traceback|panic)\b|\bERROR:`)

// Classify buckets one line of stage output. Blank lines are informational.
func Classify(line string) Kind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return KindInfo
	}
	if errorMarkers.MatchString(trimmed) {
		return KindErrorSignal
	}
	if looksLikeMeter(trimmed) {
		return KindInfo
	}
	for _, pattern := range progressPatterns {
		if pattern.MatchString(trimmed) {
			return KindInfo
		}
	}
	return KindErrorSignal
}

// looksLikeMeter reports whether a meaningful share of the line is progress
// bar glyphs.
func looksLikeMeter(line string) bool {
	var meter, total int
	for _, r := range line {
		if r == ' ' || r == '\t' {
			continue
		}
		total++
		if strings.ContainsRune(meterRunes, r) {
			meter++
		}
	}
	return total > 0 && meter*4 >= total
}

// NewEvent classifies a line and wraps it with its stage.
func NewEvent(stage, line string) Event {
	return Event{Stage: stage, Kind: Classify(line), Text: strings.TrimSpace(line)}
}
