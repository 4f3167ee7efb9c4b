package main

import (
	"strings"
	"testing"
	"time"
)

func TestStageLabel(t *testing.T) {
	cases := map[string]string{
		"download":      "Download",
		"transcribe":    "Transcribe",
		"scrape_images": "Scrape Images",
		"render":        "Render",
		"":              "-",
	}
	for input, want := range cases {
		if got := stageLabel(input); got != want {
			t.Errorf("stageLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		minutes float64
		want    string
	}{
		{0, "-"},
		{0.4, "<1 min"},
		{12, "12 min"},
		{59.6, "60 min"},
		{90, "1h 30m"},
		{125, "2h 05m"},
	}
	for _, tc := range cases {
		if got := formatMinutes(tc.minutes); got != tc.want {
			t.Errorf("formatMinutes(%v) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("a very long progress message", 10); got != "a very ..." {
		t.Fatalf("truncate long = %q", got)
	}
}

func TestFormatAgeZeroTime(t *testing.T) {
	if got := formatAge(time.Time{}); got != "-" {
		t.Fatalf("formatAge(zero) = %q", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"Job", "Status", "Links"},
		[][]string{{"abc123", "pending"}},
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
	if !strings.Contains(out, "abc123") || !strings.Contains(out, "pending") {
		t.Fatalf("table missing cells:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if width := len([]rune(line)); width != len([]rune(strings.Split(out, "\n")[0])) {
			t.Fatalf("ragged table line (%d runes):\n%s", width, out)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Status", statusError, "boom", false)
	if !strings.Contains(plain, "[ERROR] boom") || !strings.HasPrefix(plain, statusIndent+"Status:") {
		t.Fatalf("plain line = %q", plain)
	}
	if strings.Contains(plain, ansiRed) {
		t.Fatalf("uncolored line carries escapes: %q", plain)
	}
	colored := renderStatusLine("Status", statusOK, "", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("colored line = %q", colored)
	}
	if !strings.Contains(colored, "[OK]") {
		t.Fatalf("colored line missing tag: %q", colored)
	}
}

func TestBuildStatusCountRowsOrdersByWorkflow(t *testing.T) {
	rows := buildStatusCountRows(map[string]int{
		"done":    3,
		"pending": 2,
		"error":   1,
	})
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "pending" || rows[1][0] != "error" || rows[2][0] != "done" {
		t.Fatalf("unexpected order: %v", rows)
	}
}
