package linksfile

import (
	"errors"
	"strings"
	"testing"

	"reelsmith/internal/services"
)

func TestParse(t *testing.T) {
	input := `# morning batch
https://youtube.com/watch?v=a
https://tiktok.com/@u/video/1 no-srt
https://instagram.com/reel/x no-images  # keep it lean

https://youtu.be/zz no-srt no-images
`
	links, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(links) != 4 {
		t.Fatalf("len(links) = %d", len(links))
	}
	if !links[0].WantTranscript || !links[0].WantImages {
		t.Fatalf("defaults wrong: %+v", links[0])
	}
	if links[1].WantTranscript {
		t.Fatalf("no-srt not honored: %+v", links[1])
	}
	if links[2].WantImages {
		t.Fatalf("no-images not honored: %+v", links[2])
	}
	if links[3].WantTranscript || links[3].WantImages {
		t.Fatalf("combined flags wrong: %+v", links[3])
	}
}

func TestParseRejectsNonURL(t *testing.T) {
	_, err := Parse(strings.NewReader("not-a-url\n"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	_, err := Parse(strings.NewReader("https://youtu.be/a turbo\n"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	links, err := Parse(strings.NewReader("# nothing here\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("links = %+v", links)
	}
}
