package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := fmt.Errorf("exit status 2")
	err := Wrap(ErrStageFailure, "render", "invoke", "executor exited", cause)

	if !errors.Is(err, ErrStageFailure) {
		t.Fatal("wrapped error should match its marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatal("wrapped error should not match unrelated markers")
	}
}

func TestDetailsClassification(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   Kind
		stage  string
		detail string
	}{
		{
			name:   "stage failure",
			err:    Wrap(ErrStageFailure, "download", "invoke", "exit status 1", nil),
			kind:   KindStageFailure,
			stage:  "download",
			detail: "download: invoke: exit status 1",
		},
		{
			name:   "timeout",
			err:    Wrap(ErrTimeout, "render", "", "exceeded 45m ceiling", nil),
			kind:   KindTimeout,
			stage:  "render",
			detail: "render: exceeded 45m ceiling",
		},
		{
			name: "untagged defaults to transient",
			err:  errors.New("boom"),
			kind: KindTransient,
		},
		{
			name: "nil marker defaults to transient",
			err:  Wrap(nil, "", "", "something", nil),
			kind: KindTransient,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			details := Details(tc.err)
			if details.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", details.Kind, tc.kind)
			}
			if tc.stage != "" && details.Stage != tc.stage {
				t.Fatalf("stage = %q, want %q", details.Stage, tc.stage)
			}
			if tc.detail != "" && details.Message != tc.detail {
				t.Fatalf("message = %q, want %q", details.Message, tc.detail)
			}
		})
	}
}

func TestDetailsNil(t *testing.T) {
	if got := Details(nil); got.Kind != KindTransient || got.Message != "" {
		t.Fatalf("Details(nil) = %+v", got)
	}
}
