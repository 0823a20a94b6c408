package objectstore

import (
	"context"
	"errors"
	"testing"

	"decent-ci/src/logger"
	"decent-ci/src/runner"
)

func TestUpload(t *testing.T) {
	fake := &runner.FakeRunner{}
	fake.On("upload.sh", runner.Result{Stdout: "uploading...\nhttps://bucket.example/run/cov\n"})

	u := NewScriptUploader("./upload.sh", fake, logger.NewSilentLogger())
	url, err := u.Upload(context.Background(), "bucket", "run-1", "/tmp/lcov-html", CategoryCoverage)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://bucket.example/run/cov" {
		t.Errorf("url = %q", url)
	}
	want := `"./upload.sh" "bucket" "run-1" "/tmp/lcov-html" "coverage"`
	if got := fake.Calls[0].Joined(); got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestUpload_Failures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		result runner.Result
	}{
		{name: "no script"},
		{name: "non-zero exit", script: "up", result: runner.Result{ExitCode: 3, Stderr: "denied"}},
		{name: "no url", script: "up", result: runner.Result{Stdout: "\n\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &runner.FakeRunner{Default: tt.result}
			u := NewScriptUploader(tt.script, fake, logger.NewSilentLogger())
			if _, err := u.Upload(context.Background(), "b", "n", "p", CategoryBuild); err == nil {
				t.Error("Upload() should fail")
			}
		})
	}
}

func TestUpload_NoScriptSentinel(t *testing.T) {
	u := NewScriptUploader("", &runner.FakeRunner{}, nil)
	if _, err := u.Upload(context.Background(), "b", "n", "p", CategoryBuild); !errors.Is(err, ErrNoScript) {
		t.Errorf("Upload() error = %v, want ErrNoScript", err)
	}
}
