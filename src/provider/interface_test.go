package provider

import (
	"errors"
	"testing"
)

func TestParseRepository(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "owner/name", input: "NREL/EnergyPlus", want: "NREL/EnergyPlus"},
		{name: "https URL", input: "https://github.com/NREL/EnergyPlus", want: "NREL/EnergyPlus"},
		{name: "https URL with .git", input: "https://github.com/NREL/EnergyPlus.git", want: "NREL/EnergyPlus"},
		{name: "ssh URL", input: "git@github.com:NREL/EnergyPlus.git", want: "NREL/EnergyPlus"},
		{name: "missing name", input: "NREL/", wantErr: true},
		{name: "too many parts", input: "a/b/c", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRepository(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepository() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRepository) {
				t.Errorf("error = %v, want ErrInvalidRepository", err)
			}
			if got != tt.want {
				t.Errorf("ParseRepository() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPullRequest_External(t *testing.T) {
	internal := PullRequest{HeadRepo: "org/app", BaseRepo: "org/app"}
	fork := PullRequest{HeadRepo: "someone/app", BaseRepo: "org/app"}

	if internal.External() {
		t.Error("internal pull request reported as external")
	}
	if !fork.External() {
		t.Error("fork pull request not reported as external")
	}
}

func TestCombinedStatus_Reported(t *testing.T) {
	cs := &CombinedStatus{Statuses: []Status{
		{Context: "decent-ci-a", State: StatusPending},
		{Context: "decent-ci-b", State: StatusFailure},
	}}

	if cs.Reported("decent-ci-a") {
		t.Error("pending status counted as reported")
	}
	if !cs.Reported("decent-ci-b") {
		t.Error("final status not counted as reported")
	}
	if cs.Reported("decent-ci-c") {
		t.Error("missing context counted as reported")
	}
	var none *CombinedStatus
	if none.Reported("x") {
		t.Error("nil combined status reported")
	}
}

func TestStatusState_WireValues(t *testing.T) {
	tests := []struct {
		state StatusState
		want  string
	}{
		{StatusPending, "pending"},
		{StatusSuccess, "success"},
		{StatusFailure, "failure"},
		{StatusErrored, "error"},
	}
	for _, tt := range tests {
		if string(tt.state) != tt.want {
			t.Errorf("state = %q, want %q", tt.state, tt.want)
		}
	}

	var err error = &StatusError{Code: 502, Body: "bad gateway"}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 502 {
		t.Errorf("errors.As(%v) did not yield the HTTP status error", err)
	}
}
