package testreport

import (
	"encoding/xml"
	"strings"

	"decent-ci/src/diagnostic"
)

// JUnitSuites is the root element for multiple test suites.
type JUnitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	Suites  []JUnitSuite `xml:"testsuite"`
}

// JUnitSuite represents a <testsuite> element.
type JUnitSuite struct {
	Name  string      `xml:"name,attr"`
	Time  float64     `xml:"time,attr"`
	Cases []JUnitCase `xml:"testcase"`
}

// JUnitCase represents a <testcase> element.
type JUnitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitProblem `xml:"failure"`
	Error     *JUnitProblem `xml:"error"`
	Skipped   *JUnitProblem `xml:"skipped"`
	SystemOut string        `xml:"system-out"`
}

// JUnitProblem is a <failure>, <error> or <skipped> child.
type JUnitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

func fromJUnit(suites []JUnitSuite, tag string) ([]diagnostic.TestOutcome, []diagnostic.TestAnnotation) {
	var outcomes []diagnostic.TestOutcome
	var annotations []diagnostic.TestAnnotation

	for _, suite := range suites {
		for _, tc := range suite.Cases {
			name := tc.Name
			if tc.ClassName != "" && tc.ClassName != tc.Name {
				name = tc.ClassName + "::" + tc.Name
			}

			if tc.Skipped != nil {
				outcomes = append(outcomes, diagnostic.TestOutcome{Name: name, Status: diagnostic.TestNotRun})
				continue
			}

			outcome := diagnostic.TestOutcome{
				Name:     name,
				Status:   diagnostic.TestPassed,
				Duration: tc.Time,
				Output:   tc.SystemOut,
			}
			problems := []struct {
				kind string
				p    *JUnitProblem
			}{{"failure", tc.Failure}, {"error", tc.Error}}
			for _, pr := range problems {
				p := pr.p
				if p == nil {
					continue
				}
				outcome.Status = diagnostic.TestFailed
				outcome.FailureType = pr.kind
				if p.Type != "" {
					outcome.FailureType = p.Type
				}
				if body := strings.TrimSpace(p.Content); body != "" {
					outcome.Output = joinOutput(outcome.Output, body)
				} else if p.Message != "" {
					outcome.Output = joinOutput(outcome.Output, p.Message)
				}
			}

			scan := scanMarkers(outcome.Output, tag)
			for _, msg := range scan.messages {
				annotations = append(annotations, diagnostic.TestAnnotation{TestName: name, Message: msg})
			}
			if scan.warn && outcome.Status == diagnostic.TestPassed {
				outcome.Status = diagnostic.TestWarning
			}
			outcome.Diagnostics = nestedDiagnostics(outcome.Output)

			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes, annotations
}

func joinOutput(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}
