// Package testreport reads test runner result files into TestOutcomes.
//
// The primary format is the CTest dashboard XML written by
// `ctest -D ExperimentalTest` (Testing/<stamp>/Test.xml). JUnit reports that
// happen to share the *Test.xml name are read as well.
package testreport

import (
	"encoding/xml"
	"strconv"
	"strings"

	"decent-ci/src/diagnostic"
)

// Site is the root element of a CTest Test.xml file.
type Site struct {
	XMLName xml.Name `xml:"Site"`
	Name    string   `xml:"Name,attr"`
	Testing Testing  `xml:"Testing"`
}

// Testing holds the individual <Test> records.
type Testing struct {
	Tests []Test `xml:"Test"`
}

// Test represents one <Test> element.
type Test struct {
	Status   string  `xml:"Status,attr"`
	Name     string  `xml:"Name"`
	Path     string  `xml:"Path"`
	FullName string  `xml:"FullName"`
	Results  Results `xml:"Results"`
}

// Results carries the measurements of a test.
type Results struct {
	Named        []NamedMeasurement `xml:"NamedMeasurement"`
	Measurements []Measurement      `xml:"Measurement"`
}

// NamedMeasurement is a typed key/value entry such as "Execution Time".
type NamedMeasurement struct {
	Type  string `xml:"type,attr"`
	Name  string `xml:"name,attr"`
	Value string `xml:"Value"`
}

// Measurement holds the captured output of the test.
type Measurement struct {
	Value string `xml:"Value"`
}

const (
	executionTime = "Execution Time"
	exitCode      = "Exit Code"
)

// fromCTest converts CTest records into outcomes and annotations.
func fromCTest(site Site, tag string) ([]diagnostic.TestOutcome, []diagnostic.TestAnnotation) {
	var outcomes []diagnostic.TestOutcome
	var annotations []diagnostic.TestAnnotation

	for _, test := range site.Testing.Tests {
		name := strings.TrimSpace(test.Name)
		status := normalizeStatus(test.Status)

		if status == diagnostic.TestNotRun {
			outcomes = append(outcomes, diagnostic.TestOutcome{
				Name:   name,
				Status: diagnostic.TestNotRun,
			})
			continue
		}

		outcome := diagnostic.TestOutcome{Name: name, Status: status}

		for _, m := range test.Results.Measurements {
			scan := scanMarkers(m.Value, tag)
			for _, msg := range scan.messages {
				annotations = append(annotations, diagnostic.TestAnnotation{TestName: name, Message: msg})
			}
			if scan.warn && outcome.Status == diagnostic.TestPassed {
				outcome.Status = diagnostic.TestWarning
			}
			outcome.Output += m.Value
			outcome.Diagnostics = append(outcome.Diagnostics, nestedDiagnostics(m.Value)...)
		}

		for _, nm := range test.Results.Named {
			switch nm.Name {
			case executionTime:
				if d, err := strconv.ParseFloat(strings.TrimSpace(nm.Value), 64); err == nil {
					outcome.Duration = d
				}
			case exitCode:
				outcome.FailureType = strings.TrimSpace(nm.Value)
			}
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, annotations
}

func normalizeStatus(s string) diagnostic.TestStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed":
		return diagnostic.TestPassed
	case "notrun", "disabled":
		return diagnostic.TestNotRun
	default:
		return diagnostic.TestFailed
	}
}
