package testreport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"decent-ci/src/diagnostic"
)

// ReportSuffix matches CTest dashboard result files.
const ReportSuffix = "Test.xml"

// ErrUnknownFormat is returned for XML documents that are neither CTest nor
// JUnit reports.
var ErrUnknownFormat = errors.New("unknown test report format")

// Report is the combined content of every report found under a directory.
type Report struct {
	Outcomes    []diagnostic.TestOutcome
	Annotations []diagnostic.TestAnnotation
	Files       []string
}

// ReadDir walks root for *Test.xml files and parses each of them. tag is the
// in-band marker prefix; empty means DefaultTag. Files that fail to parse
// are reported in the returned error but do not stop the walk.
func ReadDir(root, tag string) (Report, error) {
	var report Report
	var errs []error

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ReportSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", path, err))
			continue
		}
		outcomes, annotations, err := Parse(data, tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to parse %s: %w", path, err))
			continue
		}
		report.Files = append(report.Files, path)
		report.Outcomes = append(report.Outcomes, outcomes...)
		report.Annotations = append(report.Annotations, annotations...)
	}

	return report, errors.Join(errs...)
}

// Parse decodes one report, choosing the format from the root element.
func Parse(data []byte, tag string) ([]diagnostic.TestOutcome, []diagnostic.TestAnnotation, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, nil, err
	}

	switch root {
	case "Site":
		var site Site
		if err := xml.Unmarshal(data, &site); err != nil {
			return nil, nil, fmt.Errorf("failed to parse CTest XML: %w", err)
		}
		outcomes, annotations := fromCTest(site, tag)
		return outcomes, annotations, nil
	case "testsuites":
		var suites JUnitSuites
		if err := xml.Unmarshal(data, &suites); err != nil {
			return nil, nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
		}
		outcomes, annotations := fromJUnit(suites.Suites, tag)
		return outcomes, annotations, nil
	case "testsuite":
		var suite JUnitSuite
		if err := xml.Unmarshal(data, &suite); err != nil {
			return nil, nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
		}
		outcomes, annotations := fromJUnit([]JUnitSuite{suite}, tag)
		return outcomes, annotations, nil
	default:
		return nil, nil, fmt.Errorf("%w: <%s>", ErrUnknownFormat, root)
	}
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("failed to read XML root: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
