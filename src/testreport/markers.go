package testreport

import (
	"strings"

	"decent-ci/src/classify"
	"decent-ci/src/diagnostic"
	"decent-ci/src/sanitize"
)

// DefaultTag prefixes the in-band markers tests print, e.g.
//
//	[decent_ci:test_result:message] regression output differs
//	[decent_ci:test_result:warn]
const DefaultTag = "decent_ci"

type markerScan struct {
	messages []string
	warn     bool
}

func scanMarkers(text, tag string) markerScan {
	if tag == "" {
		tag = DefaultTag
	}
	messageMarker := "[" + tag + ":test_result:message]"
	warnMarker := "[" + tag + ":test_result:warn]"

	var scan markerScan
	for _, line := range sanitize.Lines(sanitize.String(text)) {
		if i := strings.Index(line, messageMarker); i >= 0 {
			msg := strings.TrimSpace(line[i+len(messageMarker):])
			if msg != "" {
				scan.messages = append(scan.messages, msg)
			}
		}
		if strings.Contains(line, warnMarker) {
			scan.warn = true
		}
	}
	return scan
}

var nestedFamilies = []classify.Family{classify.Native, classify.Windows, classify.Generator}

func nestedDiagnostics(text string) []diagnostic.Diagnostic {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	diags, _ := classify.ProcessAll(nestedFamilies, text, "", 0)
	return diags
}
