package mcp

import (
	"fmt"
	"testing"
)

func TestFindCommonPrefix(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected string
	}{
		{
			name: "test harness prefix",
			lines: []string{
				"[ctest] [unit.solver.convergence] iteration 1",
				"[ctest] [unit.solver.convergence] iteration 2",
				"[ctest] [unit.solver.convergence] diverged",
			},
			expected: "[ctest] [unit.solver.convergence] ",
		},
		{
			name:     "no common prefix",
			lines:    []string{"Start 1: unit", "1/3 Test #1: unit", "Errors while running CTest"},
			expected: "",
		},
		{
			name:     "short common prefix ignored",
			lines:    []string{"[ctest] one", "[ctest] two"},
			expected: "",
		},
		{
			name:     "empty lines",
			lines:    []string{},
			expected: "",
		},
		{
			name:     "single line",
			lines:    []string{"[ctest] [unit.solver.convergence] only"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := findCommonPrefix(tt.lines)
			if result != tt.expected {
				t.Errorf("findCommonPrefix() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestCompressLine_StripsANSI(t *testing.T) {
	got := CompressLine("\x1b[31merror:\x1b[0m  no   match in /home/ci/work/app/src/solver.cpp:12")
	if got != "error: no match in .../solver.cpp:12" {
		t.Errorf("CompressLine() = %q", got)
	}
}

func TestCompressOutput(t *testing.T) {
	var output string
	for i := 1; i <= 9; i++ {
		output += fmt.Sprintf("[ctest] [unit.solver.convergence] step %d\n\n", i)
	}

	lines := CompressOutput(output, 4)
	expected := []string{"... 6", "... 7", "... 8", "... 9"}
	if len(lines) != len(expected) {
		t.Fatalf("CompressOutput() = %q", lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line[%d] = %q, expected %q", i, lines[i], expected[i])
		}
	}

	if got := CompressOutput("", 4); len(got) != 0 {
		t.Errorf("CompressOutput(\"\") = %q", got)
	}
}
