package classify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"decent-ci/src/diagnostic"
)

func TestNative(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     int
		file     string
		line     uint
		column   uint
		severity diagnostic.Severity
	}{
		{
			name:     "compiler error",
			input:    "src/main.cpp:12:5: error: expected ';' after expression\n",
			want:     1,
			file:     "src/main.cpp",
			line:     12,
			column:   5,
			severity: diagnostic.SeverityError,
		},
		{
			name:     "warning",
			input:    "lib/a.c:3:1: warning: unused variable 'x' [-Wunused-variable]\n",
			want:     1,
			file:     "lib/a.c",
			line:     3,
			column:   1,
			severity: diagnostic.SeverityWarning,
		},
		{
			name:  "notes are dropped",
			input: "a.cpp:1:2: note: candidate function not viable\n",
			want:  0,
		},
		{
			name:     "linker error",
			input:    "main.o:7: undefined reference to `foo()'\n",
			want:     1,
			file:     "main.o",
			line:     7,
			severity: diagnostic.SeverityError,
		},
		{
			name:  "unrelated output",
			input: "[ 50%] Building CXX object CMakeFiles/app.dir/main.cpp.o\n",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyNative(tt.input)
			if len(got) != tt.want {
				t.Fatalf("got %d diagnostics, want %d: %+v", len(got), tt.want, got)
			}
			if tt.want == 0 {
				return
			}
			d := got[0]
			if d.File != tt.file || d.Line != tt.line || d.Column != tt.column || d.Severity != tt.severity {
				t.Errorf("diagnostic = %+v", d)
			}
		})
	}
}

func TestNative_UndefinedSymbolsBlock(t *testing.T) {
	input := strings.Join([]string{
		"Undefined symbols for architecture x86_64:",
		`  "_foo", referenced from:`,
		"      _main in main.o",
		"ld: symbol(s) not found for architecture x86_64",
		"",
	}, "\n")

	got := classifyNative(input)
	if len(got) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(got), got)
	}
	if got[0].Severity != diagnostic.SeverityError {
		t.Errorf("Severity = %s, want error", got[0].Severity)
	}
	if !strings.Contains(got[0].Text, `"_foo", referenced from:`) || !strings.Contains(got[0].Text, "_main in main.o") {
		t.Errorf("block text missing continuation lines: %q", got[0].Text)
	}
}

func TestWindows(t *testing.T) {
	w := NewWindows(nil)

	input := strings.Join([]string{
		`c:\src\main.cpp(12): error C2143: syntax error: missing ';' [C:\build\app.vcxproj]`,
		`c:\src\util.cpp(4,9): warning C4244: conversion from 'double' to 'int' [C:\build\app.vcxproj]`,
		`c:\src\util.cpp(5): note C0000: see declaration`,
		`LINK : fatal error LNK1181: cannot open input file 'foo.lib' [C:\build\app.vcxproj]`,
		"Build started.",
	}, "\n")

	got := w.Classify(input)
	if len(got) != 3 {
		t.Fatalf("got %d diagnostics, want 3: %+v", len(got), got)
	}

	if got[0].File != `c:\src\main.cpp` || got[0].Line != 12 || got[0].Severity != diagnostic.SeverityError {
		t.Errorf("first = %+v", got[0])
	}
	if !strings.HasPrefix(got[0].Text, "C2143: ") || strings.Contains(got[0].Text, "vcxproj") {
		t.Errorf("first text = %q, want code prefix without project suffix", got[0].Text)
	}
	if got[1].Column != 9 || got[1].Severity != diagnostic.SeverityWarning {
		t.Errorf("second = %+v", got[1])
	}
	if got[2].File != "LINK" || got[2].Severity != diagnostic.SeverityError {
		t.Errorf("tool-level = %+v", got[2])
	}
}

func TestWindows_UsesCaseRecovery(t *testing.T) {
	w := NewWindows(func(p string) string { return strings.ToUpper(p) })
	got := w.Classify(`a.cpp(1): error C1: boom`)
	if len(got) != 1 || got[0].File != "A.CPP" {
		t.Fatalf("got %+v, want recovered file name", got)
	}
}

func TestRecoverCase(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Src", "Core"), 0o755); err != nil {
		t.Fatal(err)
	}
	onDisk := filepath.Join(dir, "Src", "Core", "Main.cpp")
	if err := os.WriteFile(onDisk, []byte("int main(){}"), 0o644); err != nil {
		t.Fatal(err)
	}

	lowered := filepath.Join(dir, "src", "core", "main.cpp")
	if got := RecoverCase(lowered); got != onDisk {
		t.Errorf("RecoverCase(%s) = %s, want %s", lowered, got, onDisk)
	}

	missing := filepath.Join(dir, "nope", "main.cpp")
	if got := RecoverCase(missing); got != missing {
		t.Errorf("RecoverCase(missing) = %s, want input unchanged", got)
	}
}

func TestRecoverCaseIn_RelativePaths(t *testing.T) {
	buildDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(buildDir, "Src", "Core"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(buildDir, "Src", "Core", "Main.cpp"), []byte("int main(){}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "relative path", path: filepath.Join("src", "core", "main.cpp"), want: filepath.Join("Src", "Core", "Main.cpp")},
		{name: "already correct", path: filepath.Join("Src", "Core", "Main.cpp"), want: filepath.Join("Src", "Core", "Main.cpp")},
		{name: "absolute path", path: filepath.Join(buildDir, "src", "core", "main.cpp"), want: filepath.Join(buildDir, "Src", "Core", "Main.cpp")},
		{name: "missing file", path: filepath.Join("src", "gone.cpp"), want: filepath.Join("src", "gone.cpp")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecoverCaseIn(buildDir, tt.path); got != tt.want {
				t.Errorf("RecoverCaseIn(%s) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestProcessAllIn_RecoversRelativeWindowsPaths(t *testing.T) {
	buildDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(buildDir, "Widget.cpp"), []byte("int x;"), 0o644); err != nil {
		t.Fatal(err)
	}

	diags, ok := ProcessAllIn(buildDir, []Family{Windows}, "widget.cpp(3): error C2065: 'y': undeclared identifier\n", "", 2)
	if ok {
		t.Error("ProcessAllIn() reported success for an error")
	}
	if len(diags) != 1 || diags[0].File != "Widget.cpp" {
		t.Errorf("diagnostics = %+v, want Widget.cpp", diags)
	}
}

func TestGenerator_BlockMessage(t *testing.T) {
	g := NewGenerator("")
	got := g.Classify("CMake Error at CMakeLists.txt:12 (foo):\n  bad thing\n\n")

	if len(got) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(got), got)
	}
	d := got[0]
	if d.File != "CMakeLists.txt" || d.Line != 12 || d.Severity != diagnostic.SeverityError {
		t.Errorf("diagnostic = %+v", d)
	}
	if !strings.Contains(d.Text, "bad thing") {
		t.Errorf("Text = %q, want it to contain the block body", d.Text)
	}
}

func TestGenerator_WarningBlockClosedAtEOF(t *testing.T) {
	g := NewGenerator("")
	got := g.Classify("CMake Warning (dev) at cmake/Find.cmake:3 (find_package):\n  policy not set\n  more detail")

	if len(got) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(got))
	}
	if got[0].Severity != diagnostic.SeverityWarning || got[0].File != "cmake/Find.cmake" || got[0].Line != 3 {
		t.Errorf("diagnostic = %+v", got[0])
	}
	if got[0].Text != "policy not set\nmore detail" {
		t.Errorf("Text = %q", got[0].Text)
	}
}

func TestGenerator_TrailingContextLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name: "developer warning footer",
			input: "CMake Warning (dev) at CMakeLists.txt:3 (project):\n  Policy CMP0048 is not set.\n\n" +
				"This warning is for project developers.  Use -Wno-dev to suppress it.\n",
			want: []string{"Policy CMP0048 is not set.\nThis warning is for project developers.  Use -Wno-dev to suppress it."},
		},
		{
			name: "second paragraph",
			input: "CMake Error at CMakeLists.txt:5 (project):\n  No CMAKE_CXX_COMPILER could be found.\n\n" +
				"  Tell CMake where to find the compiler.\n\n",
			want: []string{"No CMAKE_CXX_COMPILER could be found.\nTell CMake where to find the compiler."},
		},
		{
			name: "next message is not context",
			input: "CMake Error at a.cmake:1 (include):\n  first\n\n" +
				"CMake Error at b.cmake:2 (include):\n  second\n\n",
			want: []string{"first", "second"},
		},
		{
			name:  "two blank lines close the block",
			input: "CMake Error at a.cmake:1 (include):\n  first\n\n\nunrelated output\n",
			want:  []string{"first"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGenerator("").Classify(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d diagnostics, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, d := range got {
				if d.Text != tt.want[i] {
					t.Errorf("diagnostic %d Text = %q, want %q", i, d.Text, tt.want[i])
				}
			}
		})
	}
}

func TestGenerator_SingleLineUsesPreviousLine(t *testing.T) {
	g := NewGenerator("")
	got := g.Classify("-- Configuring incomplete\nCMake Error: The source directory does not exist.\n")

	if len(got) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(got), got)
	}
	d := got[0]
	if d.File != DefaultDescriptor || d.Line != 1 {
		t.Errorf("location = %s, want %s:1", d.Location(), DefaultDescriptor)
	}
	if !strings.Contains(d.Text, "Configuring incomplete") || !strings.Contains(d.Text, "source directory does not exist") {
		t.Errorf("Text = %q", d.Text)
	}
}

func TestGenerator_FortranBlockIsWarning(t *testing.T) {
	g := NewGenerator("")
	input := "src/solver.f90:42:10:\n   42 | x = y\n      |     1\nError: Symbol 'y' has no type\n\n"

	got := g.Classify(input)
	if len(got) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(got), got)
	}
	if got[0].Severity != diagnostic.SeverityWarning || got[0].Line != 42 || got[0].Column != 10 {
		t.Errorf("diagnostic = %+v", got[0])
	}
}

func TestGenerator_IncludeContextIgnored(t *testing.T) {
	g := NewGenerator("")
	got := g.Classify("In file included from include/a.h:3:\nplain output\n")
	if len(got) != 0 {
		t.Errorf("got %+v, want no diagnostics", got)
	}
}

func TestStatic(t *testing.T) {
	input := strings.Join([]string{
		"Checking src/main.cpp ...",
		"[src/main.cpp]:12:style:Variable 'x' is assigned a value that is never used.",
		"[src/io.cpp]:3:error:Memory leak: buf",
		"[src/io.cpp]:1:information:Include file not found.",
	}, "\n")

	got := classifyStatic(input)
	if len(got) != 3 {
		t.Fatalf("got %d diagnostics, want 3", len(got))
	}
	if got[0].Severity != diagnostic.SeverityWarning || got[0].Line != 12 {
		t.Errorf("style = %+v", got[0])
	}
	if got[1].Severity != diagnostic.SeverityError || got[1].Text != "Memory leak: buf" {
		t.Errorf("error = %+v", got[1])
	}
	if got[2].Severity != diagnostic.SeverityInfo {
		t.Errorf("information = %+v", got[2])
	}
}

func TestCustomCheck(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		file     string
		severity diagnostic.Severity
		contains string
	}{
		{
			name:     "empty object uses defaults",
			input:    "{}",
			file:     unknownFile,
			severity: diagnostic.SeverityError,
			contains: noMessage,
		},
		{
			name:     "not json",
			input:    "not json",
			file:     CustomCheckSource,
			severity: diagnostic.SeverityError,
			contains: "custom_check",
		},
		{
			name:     "array is rejected",
			input:    `[{"a":1}]`,
			file:     CustomCheckSource,
			severity: diagnostic.SeverityError,
			contains: "array",
		},
		{
			name:     "full object",
			input:    `{"tool":"lint","file":"a.idf","line":4,"column":2,"messagetype":"warning","message":"too long","id":"L001"}`,
			file:     "a.idf",
			severity: diagnostic.SeverityWarning,
			contains: "lint L001 too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyCustomCheck(tt.input)
			if len(got) != 1 {
				t.Fatalf("got %d diagnostics, want 1: %+v", len(got), got)
			}
			d := got[0]
			if d.File != tt.file || d.Severity != tt.severity {
				t.Errorf("diagnostic = %+v", d)
			}
			if !strings.Contains(d.Text, tt.contains) {
				t.Errorf("Text = %q, want it to contain %q", d.Text, tt.contains)
			}
		})
	}
}

func TestCustomCheck_SkipsBlankLines(t *testing.T) {
	got := classifyCustomCheck("\n{\"message\":\"a\"}\n\n{\"message\":\"b\"}\n")
	if len(got) != 2 {
		t.Errorf("got %d diagnostics, want 2", len(got))
	}
}

func TestScript(t *testing.T) {
	input := strings.Join([]string{
		"! LaTeX Error: File `missing.sty' not found.",
		"Traceback (most recent call last):",
		`  File "tools/gen.py", line 12, in <module>`,
		"ValueError: invalid literal for int() with base 10: 'x'",
	}, "\n")

	got := classifyScript(input)
	if len(got) != 3 {
		t.Fatalf("got %d diagnostics, want 3: %+v", len(got), got)
	}
	if got[0].Text != "LaTeX Error: File `missing.sty' not found." {
		t.Errorf("latex = %q", got[0].Text)
	}
	if got[1].File != "tools/gen.py" || got[1].Line != 12 {
		t.Errorf("frame = %+v", got[1])
	}
	if !strings.HasPrefix(got[2].Text, "ValueError: ") {
		t.Errorf("exception = %q", got[2].Text)
	}
}

func TestProcess_Success(t *testing.T) {
	tests := []struct {
		name        string
		stdout      string
		stderr      string
		exitCode    int
		wantSuccess bool
	}{
		{name: "clean", stdout: "ok\n", exitCode: 0, wantSuccess: true},
		{name: "warnings only", stderr: "a.c:1:1: warning: meh\n", exitCode: 0, wantSuccess: true},
		{name: "error diagnostic", stderr: "a.c:1:1: error: bad\n", exitCode: 0, wantSuccess: false},
		{name: "non-zero exit", stdout: "ok\n", exitCode: 2, wantSuccess: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Process(Native, tt.stdout, tt.stderr, tt.exitCode)
			if ok != tt.wantSuccess {
				t.Errorf("Process() success = %v, want %v", ok, tt.wantSuccess)
			}
		})
	}
}

func TestProcess_SanitizesInput(t *testing.T) {
	got, _ := Process(Native, "", "\x1b[1ma.c:1:2: \x1b[31merror:\x1b[0m bad\r\n", 1)
	if len(got) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(got), got)
	}
	if got[0].Text != "bad" {
		t.Errorf("Text = %q, want escape codes and CR removed", got[0].Text)
	}
}

func TestFor_UnknownFamily(t *testing.T) {
	if _, err := For("fortran"); err == nil {
		t.Error("For(unknown) error = nil, want error")
	}
}
