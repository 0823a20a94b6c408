package diagnostic

import "testing"

func TestSeverityFrom(t *testing.T) {
	tests := []struct {
		token string
		want  Severity
	}{
		{"error", SeverityError},
		{"fatal error", SeverityError},
		{"ERROR", SeverityError},
		{"Warning", SeverityWarning},
		{"warn", SeverityWarning},
		{"note", SeverityInfo},
		{"information", SeverityInfo},
		{"style", SeverityUnknown},
	}

	for _, tt := range tests {
		if got := SeverityFrom(tt.token); got != tt.want {
			t.Errorf("SeverityFrom(%q) = %s, want %s", tt.token, got, tt.want)
		}
	}
}

func TestEqual_TruncatedTextPrefix(t *testing.T) {
	a := New("main.cpp", 10, 4, SeverityError, "expected ';' before '}' token")
	b := New("main.cpp", 10, 4, SeverityError, "expected ';' after struct definition")

	if !Equal(a, b) {
		t.Errorf("diagnostics differing after the 11th character should be equal:\n%v\n%v", a, b)
	}

	c := New("main.cpp", 10, 4, SeverityError, "unexpected token")
	if Equal(a, c) {
		t.Error("diagnostics differing inside the prefix should not be equal")
	}
}

func TestCompare_OrdersByPosition(t *testing.T) {
	first := New("a.cpp", 1, 1, SeverityError, "x")
	later := New("a.cpp", 2, 1, SeverityError, "x")
	otherFile := New("b.cpp", 1, 1, SeverityError, "x")

	if Compare(first, later) >= 0 {
		t.Error("line 1 should sort before line 2")
	}
	if Compare(later, otherFile) >= 0 {
		t.Error("file a.cpp should sort before b.cpp")
	}
}

func TestNew_NegativePositions(t *testing.T) {
	d := New("f", -3, -1, SeverityWarning, "w")
	if d.Line != 0 || d.Column != 0 {
		t.Errorf("New() with negative positions = %d:%d, want 0:0", d.Line, d.Column)
	}
}

func TestSet_Deduplicates(t *testing.T) {
	s := NewSet()

	if !s.Add(New("b.cpp", 2, 0, SeverityWarning, "unused variable 'x'")) {
		t.Fatal("first Add() returned false")
	}
	if s.Add(New("b.cpp", 2, 0, SeverityWarning, "unused variable 'y'")) {
		t.Error("Add() of a prefix-equal diagnostic returned true")
	}
	s.Add(New("a.cpp", 9, 1, SeverityError, "boom"))

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	items := s.Items()
	if items[0].File != "a.cpp" {
		t.Errorf("Items()[0].File = %s, want a.cpp (sorted)", items[0].File)
	}
	if s.Count(SeverityError) != 1 || s.Count(SeverityWarning) != 1 {
		t.Errorf("Count() error=%d warning=%d, want 1/1", s.Count(SeverityError), s.Count(SeverityWarning))
	}

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() after Reset() = %d, want 0", s.Len())
	}
}

func TestCountTests(t *testing.T) {
	outcomes := []TestOutcome{
		{Name: "a", Status: TestPassed},
		{Name: "b", Status: TestWarning},
		{Name: "c", Status: TestFailed},
		{Name: "d", Status: TestNotRun},
	}

	c := CountTests(outcomes)
	if c.Total != 4 || c.Passed != 2 || c.Warning != 1 || c.Failed != 1 || c.NotRun != 1 {
		t.Errorf("CountTests() = %+v", c)
	}
	if !outcomes[1].Passed() {
		t.Error("warning outcome should count as passed")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{New("f.c", 0, 0, SeverityError, ""), "f.c"},
		{New("f.c", 3, 0, SeverityError, ""), "f.c:3"},
		{New("f.c", 3, 7, SeverityError, ""), "f.c:3:7"},
	}
	for _, tt := range tests {
		if got := tt.d.Location(); got != tt.want {
			t.Errorf("Location() = %q, want %q", got, tt.want)
		}
	}
}
