package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "test-token-12345")
		t.Setenv("REDPANDA_BROKERS", "a:9092, b:9092,,")
		t.Setenv("DECENT_CI_VERBOSE", "true")
		t.Setenv("DECENT_CI_WORKDIR", "/tmp/ci")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.GitHubToken != "test-token-12345" {
			t.Errorf("GitHubToken = %v", cfg.GitHubToken)
		}
		if len(cfg.RedpandaBrokers) != 2 || cfg.RedpandaBrokers[1] != "b:9092" {
			t.Errorf("RedpandaBrokers = %v", cfg.RedpandaBrokers)
		}
		if !cfg.Verbose || cfg.WorkDir != "/tmp/ci" {
			t.Errorf("Verbose/WorkDir = %v/%v", cfg.Verbose, cfg.WorkDir)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "")

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for missing token, got nil")
		}
	})

	t.Run("viewer without token", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "")
		t.Setenv("DECENT_CI_VERBOSE", "")
		t.Setenv("POSTGRES_DSN", "postgres://localhost/results")

		cfg, err := LoadViewerFromEnv()
		if err != nil {
			t.Fatalf("LoadViewerFromEnv() error = %v", err)
		}
		if cfg.PostgresDSN != "postgres://localhost/results" {
			t.Errorf("PostgresDSN = %q", cfg.PostgresDSN)
		}
	})

	t.Run("invalid verbose", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "x")
		t.Setenv("DECENT_CI_VERBOSE", "loud")

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for invalid DECENT_CI_VERBOSE")
		}
	})
}

func TestMustLoadFromEnv_Panics(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	defer func() {
		if recover() == nil {
			t.Error("MustLoadFromEnv() did not panic")
		}
	}()
	MustLoadFromEnv()
}

const yamlConfig = `repository: org/project
results_repository: org/project.io
test_pass_limit: 95
branches: [develop, "release/*"]
regression_baselines:
  feature: develop
compilers:
  - name: gcc
    version: "11"
    cc_bin: /usr/bin/gcc-11
    cxx_bin: /usr/bin/g++-11
    os: Linux
    os_release: Ubuntu-22.04
    architecture_description: x86_64
  - name: cppcheck
    commands: ["cppcheck --enable=all src"]
`

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".decent_ci.yaml")
	if err := os.WriteFile(path, []byte(yamlConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if f.Repository != "org/project" || len(f.Compilers) != 2 {
		t.Fatalf("File = %+v", f)
	}
	if f.Compilers[0].CXX != "/usr/bin/g++-11" {
		t.Errorf("CXX = %q", f.Compilers[0].CXX)
	}
	if f.RegressionBaselines["feature"] != "develop" {
		t.Errorf("RegressionBaselines = %v", f.RegressionBaselines)
	}
}

func TestLoadFile_TOML(t *testing.T) {
	content := `repository = "org/project"

[[compilers]]
name = "clang"
cc_bin = "/usr/bin/clang"
cxx_bin = "/usr/bin/clang++"
build_type = "Debug"
coverage_enabled = true
`
	path := filepath.Join(t.TempDir(), ".decent_ci.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(f.Compilers) != 1 || !f.Compilers[0].CoverageEnabled || f.Compilers[0].BuildType != "Debug" {
		t.Errorf("Compilers = %+v", f.Compilers)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrNoConfig) {
		t.Errorf("missing file error = %v, want ErrNoConfig", err)
	}

	ini := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(ini, []byte("x=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(ini); err == nil {
		t.Error("LoadFile(.ini) error = nil, want unsupported format")
	}
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindFile(dir); !errors.Is(err, ErrNoConfig) {
		t.Errorf("FindFile(empty) error = %v, want ErrNoConfig", err)
	}

	want := filepath.Join(dir, ".decent_ci.yml")
	if err := os.WriteFile(want, []byte("compilers: []"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindFile(dir)
	if err != nil || got != want {
		t.Errorf("FindFile() = %q, %v; want %q", got, err, want)
	}
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(File{
		Repository: "org/project",
		Compilers: []ToolchainVariant{{
			Name: "gcc", CC: "/usr/bin/gcc", CXX: "/usr/bin/g++",
			OS: "Linux", OSRelease: "Ubuntu-22.04",
		}},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if cfg.Thresholds != (Thresholds{TestPass: 99.99, TestWarn: 90, CoveragePass: 90, CoverageWarn: 75}) {
		t.Errorf("Thresholds = %+v", cfg.Thresholds)
	}
	if cfg.MaxReleaseAge != 30*24*time.Hour || cfg.MaxBranchAge != cfg.MaxReleaseAge || cfg.MaxPullRequestAge != cfg.MaxReleaseAge {
		t.Errorf("ages = %v/%v/%v", cfg.MaxReleaseAge, cfg.MaxBranchAge, cfg.MaxPullRequestAge)
	}
	if cfg.ResultsPath != "_posts" || cfg.ResultsRepository != "org/project" || cfg.TestTag != "decent_ci" {
		t.Errorf("results settings = %q %q %q", cfg.ResultsPath, cfg.ResultsRepository, cfg.TestTag)
	}

	v := cfg.Variants[0]
	if v.Workers <= 0 || v.TestTimeout != 3000 || v.BuildType != "Release" {
		t.Errorf("variant defaults = %+v", v)
	}
	if v.Description != "gcc" {
		t.Errorf("Description = %q, want gcc", v.Description)
	}
	if len(v.PackageGenerators) != 1 || v.PackageGenerators[0] != "TGZ" {
		t.Errorf("PackageGenerators = %v", v.PackageGenerators)
	}
}

func TestResolve_NoVariants(t *testing.T) {
	if _, err := Resolve(File{Repository: "org/project"}); !errors.Is(err, ErrNoVariants) {
		t.Errorf("Resolve() error = %v, want ErrNoVariants", err)
	}
}

func TestResolve_CompilerLookup(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()

	lookPath = func(name string) (string, error) {
		switch name {
		case "clang-15", "clang++-15":
			return "/opt/llvm/bin/" + name, nil
		}
		return "", os.ErrNotExist
	}

	cfg, err := Resolve(File{Compilers: []ToolchainVariant{{Name: "clang", Version: "15"}}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Variants[0].CC != "/opt/llvm/bin/clang-15" || cfg.Variants[0].CXX != "/opt/llvm/bin/clang++-15" {
		t.Errorf("compilers = %q / %q", cfg.Variants[0].CC, cfg.Variants[0].CXX)
	}

	_, err = Resolve(File{Compilers: []ToolchainVariant{{Name: "gcc", Version: "99"}}})
	if !errors.Is(err, ErrUnknownCompiler) {
		t.Errorf("missing gcc error = %v, want ErrUnknownCompiler", err)
	}

	_, err = Resolve(File{Compilers: []ToolchainVariant{{Name: "icc"}}})
	if !errors.Is(err, ErrUnknownCompiler) {
		t.Errorf("unknown compiler error = %v, want ErrUnknownCompiler", err)
	}
}

func TestResolve_StaticAnalysisAndVisualStudioSkipLookup(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()
	lookPath = func(string) (string, error) { return "", os.ErrNotExist }

	cfg, err := Resolve(File{Compilers: []ToolchainVariant{
		{Name: ToolCppcheck},
		{Name: "cl", Generator: "Visual Studio 17 2022", Platform: "x64"},
	}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Variants[0].Adapter() != AdapterStaticAnalysis || cfg.Variants[1].Adapter() != AdapterCMake {
		t.Errorf("adapters = %s / %s", cfg.Variants[0].Adapter(), cfg.Variants[1].Adapter())
	}
	if len(cfg.Variants[0].PackageGenerators) != 0 {
		t.Errorf("static analysis variant got package generators %v", cfg.Variants[0].PackageGenerators)
	}
}

func TestDeviceID(t *testing.T) {
	tests := []struct {
		name    string
		variant ToolchainVariant
		want    string
	}{
		{
			name: "release omits build type",
			variant: ToolchainVariant{
				ArchitectureDescription: "x86_64", OS: "Linux", OSRelease: "Ubuntu-22.04",
				Description: "gcc-11", BuildType: "Release",
			},
			want: "x86_64-Linux-Ubuntu-22.04-gcc-11",
		},
		{
			name: "debug appends build type",
			variant: ToolchainVariant{
				ArchitectureDescription: "x86_64", OS: "MacOS", OSRelease: "14",
				Description: "clang", BuildType: "Debug",
			},
			want: "x86_64-MacOS-14-clang-Debug",
		},
		{
			name: "spaces become dashes",
			variant: ToolchainVariant{
				ArchitectureDescription: "x64", OS: "Windows", OSRelease: "10",
				Description: "Visual Studio 2022",
			},
			want: "x64-Windows-10-Visual-Studio-2022",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.variant.DeviceID(); got != tt.want {
				t.Errorf("DeviceID() = %q, want %q", got, tt.want)
			}
			if got := tt.variant.StatusContext(); got != "decent-ci-"+tt.want {
				t.Errorf("StatusContext() = %q", got)
			}
		})
	}
}

func TestConfig_BranchHelpers(t *testing.T) {
	cfg := &Config{
		Branches:            []string{"develop", "release/*"},
		RegressionBaselines: map[string]string{"feature": "develop", "develop": "develop"},
	}

	for name, want := range map[string]bool{"develop": true, "release/1.0": true, "feature": false} {
		if got := cfg.AllowsBranch(name); got != want {
			t.Errorf("AllowsBranch(%q) = %v, want %v", name, got, want)
		}
	}

	if b, ok := cfg.BaselineFor("feature"); !ok || b != "develop" {
		t.Errorf("BaselineFor(feature) = %q, %v", b, ok)
	}
	if _, ok := cfg.BaselineFor("develop"); ok {
		t.Error("a branch must not be its own baseline")
	}
}
