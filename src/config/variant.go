package config

import (
	"strings"
)

// Adapter names a build engine implementation.
type Adapter string

const (
	AdapterCMake          Adapter = "cmake"
	AdapterStaticAnalysis Adapter = "static_analysis"
)

// Static analysis tool names; every other variant name is a compiler.
const (
	ToolCppcheck    = "cppcheck"
	ToolCustomCheck = "custom_check"
)

// StatusPrefix starts every commit status context written by decent-ci.
const StatusPrefix = "decent-ci-"

// Coverage configures the lcov pipeline of a variant.
type Coverage struct {
	BaseDir   string   `yaml:"base_dir" toml:"base_dir"`
	Filters   []string `yaml:"filters" toml:"filters"`
	PassLimit float64  `yaml:"pass_limit" toml:"pass_limit"`
	WarnLimit float64  `yaml:"warn_limit" toml:"warn_limit"`
	Bucket    string   `yaml:"s3_bucket" toml:"s3_bucket"`
}

// ToolchainVariant is one entry of the build matrix. It is passed by value
// and never changed after Resolve.
type ToolchainVariant struct {
	Name        string `yaml:"name" toml:"name"`
	Version     string `yaml:"version" toml:"version"`
	Description string `yaml:"description" toml:"description"`

	Architecture            string `yaml:"architecture" toml:"architecture"`
	ArchitectureDescription string `yaml:"architecture_description" toml:"architecture_description"`
	OS                      string `yaml:"os" toml:"os"`
	OSRelease               string `yaml:"os_release" toml:"os_release"`

	CC  string `yaml:"cc_bin" toml:"cc_bin"`
	CXX string `yaml:"cxx_bin" toml:"cxx_bin"`

	Generator         string   `yaml:"cmake_generator" toml:"cmake_generator"`
	Platform          string   `yaml:"cmake_platform" toml:"cmake_platform"`
	PackageGenerators []string `yaml:"build_package_generator" toml:"build_package_generator"`
	BuildType         string   `yaml:"build_type" toml:"build_type"`
	CMakeFlags        string   `yaml:"cmake_extra_flags" toml:"cmake_extra_flags"`

	Workers     int      `yaml:"num_parallel_builds" toml:"num_parallel_builds"`
	TestTimeout int      `yaml:"test_timeout" toml:"test_timeout"`
	TestDirs    []string `yaml:"test_directories" toml:"test_directories"`

	// Commands replaces the default static analysis invocation.
	Commands []string `yaml:"commands" toml:"commands"`

	Coverage     Coverage `yaml:"coverage" toml:"coverage"`
	UploadBucket string   `yaml:"s3_upload" toml:"s3_upload"`

	AnalyzeOnly     bool `yaml:"analyze_only" toml:"analyze_only"`
	ReleaseOnly     bool `yaml:"release_only" toml:"release_only"`
	SkipPackaging   bool `yaml:"skip_packaging" toml:"skip_packaging"`
	SkipRegression  bool `yaml:"skip_regression" toml:"skip_regression"`
	CoverageEnabled bool `yaml:"coverage_enabled" toml:"coverage_enabled"`
}

// Adapter selects the build engine implementation for the variant.
func (v ToolchainVariant) Adapter() Adapter {
	if v.IsStaticAnalysis() {
		return AdapterStaticAnalysis
	}
	return AdapterCMake
}

// IsStaticAnalysis reports whether the variant runs an analyzer instead of
// compiling.
func (v ToolchainVariant) IsStaticAnalysis() bool {
	return v.Name == ToolCppcheck || v.Name == ToolCustomCheck
}

// IsVisualStudio reports whether the variant builds through an IDE
// generator rather than with explicit compiler paths.
func (v ToolchainVariant) IsVisualStudio() bool {
	return strings.HasPrefix(v.Generator, "Visual Studio") || v.Name == "cl"
}

// DeviceID identifies the variant in archive paths and status contexts:
// <arch desc>-<os>-<os release>-<description>[-<build type>]. The build type
// is only appended when it is not Release.
func (v ToolchainVariant) DeviceID() string {
	parts := []string{v.ArchitectureDescription, v.OS, v.OSRelease, v.Description}
	if v.BuildType != "" && !strings.EqualFold(v.BuildType, "Release") {
		parts = append(parts, v.BuildType)
	}

	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, strings.ReplaceAll(p, " ", "-"))
		}
	}
	return strings.Join(kept, "-")
}

// StatusContext is the commit status context reported for this variant.
func (v ToolchainVariant) StatusContext() string {
	return StatusPrefix + v.DeviceID()
}
