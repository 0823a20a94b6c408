package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultFileNames are searched, in order, at the root of a checkout.
var DefaultFileNames = []string{".decent_ci.yaml", ".decent_ci.yml", ".decent_ci.toml"}

// Defaults applied by Resolve.
const (
	DefaultTestPassLimit     = 99.99
	DefaultTestWarnLimit     = 90.0
	DefaultCoveragePassLimit = 90.0
	DefaultCoverageWarnLimit = 75.0
	DefaultMaxAgeDays        = 30
	DefaultResultsPath       = "_posts"
	DefaultTestTimeout       = 3000
	DefaultBuildType         = "Release"
	DefaultTestTag           = "decent_ci"
)

// File is the on-disk configuration.
type File struct {
	Repository        string `yaml:"repository" toml:"repository"`
	ResultsRepository string `yaml:"results_repository" toml:"results_repository"`
	ResultsPath       string `yaml:"results_path" toml:"results_path"`
	ResultsBranch     string `yaml:"results_branch" toml:"results_branch"`

	TestPassLimit     float64 `yaml:"test_pass_limit" toml:"test_pass_limit"`
	TestWarnLimit     float64 `yaml:"test_warn_limit" toml:"test_warn_limit"`
	CoveragePassLimit float64 `yaml:"coverage_pass_limit" toml:"coverage_pass_limit"`
	CoverageWarnLimit float64 `yaml:"coverage_warn_limit" toml:"coverage_warn_limit"`

	MaxReleaseAgeDays     int `yaml:"max_release_age" toml:"max_release_age"`
	MaxBranchAgeDays      int `yaml:"max_branch_age" toml:"max_branch_age"`
	MaxPullRequestAgeDays int `yaml:"max_pr_age" toml:"max_pr_age"`

	Branches            []string          `yaml:"branches" toml:"branches"`
	RegressionBaselines map[string]string `yaml:"regression_baselines" toml:"regression_baselines"`
	ForcePackaging      bool              `yaml:"force_packaging" toml:"force_packaging"`
	TestTag             string            `yaml:"test_tag" toml:"test_tag"`

	Compilers []ToolchainVariant `yaml:"compilers" toml:"compilers"`
}

// Thresholds are the pass/warn percentages used to classify a report.
type Thresholds struct {
	TestPass     float64
	TestWarn     float64
	CoveragePass float64
	CoverageWarn float64
}

// Config is the resolved, validated project configuration.
type Config struct {
	Repository        string
	ResultsRepository string
	ResultsPath       string
	ResultsBranch     string

	Thresholds Thresholds

	MaxReleaseAge     time.Duration
	MaxBranchAge      time.Duration
	MaxPullRequestAge time.Duration

	Branches            []string
	RegressionBaselines map[string]string
	ForcePackaging      bool
	TestTag             string

	Variants []ToolchainVariant
}

// BaselineFor returns the regression baseline branch of ref, if any.
func (c *Config) BaselineFor(ref string) (string, bool) {
	b, ok := c.RegressionBaselines[ref]
	return b, ok && b != "" && b != ref
}

// AllowsBranch applies the optional branch allow-list.
func (c *Config) AllowsBranch(name string) bool {
	if len(c.Branches) == 0 {
		return true
	}
	for _, b := range c.Branches {
		if matched, _ := filepath.Match(b, name); matched || b == name {
			return true
		}
	}
	return false
}

// LoadFile reads a configuration file; the format follows the extension.
func LoadFile(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfig, path)
		}
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return &f, nil
}

// FindFile returns the first of DefaultFileNames present in dir.
func FindFile(dir string) (string, error) {
	for _, name := range DefaultFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoConfig, dir)
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Resolve applies defaults and validates f.
func Resolve(f File) (*Config, error) {
	if len(f.Compilers) == 0 {
		return nil, ErrNoVariants
	}

	cfg := &Config{
		Repository:        f.Repository,
		ResultsRepository: f.ResultsRepository,
		ResultsPath:       orString(f.ResultsPath, DefaultResultsPath),
		ResultsBranch:     f.ResultsBranch,
		Thresholds: Thresholds{
			TestPass:     orFloat(f.TestPassLimit, DefaultTestPassLimit),
			TestWarn:     orFloat(f.TestWarnLimit, DefaultTestWarnLimit),
			CoveragePass: orFloat(f.CoveragePassLimit, DefaultCoveragePassLimit),
			CoverageWarn: orFloat(f.CoverageWarnLimit, DefaultCoverageWarnLimit),
		},
		MaxReleaseAge:       days(f.MaxReleaseAgeDays),
		MaxBranchAge:        days(f.MaxBranchAgeDays),
		MaxPullRequestAge:   days(f.MaxPullRequestAgeDays),
		Branches:            f.Branches,
		RegressionBaselines: f.RegressionBaselines,
		ForcePackaging:      f.ForcePackaging,
		TestTag:             orString(f.TestTag, DefaultTestTag),
	}
	if cfg.ResultsRepository == "" {
		cfg.ResultsRepository = cfg.Repository
	}

	for i, v := range f.Compilers {
		resolved, err := resolveVariant(v, cfg.Thresholds)
		if err != nil {
			return nil, fmt.Errorf("compiler %d (%s): %w", i, v.Name, err)
		}
		cfg.Variants = append(cfg.Variants, resolved)
	}
	return cfg, nil
}

func resolveVariant(v ToolchainVariant, th Thresholds) (ToolchainVariant, error) {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return v, fmt.Errorf("%w: compiler name is empty", ErrUnknownCompiler)
	}

	v.OS = orString(v.OS, hostOS())
	v.OSRelease = orString(v.OSRelease, hostOSRelease())
	v.Architecture = orString(v.Architecture, runtime.GOARCH)
	v.ArchitectureDescription = orString(v.ArchitectureDescription, archDescription(v.Architecture))
	v.BuildType = orString(v.BuildType, DefaultBuildType)
	if v.Description == "" {
		v.Description = strings.TrimSuffix(v.Name+"-"+v.Version, "-")
	}
	if v.Workers <= 0 {
		v.Workers = runtime.NumCPU()
	}
	if v.TestTimeout <= 0 {
		v.TestTimeout = DefaultTestTimeout
	}
	if len(v.PackageGenerators) == 0 && !v.IsStaticAnalysis() {
		v.PackageGenerators = defaultPackageGenerators(v.OS)
	}
	v.Coverage.PassLimit = orFloat(v.Coverage.PassLimit, th.CoveragePass)
	v.Coverage.WarnLimit = orFloat(v.Coverage.WarnLimit, th.CoverageWarn)

	if v.IsStaticAnalysis() || v.IsVisualStudio() {
		return v, nil
	}

	if v.CC == "" || v.CXX == "" {
		cc, cxx, ok := compilerNames(v.Name)
		if !ok {
			return v, fmt.Errorf("%w: %s has no cc_bin/cxx_bin", ErrUnknownCompiler, v.Name)
		}
		if v.CC == "" {
			v.CC = findVersioned(cc, v.Version)
		}
		if v.CXX == "" {
			v.CXX = findVersioned(cxx, v.Version)
		}
		if v.CC == "" || v.CXX == "" {
			return v, fmt.Errorf("%w: %s %s not found on PATH", ErrUnknownCompiler, v.Name, v.Version)
		}
	}
	return v, nil
}

func compilerNames(name string) (cc, cxx string, ok bool) {
	switch name {
	case "gcc":
		return "gcc", "g++", true
	case "clang":
		return "clang", "clang++", true
	default:
		return "", "", false
	}
}

func findVersioned(bin, version string) string {
	candidates := []string{bin}
	if version != "" {
		candidates = []string{bin + "-" + version, bin}
	}
	for _, c := range candidates {
		if path, err := lookPath(c); err == nil {
			return path
		}
	}
	return ""
}

func defaultPackageGenerators(osName string) []string {
	switch osName {
	case "Windows":
		return []string{"ZIP"}
	case "MacOS":
		return []string{"DragNDrop"}
	default:
		return []string{"TGZ"}
	}
}

func hostOS() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows"
	case "darwin":
		return "MacOS"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}

func archDescription(arch string) string {
	switch arch {
	case "amd64", "x86_64":
		return "x86_64"
	case "386", "i386":
		return "i386"
	case "arm64", "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// hostOSRelease reads ID and VERSION_ID from /etc/os-release.
func hostOSRelease() string {
	file, err := os.Open("/etc/os-release")
	if err != nil {
		return runtime.GOOS
	}
	defer file.Close()

	values := map[string]string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if ok {
			values[key] = strings.Trim(value, `"`)
		}
	}
	id := values["ID"]
	if id == "" {
		return runtime.GOOS
	}
	id = strings.ToUpper(id[:1]) + id[1:]
	return strings.TrimSuffix(id+"-"+values["VERSION_ID"], "-")
}

func days(n int) time.Duration {
	if n <= 0 {
		n = DefaultMaxAgeDays
	}
	return time.Duration(n) * 24 * time.Hour
}

func orString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func orFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
