// Package config provides configuration for the snipdex binary.
//
// Configuration is loaded with the following precedence (highest wins):
//
//	1. CLI flags (--root, --config)
//	2. Environment variables (SNIPDEX_ROOT, SNIPDEX_SENTINEL, ...)
//	3. Config file (first found): $SNIPDEX_CONFIG, <root>/.snipdex/config.toml,
//	   ./.snipdex/config.toml, ./snipdex.toml, ~/.config/snipdex/config.toml
//	4. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/snipdex/snipdex/internal/segment"
	"github.com/snipdex/snipdex/internal/walker"
)

// RootOverride is set by the --root CLI flag and takes priority over
// everything else when resolving the corpus root.
var RootOverride string

// ConfigOverride is set by the --config CLI flag and pins the config file
// path, skipping the normal search order.
var ConfigOverride string

var (
	// ErrNoRoot means no corpus root could be resolved from flags, env,
	// config, or marker detection.
	ErrNoRoot = fmt.Errorf("no corpus root found — run 'snipdex init' or set SNIPDEX_ROOT")

	// ErrNoDatabase means the export database does not exist yet.
	ErrNoDatabase = fmt.Errorf("no index database found — run 'snipdex export' first")
)

// Config is the full on-disk configuration.
type Config struct {
	Corpus CorpusConfig `toml:"corpus"`
	Build  BuildConfig  `toml:"build"`
	Serve  ServeConfig  `toml:"serve"`
	Watch  WatchConfig  `toml:"watch"`
	MCP    MCPConfig    `toml:"mcp"`
}

// CorpusConfig describes where the corpus lives and how files are selected
// and split.
type CorpusConfig struct {
	Root     string   `toml:"root"`
	Sentinel string   `toml:"sentinel"`
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
	SkipDirs []string `toml:"skip_dirs"`
}

// BuildConfig controls indexing runs.
type BuildConfig struct {
	Workers int      `toml:"workers"`
	Strict  bool     `toml:"strict"`
	FailOn  []string `toml:"fail_on"`
}

// ServeConfig controls the HTTP API server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// WatchConfig controls the filesystem watch loop.
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

// MCPConfig controls the MCP stdio server.
type MCPConfig struct {
	Sanitize bool `toml:"sanitize"`
}

// DefaultConfig returns the built-in defaults used when no config file or
// environment overrides are present.
func DefaultConfig() Config {
	return Config{
		Corpus: CorpusConfig{
			Sentinel: segment.DefaultSentinel,
			Include:  append([]string(nil), walker.DefaultInclude...),
		},
		Build: BuildConfig{
			Workers: 4,
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8787",
		},
		Watch: WatchConfig{
			DebounceMs: 2000,
		},
		MCP: MCPConfig{
			Sanitize: true,
		},
	}
}

// LoadConfig loads configuration: defaults, then the first config file found,
// then environment variable overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path := FindConfigFile()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		warnUnknownKeys(meta, path)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadConfigFrom loads defaults plus a specific config file, without env
// overrides. Used when rewriting a config file in place.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	warnUnknownKeys(meta, path)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SNIPDEX_ROOT"); v != "" {
		cfg.Corpus.Root = v
	}
	if v := os.Getenv("SNIPDEX_SENTINEL"); v != "" {
		cfg.Corpus.Sentinel = v
	}
	if v := os.Getenv("SNIPDEX_SKIP_DIRS"); v != "" {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Corpus.SkipDirs = append(cfg.Corpus.SkipDirs, d)
			}
		}
	}
	if v := os.Getenv("SNIPDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Build.Workers = n
		}
	}
	if v := os.Getenv("SNIPDEX_ADDR"); v != "" {
		cfg.Serve.Addr = v
	}
	if v := os.Getenv("SNIPDEX_SANITIZE"); v != "" {
		cfg.MCP.Sanitize = parseBool(v, cfg.MCP.Sanitize)
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// loadConfigSafe returns the loaded config or nil when loading fails.
// Accessors fall back to defaults rather than surfacing parse errors.
func loadConfigSafe() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		return nil
	}
	return &cfg
}

// ConfigWarning returns a human-readable warning when the config file exists
// but cannot be parsed, else "".
func ConfigWarning() string {
	path := FindConfigFile()
	if path == "" {
		return ""
	}
	if _, err := toml.DecodeFile(path, &Config{}); err != nil {
		return fmt.Sprintf("config file %s is invalid and was ignored: %v", path, err)
	}
	return ""
}

// FindConfigFile returns the path of the config file that LoadConfig will
// use, or "" when none exists.
func FindConfigFile() string {
	if ConfigOverride != "" {
		return ConfigOverride
	}
	var candidates []string
	if v := os.Getenv("SNIPDEX_CONFIG"); v != "" {
		candidates = append(candidates, v)
	}
	if root := rootPathRaw(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".snipdex", "config.toml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates,
			filepath.Join(cwd, ".snipdex", "config.toml"),
			filepath.Join(cwd, "snipdex.toml"),
		)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "snipdex", "config.toml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// rootPathRaw resolves the root from flag and env only. FindConfigFile uses
// this instead of RootPath to avoid recursing through config loading.
func rootPathRaw() string {
	if RootOverride != "" {
		return RootOverride
	}
	return os.Getenv("SNIPDEX_ROOT")
}

// configSuggestions maps commonly mistyped config keys to the real ones.
var configSuggestions = map[string]string{
	"excludes":     "exclude",
	"exclude_dirs": "skip_dirs",
	"ignore_dirs":  "skip_dirs",
	"ignored_dirs": "skip_dirs",
	"skip_paths":   "skip_dirs",
	"includes":     "include",
	"globs":        "include",
	"patterns":     "include",
	"delimiter":    "sentinel",
	"separator":    "sentinel",
	"divider":      "sentinel",
	"parallelism":  "workers",
	"jobs":         "workers",
	"threads":      "workers",
	"port":         "addr",
	"listen":       "addr",
	"host":         "addr",
	"debounce":     "debounce_ms",
	"sanitise":     "sanitize",
	"fail-on":      "fail_on",
	"failon":       "fail_on",
}

func warnUnknownKeys(meta toml.MetaData, path string) {
	for _, key := range meta.Undecoded() {
		full := key.String()
		last := key[len(key)-1]
		if suggestion, ok := configSuggestions[last]; ok {
			fmt.Fprintf(os.Stderr, "snipdex: WARNING: unknown key %q in %s — did you mean %q?\n", full, path, suggestion)
		} else {
			fmt.Fprintf(os.Stderr, "snipdex: WARNING: unknown key %q in %s (ignored)\n", full, path)
		}
	}
}

// rootMarkers are names whose presence marks a directory as a corpus root.
var rootMarkers = []string{".snipdex", "snipdex.toml"}

// RootPath returns the validated corpus root, or "" when none is configured.
// Priority: --root flag, SNIPDEX_ROOT, config file, marker detection from
// the working directory upward.
func RootPath() string {
	if RootOverride != "" {
		return validateRootPath(RootOverride)
	}
	if v := os.Getenv("SNIPDEX_ROOT"); v != "" {
		return validateRootPath(v)
	}
	if cfg := loadConfigSafe(); cfg != nil && cfg.Corpus.Root != "" {
		return validateRootPath(cfg.Corpus.Root)
	}
	return defaultRootPath()
}

// defaultRootPath walks upward from the working directory looking for a
// corpus marker. Returns "" when nothing is found.
func defaultRootPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for range 5 {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return validateRootPath(dir)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// dangerousRoots are paths too broad to index. Walking one of these would
// sweep in unrelated files and, in watch mode, register thousands of
// directories with inotify.
var dangerousRoots = []string{"/", "/home", "/Users", "/tmp", "/var", "/etc", "/opt"}

// validateRootPath rejects dangerous corpus roots. Returns the cleaned
// absolute path, or "" with a stderr warning when the path is refused.
func validateRootPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snipdex: WARNING: cannot resolve corpus root %q: %v\n", path, err)
		return ""
	}
	clean := filepath.Clean(abs)
	if isDangerousRoot(clean) {
		fmt.Fprintf(os.Stderr, "snipdex: WARNING: refusing to use %q as corpus root\n", clean)
		return ""
	}
	// A symlink can point a harmless-looking path at a dangerous root.
	if resolved, err := filepath.EvalSymlinks(clean); err == nil && resolved != clean {
		if isDangerousRoot(resolved) {
			fmt.Fprintf(os.Stderr, "snipdex: WARNING: refusing corpus root %q (resolves to %q)\n", clean, resolved)
			return ""
		}
	}
	return clean
}

func isDangerousRoot(path string) bool {
	for _, d := range dangerousRoots {
		if path == d {
			return true
		}
	}
	if runtime.GOOS == "windows" {
		// Bare drive roots like C:\.
		if len(path) <= 3 && strings.HasSuffix(path, `:\`) {
			return true
		}
	}
	return false
}

// SafeRootSubpath resolves a relative path inside the corpus root. Rejects
// absolute paths and traversal outside the root.
func SafeRootSubpath(rel string) (string, bool) {
	root := RootPath()
	if root == "" {
		return "", false
	}
	if filepath.IsAbs(rel) {
		return "", false
	}
	joined := filepath.Join(root, rel)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", false
	}
	if !pathWithinBase(root, abs) {
		return "", false
	}
	return abs, true
}

func pathWithinBase(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DataDir returns the directory for derived data (the export database).
// Defaults to <root>/.snipdex; SNIPDEX_DATA_DIR overrides.
func DataDir() (string, error) {
	if v := os.Getenv("SNIPDEX_DATA_DIR"); v != "" {
		return validateDataDir(v)
	}
	root := RootPath()
	if root == "" {
		return "", ErrNoRoot
	}
	return filepath.Join(root, ".snipdex"), nil
}

// validateDataDir checks that an override data dir is absolute and writable.
func validateDataDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("SNIPDEX_DATA_DIR must be an absolute path, got %q", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return "", fmt.Errorf("data dir %s is not writable: %w", dir, err)
	}
	os.Remove(probe)
	return dir, nil
}

// DBPath returns the path of the SQLite export database.
func DBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

// buildSkipDirs merges the walker defaults with SNIPDEX_SKIP_DIRS.
func buildSkipDirs() map[string]bool {
	m := make(map[string]bool, len(walker.DefaultSkipDirs))
	for d := range walker.DefaultSkipDirs {
		m[d] = true
	}
	if v := os.Getenv("SNIPDEX_SKIP_DIRS"); v != "" {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				m[d] = true
			}
		}
	}
	return m
}

// SkipDirs is the effective directory skip set for corpus walks.
var SkipDirs = buildSkipDirs()

// RebuildSkipDirs recomputes SkipDirs with extra entries from the config
// file. Called after LoadConfig so [corpus] skip_dirs takes effect.
func RebuildSkipDirs(extra []string) {
	m := buildSkipDirs()
	for _, d := range extra {
		if d = strings.TrimSpace(d); d != "" {
			m[d] = true
		}
	}
	SkipDirs = m
}

// Sentinel returns the segment sentinel line.
func Sentinel() string {
	if v := os.Getenv("SNIPDEX_SENTINEL"); v != "" {
		return v
	}
	if cfg := loadConfigSafe(); cfg != nil && cfg.Corpus.Sentinel != "" {
		return cfg.Corpus.Sentinel
	}
	return segment.DefaultSentinel
}

// Workers returns the indexing worker count.
func Workers() int {
	if v := os.Getenv("SNIPDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if cfg := loadConfigSafe(); cfg != nil && cfg.Build.Workers > 0 {
		return cfg.Build.Workers
	}
	return DefaultConfig().Build.Workers
}

// IncludePatterns returns the file include globs.
func IncludePatterns() []string {
	if cfg := loadConfigSafe(); cfg != nil && len(cfg.Corpus.Include) > 0 {
		return cfg.Corpus.Include
	}
	return append([]string(nil), walker.DefaultInclude...)
}

// ExcludePatterns returns the file exclude globs.
func ExcludePatterns() []string {
	if cfg := loadConfigSafe(); cfg != nil {
		return cfg.Corpus.Exclude
	}
	return nil
}

// ServeAddr returns the HTTP API listen address.
func ServeAddr() string {
	if v := os.Getenv("SNIPDEX_ADDR"); v != "" {
		return v
	}
	if cfg := loadConfigSafe(); cfg != nil && cfg.Serve.Addr != "" {
		return cfg.Serve.Addr
	}
	return DefaultConfig().Serve.Addr
}

// WatchDebounce returns the watch-mode debounce window.
func WatchDebounce() time.Duration {
	if cfg := loadConfigSafe(); cfg != nil && cfg.Watch.DebounceMs > 0 {
		return time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	}
	return time.Duration(DefaultConfig().Watch.DebounceMs) * time.Millisecond
}

// SanitizeEnabled reports whether MCP responses pass through the content
// sanitizer.
func SanitizeEnabled() bool {
	if v := os.Getenv("SNIPDEX_SANITIZE"); v != "" {
		return parseBool(v, true)
	}
	if cfg := loadConfigSafe(); cfg != nil {
		return cfg.MCP.Sanitize
	}
	return true
}

// BuildStrict reports whether builds fail on any diagnostic by default.
func BuildStrict() bool {
	if cfg := loadConfigSafe(); cfg != nil {
		return cfg.Build.Strict
	}
	return false
}

// BuildFailOn returns the diagnostic kinds that fail a build by default.
func BuildFailOn() []string {
	if cfg := loadConfigSafe(); cfg != nil {
		return cfg.Build.FailOn
	}
	return nil
}

// ConfigFilePath returns the canonical config file path for a corpus root.
func ConfigFilePath(root string) string {
	return filepath.Join(root, ".snipdex", "config.toml")
}

// GenerateConfig writes a starter config file for the given root. Fails if
// one already exists.
func GenerateConfig(root string) error {
	path := ConfigFilePath(root)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(generateTOMLContent(root)), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func generateTOMLContent(root string) string {
	var b strings.Builder
	b.WriteString("# snipdex configuration\n")
	b.WriteString("# Values here are overridden by SNIPDEX_* environment variables and CLI flags.\n")
	b.WriteString("\n")
	b.WriteString("[corpus]\n")
	b.WriteString(fmt.Sprintf("root = %q\n", root))
	b.WriteString("\n")
	b.WriteString("# Line that splits one file into multiple entries.\n")
	b.WriteString(fmt.Sprintf("# sentinel = %q\n", segment.DefaultSentinel))
	b.WriteString("\n")
	b.WriteString("# Glob patterns for files to index, relative to root.\n")
	b.WriteString("# include = [\"**/*.md\"]\n")
	b.WriteString("# exclude = []\n")
	b.WriteString("\n")
	b.WriteString("# Directory names skipped during walks, merged with the defaults.\n")
	b.WriteString("# skip_dirs = []\n")
	b.WriteString("\n")
	b.WriteString("[build]\n")
	b.WriteString("# workers = 4\n")
	b.WriteString("\n")
	b.WriteString("# Exit non-zero when a build produces diagnostics.\n")
	b.WriteString("# strict = false\n")
	b.WriteString("# fail_on = [\"duplicate_id\", \"malformed_front_matter\"]\n")
	b.WriteString("\n")
	b.WriteString("[serve]\n")
	b.WriteString("# addr = \"127.0.0.1:8787\"\n")
	b.WriteString("\n")
	b.WriteString("[watch]\n")
	b.WriteString("# debounce_ms = 2000\n")
	b.WriteString("\n")
	b.WriteString("[mcp]\n")
	b.WriteString("# Filter suspicious record content out of MCP tool results.\n")
	b.WriteString("# sanitize = true\n")
	return b.String()
}

// ShowConfig renders the effective configuration as TOML, with a header
// naming the config file in use.
func ShowConfig() (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	path := FindConfigFile()
	if path == "" {
		b.WriteString("# no config file found, showing defaults\n")
	} else {
		fmt.Fprintf(&b, "# config file: %s\n", path)
	}
	b.WriteString("\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
