package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/go-ini/ini"

	"github.com/soyunomas/dupescan/internal/engine"
	"github.com/soyunomas/dupescan/internal/hasher"
	"github.com/soyunomas/dupescan/internal/report"
	"github.com/soyunomas/dupescan/internal/scanner"
	"github.com/soyunomas/dupescan/internal/utils"
)

// Config es la configuración INI de dupescan. Las claves ausentes toman su
// valor por defecto al leerse.
type Config struct {
	configPath string
	ini        *ini.File
}

type FileHashConfig struct {
	Algorithm    string
	Chunk        string
	PreHash      bool
	PreHashBlock string
}

type ScanConfig struct {
	MinSize    string
	Symlinks   string
	Exclude    []string
	IgnoreFile string
}

type PerformanceConfig struct {
	HashWorkers int
}

type OutputConfig struct {
	Format string
	Keep   string
}

type VerboseConfig struct {
	Level string // debug, info, warn, error
}

// Settings son los valores ya validados y convertidos a los tipos que usan
// el motor y el reporte.
type Settings struct {
	Algorithm    *hasher.Algorithm
	ChunkSize    int
	PreHash      bool
	PreHashBlock int
	MinSize      int64
	Symlinks     scanner.SymlinkMode
	Excludes     []string
	IgnoreFile   string
	Workers      int
	Format       report.Format
	Keep         engine.KeepStrategy
	Level        string
}

var logLevels = []string{"debug", "info", "warn", "error"}

// overrideKeys asocia cada clave de --set con su sección.
var overrideKeys = map[string]string{
	"algorithm":     "filehash",
	"chunk":         "filehash",
	"prehash":       "filehash",
	"prehash_block": "filehash",
	"min_size":      "scan",
	"symlinks":      "scan",
	"exclude":       "scan",
	"ignore_file":   "scan",
	"hash_workers":  "performance",
	"format":        "output",
	"keep":          "output",
	"level":         "verbose",
}

// DefaultPath devuelve $XDG_CONFIG_HOME/dupescan/config (o su equivalente
// en cada sistema).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dupescan", "config")
}

// Default crea una configuración en memoria con todos los valores por
// defecto.
func Default() *Config {
	cfg := &Config{ini: ini.Empty()}
	cfg.setDefaults()
	return cfg
}

// Load lee path. Si path no existe se usan los valores por defecto; el
// archivo nunca se crea.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.configPath = path
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("no se pudo cargar la configuración %s: %w", path, err)
	}
	return &Config{configPath: path, ini: iniFile}, nil
}

// Path devuelve la ruta de origen ("" si es la configuración por defecto).
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) setDefaults() {
	fh := c.ini.Section("filehash")
	fh.Key("algorithm").SetValue("sha256")
	fh.Key("chunk").SetValue("64K")
	fh.Key("prehash").SetValue("true")
	fh.Key("prehash_block").SetValue("4K")

	sc := c.ini.Section("scan")
	sc.Key("min_size").SetValue("0")
	sc.Key("symlinks").SetValue(string(scanner.SymlinkSkip))
	sc.Key("exclude").SetValue("")
	sc.Key("ignore_file").SetValue("")

	c.ini.Section("performance").Key("hash_workers").SetValue(strconv.Itoa(runtime.NumCPU()))

	out := c.ini.Section("output")
	out.Key("format").SetValue(string(report.FormatHuman))
	out.Key("keep").SetValue(engine.KeepShortestPath.String())

	c.ini.Section("verbose").Key("level").SetValue("info")
}

// GetFileHashConfig returns the hashing configuration
func (c *Config) GetFileHashConfig() *FileHashConfig {
	section := c.ini.Section("filehash")
	return &FileHashConfig{
		Algorithm:    section.Key("algorithm").MustString("sha256"),
		Chunk:        section.Key("chunk").MustString("64K"),
		PreHash:      section.Key("prehash").MustBool(true),
		PreHashBlock: section.Key("prehash_block").MustString("4K"),
	}
}

// GetScanConfig returns the traversal configuration
func (c *Config) GetScanConfig() *ScanConfig {
	section := c.ini.Section("scan")
	cfg := &ScanConfig{
		MinSize:    section.Key("min_size").MustString("0"),
		Symlinks:   section.Key("symlinks").MustString(string(scanner.SymlinkSkip)),
		IgnoreFile: section.Key("ignore_file").String(),
		Exclude:    splitList(section.Key("exclude").String()),
	}
	return cfg
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	return &PerformanceConfig{
		HashWorkers: c.ini.Section("performance").Key("hash_workers").MustInt(runtime.NumCPU()),
	}
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	section := c.ini.Section("output")
	return &OutputConfig{
		Format: section.Key("format").MustString(string(report.FormatHuman)),
		Keep:   section.Key("keep").MustString(engine.KeepShortestPath.String()),
	}
}

// GetVerboseConfig returns the verbosity configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	return &VerboseConfig{
		Level: strings.ToLower(c.ini.Section("verbose").Key("level").MustString("info")),
	}
}

// Set cambia el valor de una clave de --set.
func (c *Config) Set(key, value string) error {
	section, ok := overrideKeys[key]
	if !ok {
		return fmt.Errorf("clave no soportada '%s' (soportadas: %s)", key, strings.Join(supportedKeys(), ", "))
	}
	c.ini.Section(section).Key(key).SetValue(value)
	return nil
}

// AddExcludes suma nombres de carpeta a scan.exclude sin reemplazar los
// que ya trae la configuración.
func (c *Config) AddExcludes(names []string) {
	key := c.ini.Section("scan").Key("exclude")
	merged := splitList(key.String())
	for _, n := range splitList(strings.Join(names, ",")) {
		if !slices.Contains(merged, n) {
			merged = append(merged, n)
		}
	}
	key.SetValue(strings.Join(merged, ","))
}

// ApplyOverrides aplica valores de línea de comandos con formato "clave:valor",
// por ejemplo "algorithm:sha3-256" o "keep:oldest".
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("formato inválido '%s', se esperaba 'clave:valor'", override)
		}
		if err := c.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return err
		}
	}
	return nil
}

// Validate comprueba todos los valores.
func (c *Config) Validate() error {
	_, err := c.Settings()
	return err
}

// Settings valida la configuración y la convierte a tipos concretos.
func (c *Config) Settings() (*Settings, error) {
	// Must* reemplaza valores mal formados por el defecto: se revisan antes.
	errs := c.checkRaw()

	fh := c.GetFileHashConfig()
	sc := c.GetScanConfig()
	perf := c.GetPerformanceConfig()
	out := c.GetOutputConfig()
	verbose := c.GetVerboseConfig()

	s := &Settings{
		PreHash:    fh.PreHash,
		Excludes:   sc.Exclude,
		IgnoreFile: sc.IgnoreFile,
		Workers:    perf.HashWorkers,
		Level:      verbose.Level,
	}

	var err error
	if s.Algorithm, err = hasher.Lookup(fh.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if s.ChunkSize, err = positiveSize("chunk", fh.Chunk); err != nil {
		errs = append(errs, err)
	}
	if s.PreHashBlock, err = positiveSize("prehash_block", fh.PreHashBlock); err != nil {
		errs = append(errs, err)
	}
	if s.MinSize, err = utils.ParseHumanSize(sc.MinSize); err != nil {
		errs = append(errs, fmt.Errorf("min_size: %w", err))
	} else if s.MinSize < 0 {
		errs = append(errs, fmt.Errorf("min_size no puede ser negativo: %s", sc.MinSize))
	}
	if s.Symlinks, err = scanner.ParseSymlinkMode(sc.Symlinks); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateHashWorkers(perf.HashWorkers); err != nil {
		errs = append(errs, err)
	}
	if s.Format, err = report.ParseFormat(out.Format); err != nil {
		errs = append(errs, err)
	}
	if s.Keep, err = engine.ParseKeepStrategy(out.Keep); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateLevel(verbose.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuración inválida: %w", errors.Join(errs...))
	}
	return s, nil
}

func (c *Config) checkRaw() []error {
	var errs []error
	if key := c.ini.Section("filehash").Key("prehash"); key.String() != "" {
		if _, err := key.Bool(); err != nil {
			errs = append(errs, fmt.Errorf("prehash: %w", err))
		}
	}
	if key := c.ini.Section("performance").Key("hash_workers"); key.String() != "" {
		if _, err := key.Int(); err != nil {
			errs = append(errs, fmt.Errorf("hash_workers: %w", err))
		}
	}
	return errs
}

// WriteTo escribe la configuración efectiva en formato INI.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	return c.ini.WriteTo(w)
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash_workers debe ser al menos 1, recibido: %d", workers)
	}
	if workers > 256 {
		return fmt.Errorf("hash_workers no debería superar 256, recibido: %d", workers)
	}
	return nil
}

// ValidateLevel validates a log level name
func ValidateLevel(level string) error {
	for _, l := range logLevels {
		if l == level {
			return nil
		}
	}
	return fmt.Errorf("nivel de log no soportado: %s (soportados: %s)", level, strings.Join(logLevels, ", "))
}

func positiveSize(key, value string) (int, error) {
	n, err := utils.ParseHumanSize(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s debe ser mayor que cero: %s", key, value)
	}
	return int(n), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func supportedKeys() []string {
	return []string{"algorithm", "chunk", "prehash", "prehash_block", "min_size", "symlinks",
		"exclude", "ignore_file", "hash_workers", "format", "keep", "level"}
}
