package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mordilloSan/go-logger/logger"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/soyunomas/dupescan/internal/config"
	"github.com/soyunomas/dupescan/internal/engine"
	"github.com/soyunomas/dupescan/internal/report"
	"github.com/soyunomas/dupescan/internal/scanner"
)

const version = "2.0.0"

// cliOptions guarda los flags tal como los entrega kingpin. Un valor vacío
// significa "usar la configuración".
type cliOptions struct {
	Root       *string
	Config     *string
	Format     *string
	Keep       *string
	Algorithm  *string
	MinSize    *string
	Symlinks   *string
	Excludes   *[]string
	Workers    *string
	NoPreHash  *bool
	Output     *string
	Set        *[]string
	Verbose    *bool
	Quiet      *bool
	DumpConfig *bool
}

func newApp() (*kingpin.Application, *cliOptions) {
	app := kingpin.New("dupescan", "Busca archivos duplicados por contenido (solo lectura).")
	app.Version(version)
	app.HelpFlag.Short('h')

	o := &cliOptions{}
	o.Root = app.Arg("root", "Directorio a escanear (por defecto, la raíz del sistema)").String()
	o.Config = app.Flag("config", "Archivo de configuración INI").Short('c').Envar("DUPESCAN_CONFIG").Default(config.DefaultPath()).String()
	o.Format = app.Flag("format", "Salida: human, json, yaml, fdupes, script").Short('f').String()
	o.Keep = app.Flag("keep", "Criterio: shortest, longest, oldest, newest").Short('k').String()
	o.Algorithm = app.Flag("algorithm", "Hash de contenido: sha256, sha3-256, blake2b-256").Short('a').String()
	o.MinSize = app.Flag("min-size", "Tamaño mínimo (ej. 0, 512, 4K, 1M)").String()
	o.Symlinks = app.Flag("symlinks", "Enlaces simbólicos: skip, files, follow").String()
	o.Excludes = app.Flag("exclude", "Nombre de carpeta a ignorar (repetible, se suma a [scan] exclude)").Short('e').Strings()
	o.Workers = app.Flag("workers", "Goroutines de hashing").Short('w').String()
	o.NoPreHash = app.Flag("no-prehash", "Desactiva el pre-hash del primer bloque").Bool()
	o.Output = app.Flag("output", "Escribe el reporte en un archivo en lugar de stdout").Short('o').String()
	o.Set = app.Flag("set", "Cambia cualquier clave de configuración (clave:valor, repetible)").Strings()
	o.Verbose = app.Flag("verbose", "Muestra el progreso en detalle").Short('v').Bool()
	o.Quiet = app.Flag("quiet", "Solo muestra errores").Short('q').Bool()
	o.DumpConfig = app.Flag("dump-config", "Imprime la configuración efectiva y termina").Bool()

	return app, o
}

// overrides traduce los flags a "clave:valor". --set va al final y gana.
// --exclude no pasa por aquí: se suma a la lista configurada.
func (o *cliOptions) overrides() []string {
	var out []string
	add := func(key, value string) {
		if value != "" {
			out = append(out, key+":"+value)
		}
	}
	add("format", *o.Format)
	add("keep", *o.Keep)
	add("algorithm", *o.Algorithm)
	add("min_size", *o.MinSize)
	add("symlinks", *o.Symlinks)
	add("hash_workers", *o.Workers)
	if *o.NoPreHash {
		add("prehash", "false")
	}
	if *o.Verbose {
		add("level", "debug")
	}
	if *o.Quiet {
		add("level", "error")
	}
	return append(out, *o.Set...)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	app, opts := newApp()
	if _, err := app.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		return 1
	}

	if *opts.Verbose && *opts.Quiet {
		fmt.Fprintln(os.Stderr, "❌ Error: --verbose y --quiet son incompatibles")
		return 1
	}

	// 1. Configuración
	cfg, err := config.Load(*opts.Config)
	if err != nil {
		return die(stdout, err, false)
	}
	cfg.AddExcludes(*opts.Excludes)
	if err := cfg.ApplyOverrides(opts.overrides()); err != nil {
		return die(stdout, err, false)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return die(stdout, err, false)
	}
	jsonMode := settings.Format == report.FormatJSON

	initLogger(settings.Level)

	if *opts.DumpConfig {
		if _, err := cfg.WriteTo(stdout); err != nil {
			return die(stdout, err, false)
		}
		return 0
	}

	var ignore *scanner.IgnoreList
	if settings.IgnoreFile != "" {
		if ignore, err = scanner.LoadIgnoreFile(settings.IgnoreFile); err != nil {
			return die(stdout, err, jsonMode)
		}
		logger.Debugf("%d patrones de exclusión cargados de %s", ignore.Len(), settings.IgnoreFile)
	}

	root := *opts.Root
	if root == "" {
		root = defaultRoot()
	}

	// 2. Ejecutar Engine
	ctx, stop := interruptContext()
	defer stop()

	runner := engine.New(engine.Options{
		MinSize:     settings.MinSize,
		Excludes:    settings.Excludes,
		Ignore:      ignore,
		Symlinks:    settings.Symlinks,
		Algorithm:   settings.Algorithm,
		ChunkSize:   settings.ChunkSize,
		PreHash:     settings.PreHash,
		PreHashSize: settings.PreHashBlock,
		Workers:     settings.Workers,
	})

	logger.InfoKV("dupescan iniciado",
		"root", root,
		"algorithm", settings.Algorithm.Name,
		"keep", settings.Keep.String(),
		"workers", settings.Workers,
		"prehash", settings.PreHash)

	stats, err := runner.Run(ctx, root)
	if err != nil {
		return die(stdout, err, jsonMode)
	}

	// 3. Generar Reporte
	rep := report.Build(stats, report.Metadata{
		ScannedPath: root,
		Algorithm:   settings.Algorithm.Name,
		Timestamp:   time.Now(),
	}, settings.Keep)

	// 4. Salida
	if *opts.Output != "" {
		if err := report.WriteFile(*opts.Output, rep, settings.Format); err != nil {
			return die(stdout, err, jsonMode)
		}
		logger.Infof("📄 Reporte generado: %s", *opts.Output)
		return 0
	}

	if err := report.Render(stdout, rep, settings.Format); err != nil {
		return die(stdout, err, jsonMode)
	}
	return 0
}

// interruptContext se cancela con la primera señal de interrupción. Después
// se restaura el manejo por defecto, así una segunda señal termina el
// proceso aunque alguna lectura siga bloqueada.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

func initLogger(level string) {
	var levels []logger.Level
	switch level {
	case "debug":
		levels = logger.AllLevels() // Includes DEBUG
	case "warn":
		levels = []logger.Level{logger.WarnLevel, logger.ErrorLevel}
	case "error":
		levels = []logger.Level{logger.ErrorLevel}
	default:
		levels = []logger.Level{logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel}
	}
	logger.Init(logger.Config{
		Levels: levels,
	})
}

func die(stdout io.Writer, err error, jsonMode bool) int {
	if jsonMode {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(stdout, "%s\n", data)
	} else {
		fmt.Fprintf(os.Stderr, "❌ Error fatal: %v\n", err)
	}
	return 1
}
