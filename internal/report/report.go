package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/soyunomas/dupescan/internal/engine"
	"github.com/soyunomas/dupescan/internal/entities"
	"github.com/soyunomas/dupescan/internal/utils"
)

// --- ESTRUCTURAS PARA EL REPORTE FINAL ---

type Report struct {
	Summary  Summary       `json:"summary" yaml:"summary"`
	Groups   []GroupResult `json:"groups" yaml:"groups"`
	Faults   []FaultResult `json:"faults" yaml:"faults"`
	Metadata Metadata      `json:"metadata" yaml:"metadata"`
}

type Metadata struct {
	ScannedPath string    `json:"scanned_path" yaml:"scanned_path"`
	Strategy    string    `json:"strategy" yaml:"strategy"`
	Algorithm   string    `json:"algorithm" yaml:"algorithm"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Duration    string    `json:"duration_human" yaml:"duration_human"`
}

type Summary struct {
	TotalFilesScanned int64  `json:"total_files_scanned" yaml:"total_files_scanned"`
	TotalGroups       int    `json:"total_groups" yaml:"total_groups"`
	TotalDuplicates   int64  `json:"total_duplicates" yaml:"total_duplicates"`
	TotalHardLinks    int64  `json:"total_hard_links" yaml:"total_hard_links"`
	TotalFaults       int    `json:"total_faults" yaml:"total_faults"`
	BytesHashed       int64  `json:"bytes_hashed" yaml:"bytes_hashed"`
	BytesSaved        uint64 `json:"bytes_saved" yaml:"bytes_saved"`
	BytesSavedHuman   string `json:"bytes_saved_human" yaml:"bytes_saved_human"`
}

type GroupResult struct {
	Digest    string               `json:"digest" yaml:"digest"`
	Size      uint64               `json:"file_size" yaml:"file_size"`
	Files     []string             `json:"files" yaml:"files"` // orden del recorrido
	Keeper    *entities.FileRecord `json:"keeper" yaml:"keeper"`
	Victims   []Victim             `json:"victims" yaml:"victims"`
	HardLinks []string             `json:"hardlinks" yaml:"hardlinks"`
}

type Victim struct {
	Path string `json:"path" yaml:"path"`
	Size uint64 `json:"size" yaml:"size"`
}

type FaultResult struct {
	Kind  string `json:"kind" yaml:"kind"`
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

type sysID struct {
	dev, inode uint64
}

// Build convierte el resultado del motor en el reporte. El Keeper de cada
// grupo sale de la estrategia; los miembros que comparten dispositivo e
// inodo con uno anterior son hardlinks y no cuentan como espacio
// recuperable.
func Build(stats *engine.Stats, meta Metadata, strategy engine.KeepStrategy) *Report {
	if meta.Strategy == "" {
		meta.Strategy = strategy.String()
	}
	if meta.Duration == "" {
		meta.Duration = stats.Duration.String()
	}

	rep := &Report{
		Metadata: meta,
		Summary: Summary{
			TotalFilesScanned: stats.TotalFilesScanned,
			TotalGroups:       len(stats.Groups),
			TotalFaults:       len(stats.Faults),
			BytesHashed:       stats.BytesHashed,
		},
		Groups: []GroupResult{},
		Faults: []FaultResult{},
	}

	for _, group := range stats.Groups {
		ordered := engine.OrderForKeep(group.Files, strategy)
		keeper := ordered[0]

		gRes := GroupResult{
			Digest: group.Digest.String(),
			Size:   group.Size,
			Files:  group.Paths(),
			Keeper: keeper,
		}

		seenInodes := make(map[sysID]bool)
		markSeen(seenInodes, keeper)

		for _, file := range ordered[1:] {
			if isHardLink(seenInodes, file) {
				gRes.HardLinks = append(gRes.HardLinks, file.Path)
				rep.Summary.TotalHardLinks++
				continue
			}
			gRes.Victims = append(gRes.Victims, Victim{
				Path: file.Path,
				Size: file.Size,
			})
			rep.Summary.TotalDuplicates++
			rep.Summary.BytesSaved += file.Size
			markSeen(seenInodes, file)
		}

		rep.Groups = append(rep.Groups, gRes)
	}

	for _, f := range stats.Faults {
		rep.Faults = append(rep.Faults, FaultResult{
			Kind:  f.Kind.String(),
			Path:  f.Path,
			Error: errString(f.Err),
		})
	}

	rep.Summary.BytesSavedHuman = utils.ByteCountDecimal(rep.Summary.BytesSaved)
	return rep
}

// Sin inodo (Windows) no se puede saber si dos rutas son el mismo archivo.
func markSeen(seen map[sysID]bool, f *entities.FileRecord) {
	if f.Inode != 0 {
		seen[sysID{f.DeviceID, f.Inode}] = true
	}
}

func isHardLink(seen map[sysID]bool, f *entities.FileRecord) bool {
	return f.Inode != 0 && seen[sysID{f.DeviceID, f.Inode}]
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Format es el formato de salida del reporte.
type Format string

const (
	FormatHuman  Format = "human"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatFdupes Format = "fdupes"
	FormatScript Format = "script"
)

// Formats lista los formatos soportados.
func Formats() []Format {
	return []Format{FormatHuman, FormatJSON, FormatYAML, FormatFdupes, FormatScript}
}

// ParseFormat valida el nombre de un formato.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, 0, len(Formats()))
	for _, known := range Formats() {
		names = append(names, string(known))
	}
	return "", fmt.Errorf("formato de salida no soportado: %s (soportados: %s)", name, strings.Join(names, ", "))
}
