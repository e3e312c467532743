package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soyunomas/dupescan/internal/utils"
)

// Render escribe el reporte en w con el formato indicado.
func Render(w io.Writer, r *Report, format Format) error {
	chunks, err := renderChunks(r, format)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if _, err := w.Write(c); err != nil {
			return fmt.Errorf("error escribiendo reporte: %w", err)
		}
	}
	return nil
}

// renderChunks genera la salida como una lista de bloques (cabecera, un
// bloque por grupo, pie) para poder escribirlos con una sola llamada
// vectorizada.
func renderChunks(r *Report, format Format) ([][]byte, error) {
	switch format {
	case FormatHuman:
		return renderHuman(r), nil
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error generando JSON: %w", err)
		}
		return [][]byte{data, []byte("\n")}, nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("error generando YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("error generando YAML: %w", err)
		}
		return [][]byte{buf.Bytes()}, nil
	case FormatFdupes:
		return renderFdupes(r), nil
	case FormatScript:
		return renderScript(r), nil
	default:
		return nil, fmt.Errorf("formato de salida no soportado: %s", format)
	}
}

func renderHuman(r *Report) [][]byte {
	var chunks [][]byte

	var head bytes.Buffer
	fmt.Fprintf(&head, "🚀 Dupescan - Escaneado: %s\n", r.Metadata.ScannedPath)
	fmt.Fprintf(&head, "⚖️  Estrategia: Mantener %s | 🔐 %s\n", strings.ToUpper(r.Metadata.Strategy), r.Metadata.Algorithm)
	fmt.Fprintln(&head, "------------------------------------------------")
	if len(r.Groups) == 0 {
		fmt.Fprintln(&head, "✅ ¡Limpio! No se encontraron duplicados.")
	} else {
		fmt.Fprintln(&head, "🔴 DUPLICADOS ENCONTRADOS:")
	}
	chunks = append(chunks, head.Bytes())

	for _, g := range r.Groups {
		var b bytes.Buffer
		fmt.Fprintf(&b, "   📦 Grupo (Size: %s) | 👑 KEEPER: %s\n", utils.ByteCountDecimal(g.Size), g.Keeper.Path)
		for _, hl := range g.HardLinks {
			fmt.Fprintf(&b, "      🔗 [HardLink]: %s (0B)\n", hl)
		}
		for _, v := range g.Victims {
			fmt.Fprintf(&b, "      🗑️  [Candidato]: %s\n", v.Path)
		}
		fmt.Fprintln(&b)
		chunks = append(chunks, b.Bytes())
	}

	var foot bytes.Buffer
	if len(r.Faults) > 0 {
		fmt.Fprintf(&foot, "⚠️  %d ruta(s) no se pudieron leer:\n", len(r.Faults))
		for _, f := range r.Faults {
			fmt.Fprintf(&foot, "      ❌ [%s] %s: %s\n", f.Kind, f.Path, f.Error)
		}
	}
	fmt.Fprintln(&foot, "------------------------------------------------")
	fmt.Fprintf(&foot, "🏁 Escaneo terminado en %s. Archivos: %d | Grupos: %d | Candidatos a borrar: %d\n",
		r.Metadata.Duration, r.Summary.TotalFilesScanned, r.Summary.TotalGroups, r.Summary.TotalDuplicates)
	fmt.Fprintf(&foot, "💾 Espacio recuperable: %s\n", r.Summary.BytesSavedHuman)
	chunks = append(chunks, foot.Bytes())

	return chunks
}

// renderFdupes imita la salida de fdupes: una ruta por línea y una línea en
// blanco entre grupos.
func renderFdupes(r *Report) [][]byte {
	chunks := make([][]byte, 0, len(r.Groups))
	for _, g := range r.Groups {
		var b bytes.Buffer
		for _, p := range g.Files {
			b.WriteString(p)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
		chunks = append(chunks, b.Bytes())
	}
	return chunks
}

// renderScript genera un script de revisión. Todas las órdenes rm salen
// comentadas: el usuario decide qué descomentar.
func renderScript(r *Report) [][]byte {
	var head bytes.Buffer
	fmt.Fprintf(&head, "#!/bin/sh\n")
	fmt.Fprintf(&head, "# Generado por Dupescan (%s, keep=%s)\n", r.Metadata.Algorithm, r.Metadata.Strategy)
	fmt.Fprintf(&head, "# Revisa y descomenta las líneas que quieras ejecutar.\n\n")

	chunks := [][]byte{head.Bytes()}
	for _, g := range r.Groups {
		if len(g.Victims) == 0 {
			continue
		}
		var b bytes.Buffer
		fmt.Fprintf(&b, "# Group Hash: %s\n", g.Digest)
		fmt.Fprintf(&b, "# Keeper: %s\n", g.Keeper.Path)
		for _, v := range g.Victims {
			fmt.Fprintf(&b, "# rm -v %s\n", shellQuote(v.Path))
		}
		b.WriteByte('\n')
		chunks = append(chunks, b.Bytes())
	}
	return chunks
}

// shellQuote usa comillas simples: dentro de ellas sh no expande nada.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
