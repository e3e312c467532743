package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/soyunomas/dupescan/internal/engine"
	"github.com/soyunomas/dupescan/internal/entities"
)

func sampleStats(t *testing.T) *engine.Stats {
	digest, err := entities.ParseDigest("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	return &engine.Stats{
		TotalFilesScanned: 5,
		BytesHashed:       20,
		Duration:          1500 * time.Millisecond,
		Groups: []*entities.DuplicateGroup{{
			Size:   5,
			Digest: digest,
			Files: []*entities.FileRecord{
				{Path: "/data/backup/a.txt", Size: 5, ModTime: now, DeviceID: 1, Inode: 10},
				{Path: "/data/a.txt", Size: 5, ModTime: now, DeviceID: 1, Inode: 11},
				{Path: "/data/link-to-a.txt", Size: 5, ModTime: now, DeviceID: 1, Inode: 11},
				{Path: "/data/it's here.txt", Size: 5, ModTime: now, DeviceID: 1, Inode: 12},
			},
		}},
		DuplicatesCount: 3,
		Faults: []*entities.Fault{
			entities.NewFault(entities.HashFailure, "/data/gone.txt", errors.New("no existe")),
		},
	}
}

func sampleReport(t *testing.T) *Report {
	return Build(sampleStats(t), Metadata{ScannedPath: "/data", Algorithm: "sha256", Timestamp: time.Unix(1700000000, 0)}, engine.KeepShortestPath)
}

func TestBuildSelectsKeeperAndHardLinks(t *testing.T) {
	r := sampleReport(t)

	require.Len(t, r.Groups, 1)
	g := r.Groups[0]
	assert.Equal(t, "/data/a.txt", g.Keeper.Path)
	assert.Equal(t, []string{"/data/link-to-a.txt"}, g.HardLinks)
	assert.Equal(t, []Victim{{Path: "/data/backup/a.txt", Size: 5}, {Path: "/data/it's here.txt", Size: 5}}, g.Victims)
	assert.Equal(t, []string{"/data/backup/a.txt", "/data/a.txt", "/data/link-to-a.txt", "/data/it's here.txt"}, g.Files, "files keep traversal order")

	assert.Equal(t, int64(2), r.Summary.TotalDuplicates)
	assert.Equal(t, int64(1), r.Summary.TotalHardLinks)
	assert.Equal(t, uint64(10), r.Summary.BytesSaved)
	assert.Equal(t, "10B", r.Summary.BytesSavedHuman)
	assert.Equal(t, 1, r.Summary.TotalFaults)
	assert.Equal(t, "shortest", r.Metadata.Strategy)
	assert.Equal(t, "1.5s", r.Metadata.Duration)

	require.Len(t, r.Faults, 1)
	assert.Equal(t, FaultResult{Kind: "HashFailure", Path: "/data/gone.txt", Error: "no existe"}, r.Faults[0])
}

func TestBuildWithoutInodesHasNoHardLinks(t *testing.T) {
	stats := sampleStats(t)
	for _, f := range stats.Groups[0].Files {
		f.DeviceID, f.Inode = 0, 0
	}

	r := Build(stats, Metadata{}, engine.KeepLongestPath)
	assert.Empty(t, r.Groups[0].HardLinks)
	assert.Len(t, r.Groups[0].Victims, 3)
	assert.Equal(t, "/data/it's here.txt", r.Groups[0].Keeper.Path)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(&engine.Stats{}, Metadata{}, engine.KeepShortestPath)
	assert.Empty(t, r.Groups)
	assert.NotNil(t, r.Groups)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatHuman))
	assert.Contains(t, buf.String(), "No se encontraron duplicados")

	buf.Reset()
	require.NoError(t, Render(&buf, r, FormatFdupes))
	assert.Empty(t, buf.String())
}

func TestRenderFormatsContainPaths(t *testing.T) {
	r := sampleReport(t)

	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, r, f))
			out := buf.String()
			assert.Contains(t, out, "/data/a.txt")
			assert.Contains(t, out, "/data/backup/a.txt")
		})
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatJSON))

	var decoded struct {
		Summary struct {
			TotalDuplicates int64 `json:"total_duplicates"`
		} `json:"summary"`
		Groups []struct {
			Digest string `json:"digest"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, int64(2), decoded.Summary.TotalDuplicates)
	require.Len(t, decoded.Groups, 1)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", decoded.Groups[0].Digest)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, summary["total_duplicates"])
}

func TestRenderFdupes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatFdupes))
	assert.Equal(t, "/data/backup/a.txt\n/data/a.txt\n/data/link-to-a.txt\n/data/it's here.txt\n\n", buf.String())
}

func TestRenderScriptIsCommented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatScript))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "#!/bin/sh\n"))
	assert.Contains(t, out, `# rm -v '/data/it'\''s here.txt'`)
	assert.Contains(t, out, "# rm -v '/data/backup/a.txt'")
	assert.NotContains(t, out, "link-to-a.txt", "hardlinks free no space")

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		assert.True(t, strings.HasPrefix(line, "#"), "every line is a comment: %q", line)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, sampleReport(t), Format("xml")))
}

func TestWriteFileMatchesRender(t *testing.T) {
	r := sampleReport(t)
	dir := t.TempDir()

	for _, f := range Formats() {
		path := filepath.Join(dir, "out."+string(f))
		require.NoError(t, WriteFile(path, r, f))

		var want bytes.Buffer
		require.NoError(t, Render(&want, r, f))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want.String(), string(got), "format %s", f)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}
