package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mordilloSan/go-logger/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/dupescan/internal/entities"
	"github.com/soyunomas/dupescan/internal/hasher"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Config{Levels: []logger.Level{logger.ErrorLevel}})
	os.Exit(m.Run())
}

func createTestFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to create test file: %s", name)
	return path
}

func groupNames(groups []*entities.DuplicateGroup) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		names := make([]string, 0, len(g.Files))
		for _, f := range g.Files {
			names = append(names, filepath.Base(f.Path))
		}
		out = append(out, names)
	}
	return out
}

func TestRunFindsContentDuplicates(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "a.txt", "hello")
	createTestFile(t, root, "b.txt", "hello")
	createTestFile(t, root, "c.txt", "world")

	for _, prehash := range []bool{false, true} {
		stats, err := New(Options{PreHash: prehash}).Run(context.Background(), root)
		require.NoError(t, err)

		assert.Equal(t, [][]string{{"a.txt", "b.txt"}}, groupNames(stats.Groups), "prehash=%v", prehash)
		assert.Equal(t, int64(3), stats.TotalFilesScanned)
		assert.Equal(t, int64(1), stats.DuplicatesCount)
		assert.Equal(t, 3, stats.Candidates, "all three share size 5")
		assert.Equal(t, uint64(5), stats.Groups[0].Size)

		want, _, err := hasher.New(nil, 0).HashFile(context.Background(), filepath.Join(root, "a.txt"), -1)
		require.NoError(t, err)
		assert.Equal(t, want, stats.Groups[0].Digest)
		assert.Empty(t, stats.Faults)
	}
}

func TestRunGroupsEmptyFiles(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "x.bin", "")
	createTestFile(t, root, "y.bin", "")

	stats, err := New(Options{PreHash: true}).Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, stats.Groups, 1)
	assert.Equal(t, []string{"x.bin", "y.bin"}, groupNames(stats.Groups)[0])
	assert.Equal(t, uint64(0), stats.Groups[0].Size)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", stats.Groups[0].Digest.String())
}

func TestRunUniqueSizesAreNeverHashed(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "one", "1")
	createTestFile(t, root, "two", "22")
	createTestFile(t, root, "three", "333")

	stats, err := New(Options{PreHash: true}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, stats.Groups)
	assert.Zero(t, stats.Candidates)
	assert.Zero(t, stats.PreHashed)
	assert.Zero(t, stats.FullHashed)
	assert.Zero(t, stats.BytesHashed)
}

func TestRunPreHashSplitsBucketsBeforeFullHash(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "a", "AAAA-same-tail")
	createTestFile(t, root, "b", "BBBB-same-tail")
	createTestFile(t, root, "c", "AAAA-same-tail")

	stats, err := New(Options{PreHash: true, PreHashSize: 4}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "c"}}, groupNames(stats.Groups))
	assert.Equal(t, 3, stats.PreHashed)
	assert.Equal(t, 2, stats.FullHashed, "b differs in its first block")
	assert.Equal(t, int64(28), stats.BytesHashed)
}

func TestRunRootUnavailable(t *testing.T) {
	_, err := New(Options{}).Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrRootUnavailable))
}

func TestRunUnreadableSubdirectoryKeepsSiblings(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	root := t.TempDir()
	createTestFile(t, root, "a/one.txt", "same")
	createTestFile(t, root, "b/two.txt", "same")
	createTestFile(t, root, "locked/three.txt", "same")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	stats, err := New(Options{}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"one.txt", "two.txt"}}, groupNames(stats.Groups))
	require.Len(t, stats.Faults, 1)
	assert.True(t, errors.Is(stats.Faults[0], entities.ErrEntryUnavailable))
}

func TestResolveExcludesVanishedFile(t *testing.T) {
	root := t.TempDir()
	a := createTestFile(t, root, "a.txt", "hello")
	b := createTestFile(t, root, "b.txt", "hello")
	c := createTestFile(t, root, "c.txt", "hello")

	files := []*entities.FileRecord{
		{Path: a, Size: 5},
		{Path: b, Size: 5},
		{Path: c, Size: 5},
	}
	require.NoError(t, os.Remove(b))

	for _, prehash := range []bool{false, true} {
		res, err := New(Options{PreHash: prehash}).Resolve(context.Background(), files)
		require.NoError(t, err)

		assert.Equal(t, [][]string{{"a.txt", "c.txt"}}, groupNames(res.Groups))
		require.Len(t, res.Faults, 1)
		assert.Equal(t, entities.HashFailure, res.Faults[0].Kind)
		assert.Equal(t, b, res.Faults[0].Path)
		assert.True(t, errors.Is(res.Faults[0], os.ErrNotExist))
		// una vez del fallo y otra del error del sistema operativo
		assert.Equal(t, 2, strings.Count(res.Faults[0].Error(), b), "%v", res.Faults[0])
	}
}

func TestResolveExcludesFileThatChangedSize(t *testing.T) {
	root := t.TempDir()
	a := createTestFile(t, root, "a.txt", "hello")
	b := createTestFile(t, root, "b.txt", "hello")
	grown := createTestFile(t, root, "grown.txt", "hello, world")

	files := []*entities.FileRecord{
		{Path: a, Size: 5},
		{Path: b, Size: 5},
		{Path: grown, Size: 5},
	}

	res, err := New(Options{}).Resolve(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a.txt", "b.txt"}}, groupNames(res.Groups))
	require.Len(t, res.Faults, 1)
	assert.Equal(t, grown, res.Faults[0].Path)
	assert.True(t, errors.Is(res.Faults[0], entities.ErrHashFailure))
}

func TestResolveOrderIsDeterministic(t *testing.T) {
	root := t.TempDir()
	var files []*entities.FileRecord
	add := func(name, content string) {
		p := createTestFile(t, root, name, content)
		files = append(files, &entities.FileRecord{Path: p, Size: uint64(len(content))})
	}
	// tamaños y contenidos mezclados, en orden de recorrido arbitrario
	add("z1", "xxxxxxxx")
	add("m1", "yy")
	add("a1", "xxxxxxxx")
	add("m2", "yy")
	add("q1", "qqqqqqqq")
	add("q2", "qqqqqqqq")
	add("m3", "yy")
	add("u", "unique-content")

	var first [][]string
	for _, workers := range []int{1, 2, 8} {
		for _, prehash := range []bool{false, true} {
			res, err := New(Options{Workers: workers, PreHash: prehash}).Resolve(context.Background(), files)
			require.NoError(t, err)
			got := groupNames(res.Groups)
			if first == nil {
				first = got
				continue
			}
			assert.Equal(t, first, got, "workers=%d prehash=%v", workers, prehash)
		}
	}

	// tamaño ascendente, luego primera ruta; dentro del grupo, orden de entrada
	assert.Equal(t, [][]string{{"m1", "m2", "m3"}, {"q1", "q2"}, {"z1", "a1"}}, first)
}

func TestResolveIsIdempotent(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "a", "dup")
	createTestFile(t, root, "b", "dup")
	createTestFile(t, root, "sub/c", "dup")

	r := New(Options{PreHash: true})
	s1, err := r.Run(context.Background(), root)
	require.NoError(t, err)
	s2, err := r.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, groupNames(s1.Groups), groupNames(s2.Groups))
	assert.Equal(t, s1.Groups[0].Digest, s2.Groups[0].Digest)
}

func TestResolveWithAlternativeAlgorithm(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "a", "dup")
	createTestFile(t, root, "b", "dup")

	algo, err := hasher.Lookup("blake2b-256")
	require.NoError(t, err)

	stats, err := New(Options{Algorithm: algo, ChunkSize: 1}).Run(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, stats.Groups, 1)

	want, _, err := hasher.New(algo, 0).HashFile(context.Background(), filepath.Join(root, "a"), -1)
	require.NoError(t, err)
	assert.Equal(t, want, stats.Groups[0].Digest)
}

func TestResolveCanceled(t *testing.T) {
	root := t.TempDir()
	a := createTestFile(t, root, "a", "dup")
	b := createTestFile(t, root, "b", "dup")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Resolve(ctx, []*entities.FileRecord{{Path: a, Size: 3}, {Path: b, Size: 3}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrderForKeep(t *testing.T) {
	now := time.Now()
	files := []*entities.FileRecord{
		{Path: "/data/backup/photo.jpg", ModTime: now.Add(-time.Hour)},
		{Path: "/data/photo.jpg", ModTime: now},
		{Path: "/data/old/photo.jpg", ModTime: now.Add(-2 * time.Hour)},
		{Path: "/data/new/photo.jpg", ModTime: now.Add(time.Hour)},
	}

	tests := []struct {
		strategy KeepStrategy
		keeper   string
	}{
		{KeepShortestPath, "/data/photo.jpg"},
		{KeepLongestPath, "/data/backup/photo.jpg"},
		{KeepOldest, "/data/old/photo.jpg"},
		{KeepNewest, "/data/new/photo.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			ordered := OrderForKeep(files, tt.strategy)
			assert.Equal(t, tt.keeper, ordered[0].Path)
			assert.Len(t, ordered, len(files))
		})
	}

	assert.Equal(t, "/data/backup/photo.jpg", files[0].Path, "input order is untouched")
}

func TestOrderForKeepTieBreaks(t *testing.T) {
	same := time.Unix(1700000000, 0)
	files := []*entities.FileRecord{
		{Path: "/b/x", ModTime: same},
		{Path: "/a/x", ModTime: same},
		{Path: "/a/xy", ModTime: same},
	}

	ordered := OrderForKeep(files, KeepOldest)
	assert.Equal(t, []string{"/a/x", "/b/x", "/a/xy"}, []string{ordered[0].Path, ordered[1].Path, ordered[2].Path})
}

func TestParseKeepStrategy(t *testing.T) {
	s, err := ParseKeepStrategy("Newest")
	require.NoError(t, err)
	assert.Equal(t, KeepNewest, s)

	s, err = ParseKeepStrategy("")
	require.NoError(t, err)
	assert.Equal(t, KeepShortestPath, s)

	_, err = ParseKeepStrategy("random")
	assert.Error(t, err)
}

func TestGroupIndexOrdersBySizeThenFirstPath(t *testing.T) {
	idx := newGroupIndex()
	mk := func(size uint64, paths ...string) *entities.DuplicateGroup {
		g := &entities.DuplicateGroup{Size: size}
		for _, p := range paths {
			g.Files = append(g.Files, &entities.FileRecord{Path: p, Size: size})
		}
		return g
	}

	assert.True(t, idx.Add(mk(10, "/z", "/y")))
	assert.True(t, idx.Add(mk(2, "/m", "/n", "/o")))
	assert.True(t, idx.Add(mk(10, "/b", "/c")))

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 4, idx.Redundant())

	var firsts []string
	for _, g := range idx.Groups() {
		firsts = append(firsts, g.Files[0].Path)
	}
	assert.Equal(t, []string{"/m", "/b", "/z"}, firsts)
}
