package system

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, PrepareWorkDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrepareWorkDirRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.Error(t, PrepareWorkDir(file))
}

func TestCleanWorkDirKeepsReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alpha_2024-01-01_1_1.0", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha_2024-01-01_1_1.0", "RELEASE_NOTES.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.tmp"), []byte("x"), 0o644))
	report := filepath.Join(dir, "REPORT_01-01-2024_00-00-00.csv")
	require.NoError(t, os.WriteFile(report, []byte("h"), 0o644))

	removed, err := CleanWorkDir(dir, report)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "REPORT_01-01-2024_00-00-00.csv", entries[0].Name())
}

func TestCleanWorkDirKeepsLedgerPaths(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "REPORT_01-01-2024_00-00-00.csv")
	ledger := filepath.Join(dir, "history.db")
	nested := filepath.Join(dir, "state", "runs.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0o755))
	for _, p := range []string{report, ledger, nested, filepath.Join(dir, "alpha.apk")} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	removed, err := CleanWorkDir(dir, report, ledger, nested, filepath.Join(t.TempDir(), "elsewhere.db"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.FileExists(t, report)
	assert.FileExists(t, ledger)
	assert.FileExists(t, nested)
	assert.NoFileExists(t, filepath.Join(dir, "alpha.apk"))
}

func TestCleanWorkDirMissing(t *testing.T) {
	_, err := CleanWorkDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	info, err := Describe(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.True(t, filepath.IsAbs(info.WorkDir))
	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		assert.Greater(t, info.FreeBytes, uint64(0))
	}
}
