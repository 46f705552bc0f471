package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileExtension(t *testing.T) {
	assert.Equal(t, "json", GetFileExtension("konfig.JSON"))
	assert.Equal(t, "png", GetFileExtension("/a/b/photo.png"))
	assert.Equal(t, "", GetFileExtension("README"))
}

func TestIsImageFile(t *testing.T) {
	for _, f := range []string{"a.jpg", "a.JPEG", "a.png", "a.gif", "a.webp"} {
		assert.True(t, IsImageFile(f), f)
	}
	for _, f := range []string{"a.json", "a.txt", "a"} {
		assert.False(t, IsImageFile(f), f)
	}
}

func TestIsJSONFile(t *testing.T) {
	assert.True(t, IsJSONFile("konfig.json"))
	assert.True(t, IsJSONFile("/tmp/RESULTS.JSON"))
	assert.False(t, IsJSONFile("konfig.json.bak"))
	assert.False(t, IsJSONFile("json"))
}

func TestMatchesAccept(t *testing.T) {
	tests := []struct {
		file   string
		accept string
		want   bool
	}{
		{"konfig.json", ".json", true},
		{"konfig.JSON", ".json", true},
		{"photo.png", ".json", false},
		{"photo.png", "image/*", true},
		{"photo.webp", "image/*", true},
		{"results.json", "image/*", false},
		{"photo.jpg", "image/jpeg", true},
		{"photo.png", ".jpg, .png", true},
		{"data.json", "application/json", true},
		{"data.txt", "application/json", false},
		{"anything.bin", "", true},
		{"anything.bin", "*", true},
		{"anything.bin", " , ", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesAccept(tt.file, tt.accept), "%s vs %q", tt.file, tt.accept)
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	got := GenerateOutputFilename("/photos/site.jpg", "out", "", "_annotated", "png")
	assert.Equal(t, filepath.Join("out", "site_annotated.png"), got)

	got = GenerateOutputFilename("site", "out", "p_", "", "")
	assert.Equal(t, filepath.Join("out", "p_site.png"), got)
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(""))

	f := filepath.Join(dir, "x.txt")
	assert.False(t, FileExists(f))
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	assert.True(t, FileExists(f))
	assert.False(t, FileExists(dir))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "konfig.json", SanitizeFilename("konfig.json"))
	assert.Equal(t, "a_b_c.json", SanitizeFilename("a/b:c.json"))
	assert.Equal(t, "name", SanitizeFilename("  .name. "))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", FormatFileSize(2*1024*1024))
}
