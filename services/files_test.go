package services

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"monochrome/config"
	"monochrome/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalFLAC is a bare FLAC stream header, enough for type sniffing
var minimalFLAC = []byte("fLaC\x00\x00\x00\x22\x10\x00\x10\x00\x00\x00\x0F\x00\x00\x0F\x0A\xC4\x42\xF0\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")

func testConfig(t *testing.T) config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ExternalStorageDir = filepath.Join(root, "external")
	cfg.MusicDir = filepath.Join(root, "external", "Music")
	cfg.DocumentsDir = filepath.Join(root, "documents")
	cfg.DataDir = filepath.Join(root, "data")
	return cfg
}

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}
}

func names(files []types.AudioFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

func TestScanAudioFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"Artist1/Album1/01 - Song1.flac": minimalFLAC,
		"Artist1/Album1/02 - Song2.MP3":  []byte("ID3\x03\x00\x00\x00\x00\x00\x00"),
		"Artist2/Album2/Track.m4a":       []byte("m4a"),
		"Artist2/Album2/Track.wav":       []byte("wav"),
		"Artist2/Album2/Track.aac":       []byte("aac"),
		"Artist2/Album2/Track.ogg":       []byte("ogg"),
		"Artist3/notes.txt":              []byte("text file"),
		"Artist3/NoExt":                  []byte("not audio"),
		".hidden/Secret.flac":            minimalFLAC,
		"Artist3/.Hidden.mp3":            []byte("mp3"),
	})

	svc := NewFileService(testConfig(t))
	files, err := svc.ScanAudioFiles(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"01 - Song1.flac",
		"02 - Song2.MP3",
		"Track.aac",
		"Track.m4a",
		"Track.wav",
	}, names(files))

	for _, file := range files {
		assert.True(t, filepath.IsAbs(file.Path), file.Path)
		assert.Empty(t, file.URI)
		assert.Greater(t, file.Size, int64(0))
		assert.NotZero(t, file.LastModified)
		require.NotNil(t, file.Metadata)
		assert.NotEmpty(t, file.Metadata.Title)

		if file.Name == "02 - Song2.MP3" {
			assert.Equal(t, "mp3", file.Format)
			assert.Equal(t, "Song2", file.Metadata.Title)
			assert.Equal(t, 2, file.Metadata.TrackNumber)
			assert.Equal(t, "Artist1", file.Metadata.Artist)
			assert.Equal(t, "Album1", file.Metadata.Album)
		}
	}
}

func TestScanAudioFilesIncludesOggWhenEnabled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"a.ogg": []byte("ogg"),
		"b.mp3": []byte("mp3"),
	})

	cfg := testConfig(t)
	cfg.Scan.IncludeOgg = true

	files, err := NewFileService(cfg).ScanAudioFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ogg", "b.mp3"}, names(files))
}

func TestScanAudioFilesRootErrors(t *testing.T) {
	svc := NewFileService(testConfig(t))

	_, err := svc.ScanAudioFiles(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	file := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(file, []byte("mp3"), 0644))
	_, err = svc.ScanAudioFiles(file)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanAudioFilesEmptyDirectory(t *testing.T) {
	files, err := NewFileService(testConfig(t)).ScanAudioFiles(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestScanMusicDirectory(t *testing.T) {
	cfg := testConfig(t)
	svc := NewFileService(cfg)

	_, err := svc.ScanMusicDirectory()
	assert.ErrorIs(t, err, ErrNotFound, "music directory not created yet")

	writeTree(t, cfg.MusicDir, map[string][]byte{"Artist/Album/Song.flac": minimalFLAC})
	files, err := svc.ScanMusicDirectory()
	require.NoError(t, err)
	assert.Equal(t, []string{"Song.flac"}, names(files))

	// a directory picked through settings wins over the configured one
	picked := t.TempDir()
	writeTree(t, picked, map[string][]byte{"Other.mp3": []byte("mp3")})
	require.NoError(t, cfg.SaveSettings(&config.UserSettings{MusicDir: picked}))

	files, err = svc.ScanMusicDirectory()
	require.NoError(t, err)
	assert.Equal(t, []string{"Other.mp3"}, names(files))
}

func TestExtractMetadataFromPath(t *testing.T) {
	tests := []struct {
		name                string
		filePath            string
		expectedTitle       string
		expectedArtist      string
		expectedAlbum       string
		expectedTrackNumber int
	}{
		{"standard structure with track number", "Artist Name/Album Name/01 - Song Title.flac", "Song Title", "Artist Name", "Album Name", 1},
		{"double digit track number", "The Beatles/Abbey Road/12 - Come Together.flac", "Come Together", "The Beatles", "Abbey Road", 12},
		{"track number with dot", "Artist/Album/3. Track Name.mp3", "Track Name", "Artist", "Album", 3},
		{"no track number", "Artist/Album/Song Title.m4a", "Song Title", "Artist", "Album", 0},
		{"single directory level", "Artist/Song.mp3", "Song", "", "Artist", 0},
		{"flat file", "Song.flac", "Song", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata := extractMetadataFromPath(tt.filePath)

			assert.Equal(t, tt.expectedTitle, metadata.Title)
			assert.Equal(t, tt.expectedArtist, metadata.Artist)
			assert.Equal(t, tt.expectedAlbum, metadata.Album)
			assert.Equal(t, tt.expectedTrackNumber, metadata.TrackNumber)
		})
	}
}

func TestGetContentType(t *testing.T) {
	svc := NewFileService(testConfig(t))

	tests := []struct {
		filePath     string
		expectedType string
	}{
		{"test.flac", "audio/flac"},
		{"test.FLAC", "audio/flac"},
		{"test.mp3", "audio/mpeg"},
		{"test.m4a", "audio/mp4"},
		{"test.wav", "audio/wav"},
		{"test.aac", "audio/aac"},
		{"test.txt", "application/octet-stream"},
		{"test", "application/octet-stream"},
		{"Artist/Album/Song.mp3", "audio/mpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			assert.Equal(t, tt.expectedType, svc.GetContentType(tt.filePath))
		})
	}
}

func TestDetectContentTypeSniffsBytes(t *testing.T) {
	assert.Equal(t, "audio/x-flac", DetectContentType(minimalFLAC, "mislabeled.bin"))
	assert.Equal(t, "audio/mpeg", DetectContentType([]byte("plain"), "song.mp3"))
	assert.Equal(t, "audio/mpeg", DetectContentType(nil, "song.mp3"))
}

func TestReadFileBytes(t *testing.T) {
	cfg := testConfig(t)
	writeTree(t, cfg.ExternalStorageDir, map[string][]byte{"Music/a.flac": minimalFLAC})
	svc := NewFileService(cfg)
	path := filepath.Join(cfg.ExternalStorageDir, "Music", "a.flac")

	locations := []string{
		path,
		"file://" + path,
		"content://com.android.externalstorage.documents/document/primary%3AMusic%2Fa.flac",
	}

	for _, location := range locations {
		t.Run(location, func(t *testing.T) {
			result, err := svc.ReadFileBytes(location)
			require.NoError(t, err)
			assert.Equal(t, len(minimalFLAC), result.Size)
			assert.Equal(t, "audio/x-flac", result.ContentType)

			decoded, err := base64.StdEncoding.DecodeString(result.Data)
			require.NoError(t, err)
			assert.Equal(t, minimalFLAC, decoded)
			assert.NotContains(t, result.Data, "\n")
		})
	}
}

func TestReadFileBytesErrors(t *testing.T) {
	svc := NewFileService(testConfig(t))

	_, err := svc.ReadFileBytes("")
	assert.ErrorIs(t, err, ErrPathRequired)

	_, err = svc.ReadFileBytes(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "File not found")

	_, err = svc.ReadFileBytes("relative/song.mp3")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ReadFileBytes("http://example.com/song.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateFilePath(t *testing.T) {
	svc := NewFileService(testConfig(t))

	assert.NoError(t, svc.ValidateFilePath("Artist/Album/Song.flac"))
	assert.Error(t, svc.ValidateFilePath("../etc/passwd"))
	assert.Error(t, svc.ValidateFilePath("/etc/passwd"))
	assert.Error(t, svc.ValidateFilePath("  "))
}

func BenchmarkMetadataExtraction(b *testing.B) {
	testPath := "Test Artist/Test Album/01 - Test Song.flac"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		extractMetadataFromPath(testPath)
	}
}
