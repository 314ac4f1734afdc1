package services

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"monochrome/config"
	"monochrome/types"

	"github.com/dhowden/tag"
	"github.com/h2non/filetype"
)

var audioExtensions = map[string]bool{
	"flac": true,
	"mp3":  true,
	"m4a":  true,
	"wav":  true,
	"aac":  true,
}

var contentTypes = map[string]string{
	"flac": "audio/flac",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
}

var trackPrefix = regexp.MustCompile(`^(\d+)[\.\-\s]+(.+)`)

// FileService interface defines methods for local audio file access
type FileService interface {
	ScanAudioFiles(rootPath string) ([]types.AudioFile, error)
	ScanMusicDirectory() ([]types.AudioFile, error)
	ResolveLocation(location string) (string, error)
	ResolveFolder(selection string) (string, error)
	CheckAllowedPath(path string) error
	PickFolder(selection string) (*types.ScanResult, error)
	ReadFileBytes(location string) (*types.FileBytes, error)
	ExtractAudioMetadata(filePath string) *types.AudioMetadata
	ValidateFilePath(path string) error
	GetContentType(filePath string) string
}

// fileService implements the FileService interface
type fileService struct {
	cfg        config.Config
	extensions map[string]bool
}

// NewFileService creates a new file service
func NewFileService(cfg config.Config) FileService {
	extensions := make(map[string]bool, len(audioExtensions)+1)
	for ext := range audioExtensions {
		extensions[ext] = true
	}
	if cfg.Scan.IncludeOgg {
		extensions["ogg"] = true
	}

	return &fileService{cfg: cfg, extensions: extensions}
}

// ScanMusicDirectory scans the user's music directory
func (s *fileService) ScanMusicDirectory() ([]types.AudioFile, error) {
	files, err := s.ScanAudioFiles(s.cfg.EffectiveMusicDir())
	if err != nil {
		return nil, fmt.Errorf("music directory: %w", err)
	}
	return files, nil
}

// ScanAudioFiles recursively scans a directory for audio files, skipping
// hidden entries. Unreadable subdirectories are logged and skipped.
func (s *fileService) ScanAudioFiles(rootPath string) ([]types.AudioFile, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rootPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, rootPath)
	}

	files := []types.AudioFile{}

	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootPath {
				return fmt.Errorf("%w: %s: %v", ErrUnreadable, rootPath, err)
			}
			log.Printf("Error accessing path %s: %v", path, err)
			return nil // Continue walking, don't fail entire scan
		}

		if path != rootPath && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		format := audioFormat(path)
		if !s.extensions[format] {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			log.Printf("Error adding file %s to results: %v", path, err)
			return nil
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}

		files = append(files, types.AudioFile{
			Name:         d.Name(),
			Path:         absPath,
			Size:         fileInfo.Size(),
			LastModified: fileInfo.ModTime().UnixMilli(),
			Format:       format,
			Metadata:     s.ExtractAudioMetadata(path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// PickFolder resolves a folder selection and scans it
func (s *fileService) PickFolder(selection string) (*types.ScanResult, error) {
	path, err := s.ResolveFolder(selection)
	if err != nil {
		return nil, err
	}

	files, err := s.ScanAudioFiles(path)
	if err != nil {
		return nil, fmt.Errorf("could not access selected folder: %w", err)
	}

	return &types.ScanResult{Files: files, Path: path}, nil
}

// ReadFileBytes reads a file addressed by path or URI and returns it base64
// encoded along with its size and content type
func (s *fileService) ReadFileBytes(location string) (*types.FileBytes, error) {
	if strings.TrimSpace(location) == "" {
		return nil, ErrPathRequired
	}

	path, err := s.resolveLocation(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: File not found: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: Error reading file: %v", ErrUnreadable, err)
	}

	return &types.FileBytes{
		Data:        base64.StdEncoding.EncodeToString(data),
		Size:        len(data),
		ContentType: DetectContentType(data, path),
	}, nil
}

// GetContentType returns the MIME type for an audio file based on its extension
func (s *fileService) GetContentType(filePath string) string {
	return contentTypeForExt(filePath)
}

// DetectContentType sniffs the leading bytes and falls back to the extension
func DetectContentType(head []byte, filePath string) string {
	kind, err := filetype.Match(head)
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return contentTypeForExt(filePath)
}

func contentTypeForExt(filePath string) string {
	if contentType, ok := contentTypes[audioFormat(filePath)]; ok {
		return contentType
	}
	return "application/octet-stream"
}

func audioFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// ExtractAudioMetadata extracts metadata from an audio file with fallback logic
func (s *fileService) ExtractAudioMetadata(filePath string) *types.AudioMetadata {
	file, err := os.Open(filePath)
	if err != nil {
		log.Printf("Warning: Could not open audio file %s: %v", filePath, err)
		return extractMetadataFromPath(filePath)
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		// Untagged files are common, fall back to the path silently
		return extractMetadataFromPath(filePath)
	}

	metadata := &types.AudioMetadata{
		Title:  meta.Title(),
		Artist: meta.Artist(),
		Album:  meta.Album(),
	}
	metadata.TrackNumber, _ = meta.Track()

	if metadata.Title == "" || metadata.Artist == "" || metadata.Album == "" || metadata.TrackNumber == 0 {
		fallback := extractMetadataFromPath(filePath)
		if metadata.TrackNumber == 0 {
			metadata.TrackNumber = fallback.TrackNumber
		}
		if metadata.Title == "" {
			metadata.Title = fallback.Title
		}
		if metadata.Artist == "" {
			metadata.Artist = fallback.Artist
		}
		if metadata.Album == "" {
			metadata.Album = fallback.Album
		}
	}

	return metadata
}

// extractMetadataFromPath reads Artist/Album/NN - Title.ext path layouts
func extractMetadataFromPath(filePath string) *types.AudioMetadata {
	metadata := &types.AudioMetadata{}

	parts := strings.Split(filepath.ToSlash(filePath), "/")
	filename := filepath.Base(filePath)

	if len(parts) >= 3 {
		metadata.Artist = parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		metadata.Album = parts[len(parts)-2]
	}

	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if matches := trackPrefix.FindStringSubmatch(title); len(matches) > 2 {
		title = matches[2]
		if trackNum, err := strconv.Atoi(matches[1]); err == nil {
			metadata.TrackNumber = trackNum
		}
	}

	metadata.Title = title
	return metadata
}

// ValidateFilePath checks for path traversal attempts and other security issues
func (s *fileService) ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path not allowed")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed")
	}
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("absolute paths not allowed")
	}
	return nil
}
