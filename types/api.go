package types

// AudioFile represents a discovered local audio file (FLAC, MP3, etc.).
// Exactly one of Path or URI is set depending on how the file was reached.
type AudioFile struct {
	Name         string         `json:"name"`
	Path         string         `json:"path,omitempty"`
	URI          string         `json:"uri,omitempty"`
	Size         int64          `json:"size"`
	LastModified int64          `json:"lastModified,omitempty"` // ms since epoch
	Format       string         `json:"format"`                 // "flac", "mp3", etc.
	Metadata     *AudioMetadata `json:"metadata,omitempty"`
}

// AudioMetadata represents metadata for an audio file
type AudioMetadata struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`
}

// ScanResult is returned by folder scans
type ScanResult struct {
	Files []AudioFile `json:"files"`
	Path  string      `json:"path,omitempty"`
	URI   string      `json:"uri,omitempty"`
}

// FileBytes is the payload of a byte read
type FileBytes struct {
	Data        string `json:"data"` // base64, no line wrapping
	Size        int    `json:"size"`
	ContentType string `json:"contentType"`
}

// SaveResult reports the outcome of saving a blob to the device
type SaveResult struct {
	Saved    bool   `json:"saved"`
	Path     string `json:"path,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}
