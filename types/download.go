package types

// DownloadStatus represents the lifecycle state of a download record
type DownloadStatus string

const (
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusCompleted   DownloadStatus = "completed"
	DownloadStatusFailed      DownloadStatus = "failed"
)

// IsTerminal returns true once the download can no longer change state
func (s DownloadStatus) IsTerminal() bool {
	return s == DownloadStatusCompleted || s == DownloadStatusFailed
}

// DownloadRecord represents one download attempt.
// EndTime is only set in a terminal state and Error only when failed.
type DownloadRecord struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ArtistName     string         `json:"artistName,omitempty"`
	Progress       float64        `json:"progress"` // 0-100 percentage
	Status         DownloadStatus `json:"status"`
	StartTime      int64          `json:"startTime"`         // ms since epoch
	EndTime        int64          `json:"endTime,omitempty"` // ms since epoch
	FileSize       int64          `json:"fileSize"`
	DownloadedSize int64          `json:"downloadedSize"`
	Error          string         `json:"error,omitempty"`
}

// Duration returns the elapsed milliseconds of a finished download, 0 while active
func (r DownloadRecord) Duration() int64 {
	if r.EndTime == 0 {
		return 0
	}
	return r.EndTime - r.StartTime
}
