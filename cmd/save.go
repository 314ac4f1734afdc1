package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"monochrome/services"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// progressReader reports the running byte count after every read
type progressReader struct {
	r          io.Reader
	read       int64
	onProgress func(read int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.onProgress(p.read)
	}
	return n, err
}

func newSaveCommand(withApp appRunner) *cobra.Command {
	var (
		filename string
		artist   string
		basePath string
	)

	cmd := &cobra.Command{
		Use:   "save <source>",
		Short: "Copy a file into the device music library and record it in the download history",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if filename == "" {
				filename = filepath.Base(args[0])
			}
			return saveFile(cmd, a, args[0], filename, artist, basePath)
		}),
	}
	cmd.Flags().StringVarP(&filename, "name", "n", "", "Target file name (default: source file name)")
	cmd.Flags().StringVar(&artist, "artist", "", "Artist name recorded in the history")
	cmd.Flags().StringVar(&basePath, "base-path", "", "Directory relative to external storage (default from config)")
	return cmd
}

func saveFile(cmd *cobra.Command, a *app, source, filename, artist, basePath string) error {
	file, err := os.Open(source)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	total := info.Size()

	id := uuid.New().String()
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)

	// The bar follows the tracker rather than the reader
	sub := a.tracker.AddListener(func() {
		for _, record := range a.tracker.ActiveDownloads() {
			if record.ID == id {
				_ = bar.Set64(record.DownloadedSize)
			}
		}
	})
	defer sub.Unsubscribe()

	a.tracker.StartDownload(id, name, artist)

	reader := &progressReader{r: file, onProgress: func(read int64) {
		progress := 100.0
		if total > 0 {
			progress = float64(read) / float64(total) * 100
		}
		a.tracker.UpdateProgress(id, progress, read, total)
	}}

	data, err := io.ReadAll(reader)
	if err != nil {
		a.tracker.FailDownload(id, err.Error())
		return err
	}

	result := services.NewDeviceSaver(a.cfg).SaveBlob(data, filename, services.SaveOptions{BasePath: basePath})
	if !result.Saved {
		reason := result.Error
		if reason == "" {
			reason = result.Reason
		}
		a.tracker.FailDownload(id, reason)
		return errors.New("save failed: " + reason)
	}

	a.tracker.CompleteDownload(id)
	_ = bar.Finish()

	out := cmd.OutOrStdout()
	if result.Fallback {
		fmt.Fprintf(out, "Saved to fallback location %s\n", result.Path)
	} else {
		fmt.Fprintf(out, "Saved to %s\n", result.Path)
	}
	if persist := a.tracker.LastPersist(); !persist.OK() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: history not saved: %v\n", persist.Err)
	}
	return nil
}
