package cmd

import (
	"fmt"
	"text/tabwriter"

	"monochrome/format"
	"monochrome/services"
	"monochrome/types"

	"github.com/spf13/cobra"
)

func newScanCommand(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [folder]",
		Short: "List audio files in a folder, file:// URI or content:// tree URI",
		Long:  "Scan recursively lists audio files. Without an argument it scans the configured music directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			fileService := services.NewFileService(a.cfg)

			var files []types.AudioFile
			var err error
			if len(args) == 0 {
				files, err = fileService.ScanMusicDirectory()
			} else {
				var result *types.ScanResult
				result, err = fileService.PickFolder(args[0])
				if result != nil {
					files = result.Files
				}
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFORMAT\tSIZE\tARTIST\tALBUM")
			for _, f := range files {
				artist, album := "", ""
				if f.Metadata != nil {
					artist, album = f.Metadata.Artist, f.Metadata.Album
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Name, f.Format, format.FileSize(f.Size), artist, album)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d audio files\n", len(files))
			return nil
		}),
	}
	return cmd
}

func newReadCommand(withApp appRunner) *cobra.Command {
	var showData bool

	cmd := &cobra.Command{
		Use:   "read <path-or-uri>",
		Short: "Read a file and report its size and content type",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			result, err := services.NewFileService(a.cfg).ReadFileBytes(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "size: %s (%d bytes)\ncontent type: %s\n",
				format.FileSize(int64(result.Size)), result.Size, result.ContentType)
			if showData {
				fmt.Fprintln(cmd.OutOrStdout(), result.Data)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&showData, "data", false, "Print the base64 encoded contents")
	return cmd
}
