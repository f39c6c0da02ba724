package cmd

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/session"
)

var downloadCmd = &cobra.Command{
	Use:   "download BUCKET OBJECT [FILE]",
	Short: "Download an object (\"-\" writes to stdout)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		target := path.Base(args[1])
		if len(args) == 3 {
			target = args[2]
		}

		n, err := writeTarget(cmd, target, func(w io.Writer) (int64, error) {
			return sess.Download(cmd.Context(), args[0], args[1], w)
		})
		if err != nil {
			return err
		}
		logger.Infof("Downloaded %d bytes", n)
		return nil
	}),
}

var downloadZipCmd = &cobra.Command{
	Use:   "download-zip BUCKET FILE [OBJECT...]",
	Short: "Download objects as a single zip archive",
	Args:  cobra.MinimumNArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		prefix, _ := cmd.Flags().GetString("prefix-path")
		n, err := writeTarget(cmd, args[1], func(w io.Writer) (int64, error) {
			return sess.DownloadZip(cmd.Context(), models.DownloadZipArgs{
				BucketName: args[0],
				Prefix:     prefix,
				Objects:    args[2:],
			}, w)
		})
		if err != nil {
			return err
		}
		logger.Infof("Downloaded %d bytes", n)
		return nil
	}),
}

// writeTarget runs fetch against target ("-" is the command output). A
// failed fetch removes the partially written file.
func writeTarget(cmd *cobra.Command, target string, fetch func(w io.Writer) (int64, error)) (int64, error) {
	if target == "-" {
		return fetch(cmd.OutOrStdout())
	}

	f, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", target, err)
	}

	n, err := fetch(f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", target, closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(target); rmErr != nil {
			logger.Warnf("Failed to remove %s: %v", target, rmErr)
		}
		return n, err
	}
	return n, nil
}

var uploadCmd = &cobra.Command{
	Use:   "upload BUCKET FILE [OBJECT]",
	Short: "Upload a local file",
	Args:  cobra.RangeArgs(2, 3),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[1], err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", args[1], err)
		}

		object := path.Base(args[1])
		if len(args) == 3 {
			object = args[2]
		}

		if err := sess.Upload(cmd.Context(), args[0], object, f, info.Size()); err != nil {
			return err
		}
		logger.Infof("Uploaded %s to %s/%s", args[1], args[0], object)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(downloadCmd, downloadZipCmd, uploadCmd)

	downloadZipCmd.Flags().String("prefix-path", "", "Object prefix the names are relative to")
}
