package main

import (
	"context"
	"os"

	"github.com/acm19/offload/internal/logger"
	"github.com/acm19/offload/internal/pics"
	"github.com/barasher/go-exiftool"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:              "offload",
	Short:            "Copy photos from a memory card into date folders",
	Long:             `Offload copies images from a camera card into MM-DD-YYYY folders named after the date each photo was taken.`,
	Version:          version,
	PersistentPreRun: applyGlobalFlags,
	SilenceUsage:     true,
}

var copyCmd = &cobra.Command{
	Use:   "copy [SOURCE_DIR [DEST_DIR]]",
	Short: "Copy images from the card into date folders",
	Long: `Walks SOURCE_DIR for images, works out the capture date of each one and copies it
into DEST_DIR/MM-DD-YYYY. Existing files are only overwritten when you say so.
Every run is appended to copy_log.txt in DEST_DIR.`,
	Args: cobra.RangeArgs(0, 2),
	Run:  runCopy,
}

var backupCmd = &cobra.Command{
	Use:   "backup DEST_DIR BUCKET",
	Short: "Backup date folders to S3",
	Long:  `Creates a tar.gz archive of each MM-DD-YYYY folder and uploads it to S3, skipping archives already stored with the same MD5 hash.`,
	Args:  cobra.ExactArgs(2),
	Run:   runBackup,
}

var (
	noColor       bool
	debug         bool
	maxConcurrent int
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI colours")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	backupCmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "c", 5, "Maximum concurrent uploads")

	rootCmd.AddCommand(copyCmd, backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func applyGlobalFlags(cmd *cobra.Command, args []string) {
	if noColor {
		color.NoColor = true
	}
	if debug {
		logger.Configure(os.Stderr, true)
	}
}

// resolveCopyOptions overrides the default source and destination with the
// positional arguments given.
func resolveCopyOptions(args []string) pics.OffloadOptions {
	opts := pics.DefaultOffloadOptions()
	if len(args) > 0 {
		opts.SourceDir = args[0]
	}
	if len(args) > 1 {
		opts.DestDir = args[1]
	}
	return opts
}

func runCopy(cmd *cobra.Command, args []string) {
	opts := resolveCopyOptions(args)

	// exiftool is optional, the built-in EXIF reader covers JPEGs without it
	et, err := exiftool.NewExiftool()
	if err != nil {
		logger.Warn("exiftool unavailable, reading dates from JPEG EXIF only", "error", err)
		et = nil
	} else {
		defer et.Close()
	}

	term := newTerminal(os.Stdin, os.Stdout)
	offloader := pics.NewOffloader(pics.NewDateResolver(et), term, term, opts)

	logger.Info("Starting copy", "source", opts.SourceDir, "dest", opts.DestDir)
	if _, err := offloader.Run(opts.SourceDir, opts.DestDir); err != nil {
		logger.Error("Copy failed", "error", err)
		os.Exit(1)
	}
}

func runBackup(cmd *cobra.Command, args []string) {
	destDir := args[0]
	bucket := args[1]

	if info, err := os.Stat(destDir); err != nil {
		logger.Error("Destination directory does not exist", "directory", destDir, "error", err)
		os.Exit(1)
	} else if !info.IsDir() {
		logger.Error("Destination path is not a directory", "path", destDir)
		os.Exit(1)
	}

	ctx := context.Background()
	backup, err := pics.NewS3Backup(ctx)
	if err != nil {
		logger.Error("Failed to initialise backup", "error", err)
		os.Exit(1)
	}

	events := make(chan pics.BackupEvent, 64)
	done := make(chan struct{})
	go backupProgress(os.Stdout, events, done)

	logger.Info("Starting backup", "dest", destDir, "bucket", bucket, "max_concurrent", maxConcurrent)
	err = backup.BackupFolders(ctx, destDir, bucket, maxConcurrent, events)
	close(events)
	<-done
	if err != nil {
		logger.Error("Backup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Backup completed successfully")
}
