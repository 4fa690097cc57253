package pics

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acm19/offload/internal/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by backups
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Backup defines the interface for backing up date folders to S3
type Backup interface {
	// BackupFolders archives every date folder under destDir and uploads it
	// to bucket, skipping archives S3 already holds with the same MD5.
	// progressChan, when set, receives one event per folder as it finishes
	// and must be drained while the backup runs.
	BackupFolders(ctx context.Context, destDir, bucket string, maxConcurrent int, progressChan chan<- BackupEvent) error
}

// s3Backup implements the Backup interface
type s3Backup struct {
	client     S3Client
	extensions Extensions
}

// NewS3Backup creates a Backup using the default AWS configuration chain
func NewS3Backup(ctx context.Context) (Backup, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3BackupWithClient(s3.NewFromConfig(cfg)), nil
}

// NewS3BackupWithClient creates a Backup around an existing S3 client
func NewS3BackupWithClient(client S3Client) Backup {
	return &s3Backup{
		client:     client,
		extensions: NewExtensions(),
	}
}

// BackupFolders backs up all date folders to S3 in parallel
func (b *s3Backup) BackupFolders(ctx context.Context, destDir, bucket string, maxConcurrent int, progressChan chan<- BackupEvent) error {
	folders, err := b.listDateFolders(destDir)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		logger.Info("No date folders found to backup", "dir", destDir)
		return nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	logger.Info("Starting S3 backup", "folders", len(folders), "bucket", bucket, "concurrency", maxConcurrent)

	jobs := make(chan string, len(folders))
	results := make(chan BackupEvent, len(folders))
	progress := &progressCounter{total: len(folders), events: progressChan}
	var wg sync.WaitGroup

	for i := range maxConcurrent {
		wg.Add(1)
		go b.backupWorker(ctx, i, destDir, bucket, jobs, results, progress, &wg)
	}

	for _, folder := range folders {
		jobs <- folder
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var failed []error
	for event := range results {
		if event.Err != nil {
			failed = append(failed, event.Err)
		}
	}

	if len(failed) > 0 {
		logger.Error("Backup completed with errors", "successful", len(folders)-len(failed), "failed", len(failed))
		return fmt.Errorf("backup failed for %d folders: %w", len(failed), errors.Join(failed...))
	}

	logger.Info("Backup completed successfully", "folders_backed_up", len(folders))
	return nil
}

// listDateFolders returns the subfolders of destDir named MM-DD-YYYY
func (b *s3Backup) listDateFolders(destDir string) ([]string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", destDir, err)
	}

	var folders []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := ParseFolderName(entry.Name()); ok {
			folders = append(folders, entry.Name())
		}
	}
	return folders, nil
}

// progressCounter numbers finished folders and forwards them to an optional
// listener as they complete
type progressCounter struct {
	mu     sync.Mutex
	done   int
	total  int
	events chan<- BackupEvent
}

// report sends event once its folder is finished. Sends block so failures
// always reach the listener; a cancelled ctx stops waiting.
func (p *progressCounter) report(ctx context.Context, event BackupEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	event.Current = p.done
	event.Total = p.total
	if p.events == nil {
		return
	}
	select {
	case p.events <- event:
	case <-ctx.Done():
		logger.Debug("Progress event dropped (cancelled)", "folder", event.Folder)
	}
}

// backupWorker processes backup jobs from the jobs channel
func (b *s3Backup) backupWorker(ctx context.Context, workerID int, destDir, bucket string, jobs <-chan string, results chan<- BackupEvent, progress *progressCounter, wg *sync.WaitGroup) {
	defer wg.Done()
	for folder := range jobs {
		logger.Debug("Worker processing folder", "worker", workerID, "folder", folder)
		event := BackupEvent{Folder: folder}
		if err := b.backupFolder(ctx, destDir, folder, bucket); err != nil {
			logger.Error("Failed to backup folder", "folder", folder, "error", err)
			event.Err = fmt.Errorf("folder %s: %w", folder, err)
		}
		progress.report(ctx, event)
		results <- event
	}
}

// countImages counts the images directly inside a date folder
func (b *s3Backup) countImages(folderPath string) (int, error) {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && b.extensions.IsImage(entry.Name()) {
			count++
		}
	}
	return count, nil
}

// archiveKey names the S3 object of a date folder
func archiveKey(folder string, images int) string {
	return fmt.Sprintf("%s (%d images).tar.gz", folder, images)
}

// backupFolder backs up a single date folder to S3
func (b *s3Backup) backupFolder(ctx context.Context, destDir, folder, bucket string) error {
	folderPath := filepath.Join(destDir, folder)

	imageCount, err := b.countImages(folderPath)
	if err != nil {
		return fmt.Errorf("failed to count images: %w", err)
	}
	key := archiveKey(folder, imageCount)

	tmpDir, err := os.MkdirTemp("", "offload-backup-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Error("Failed to remove temporary directory", "path", tmpDir, "error", err)
		}
	}()

	archivePath := filepath.Join(tmpDir, key)
	logger.Info("Creating archive", "folder", folder, "images", imageCount)
	if err := b.createTarGz(folderPath, archivePath); err != nil {
		return fmt.Errorf("failed to create tar.gz: %w", err)
	}

	localHash, err := b.calculateMD5(archivePath)
	if err != nil {
		return fmt.Errorf("failed to calculate MD5: %w", err)
	}

	headOutput, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		remoteETag := b.extractETag(headOutput.ETag)
		if remoteETag == localHash {
			logger.Info("Archive already in S3 with matching hash, skipping", "folder", folder, "key", key)
			return nil
		}
		return fmt.Errorf("hash mismatch for '%s': S3 object exists with different content (local: %s, remote: %s)", key, localHash, remoteETag)
	} else if !isNotFoundError(err) {
		return fmt.Errorf("failed to check S3 object existence: %w", err)
	}

	logger.Info("Uploading to S3", "folder", folder, "bucket", bucket, "key", key, "hash", localHash)
	if err := b.uploadToS3(ctx, archivePath, bucket, key); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	logger.Info("Successfully backed up folder", "folder", folder, "key", key)
	return nil
}

// extractETag strips the quotes S3 puts around ETags
func (b *s3Backup) extractETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, `"`)
}

// calculateMD5 calculates the MD5 hash of a file
func (b *s3Backup) calculateMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// isNotFoundError checks if the error is a NotFound error
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound"
	}

	return false
}

// createTarGz creates a tar.gz archive of a folder. The archive is only
// complete once the tar, gzip and file closes have all succeeded.
func (b *s3Backup) createTarGz(sourceDir, targetFile string) error {
	file, err := os.Create(targetFile)
	if err != nil {
		return err
	}
	gzWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzWriter)

	walkErr := b.writeTree(tarWriter, sourceDir)
	closeErr := closeInOrder(tarWriter, gzWriter, file)
	if walkErr != nil {
		return walkErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finish archive: %w", closeErr)
	}
	return nil
}

// writeTree adds every entry under sourceDir to tarWriter
func (b *s3Backup) writeTree(tarWriter *tar.Writer, sourceDir string) error {
	return filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tarWriter, f)
		return err
	})
}

// closeInOrder closes every closer in order and returns the first error
func closeInOrder(closers ...io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// uploadToS3 uploads a file to S3
func (b *s3Backup) uploadToS3(ctx context.Context, filePath, bucket, key string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})

	return err
}
