package pics

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var testCtx = context.Background()

// inMemoryS3Client is an in-memory S3 implementation for testing
type inMemoryS3Client struct {
	mu      sync.RWMutex
	objects map[string]map[string][]byte
	puts    int
}

func newInMemoryS3Client() *inMemoryS3Client {
	return &inMemoryS3Client{objects: make(map[string]map[string][]byte)}
}

func etagOf(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

func (c *inMemoryS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if params.Bucket == nil || params.Key == nil {
		return nil, fmt.Errorf("bucket and key are required")
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.objects[*params.Bucket] == nil {
		c.objects[*params.Bucket] = make(map[string][]byte)
	}
	c.objects[*params.Bucket][*params.Key] = data
	c.puts++

	etag := fmt.Sprintf("%q", etagOf(data))
	return &s3.PutObjectOutput{ETag: &etag}, nil
}

func (c *inMemoryS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.objects[*params.Bucket][*params.Key]
	if !ok {
		return nil, &types.NotFound{Message: stringPtr("key does not exist")}
	}
	etag := fmt.Sprintf("%q", etagOf(data))
	size := int64(len(data))
	return &s3.HeadObjectOutput{ETag: &etag, ContentLength: &size}, nil
}

func (c *inMemoryS3Client) keys(bucket string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for key := range c.objects[bucket] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func stringPtr(s string) *string {
	return &s
}

// mockAPIError is a smithy API error with a fixed code
type mockAPIError struct {
	code string
}

func (m *mockAPIError) Error() string                 { return m.code }
func (m *mockAPIError) ErrorCode() string             { return m.code }
func (m *mockAPIError) ErrorMessage() string          { return m.code }
func (m *mockAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func createBackupFixture(t *testing.T) string {
	t.Helper()
	destDir := t.TempDir()
	modTime := time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local)
	writeTestFile(t, filepath.Join(destDir, "01-01-2025"), "DSC00001.JPG", []byte("one"), modTime)
	writeTestFile(t, filepath.Join(destDir, "01-01-2025"), "DSC00002.ARW", []byte("two"), modTime)
	writeTestFile(t, filepath.Join(destDir, "01-02-2025"), "DSC00003.JPG", []byte("three"), modTime)
	createTestDir(t, destDir, "exports")
	writeTestFile(t, destDir, "copy_log.txt", []byte("log"), modTime)
	return destDir
}

func TestBackup_BackupFolders(t *testing.T) {
	destDir := createBackupFixture(t)
	client := newInMemoryS3Client()
	backup := NewS3BackupWithClient(client)

	progress := make(chan BackupEvent, 10)
	if err := backup.BackupFolders(testCtx, destDir, "card-bucket", 2, progress); err != nil {
		t.Fatalf("BackupFolders failed: %v", err)
	}
	close(progress)

	expected := []string{
		"01-01-2025 (2 images).tar.gz",
		"01-02-2025 (1 images).tar.gz",
	}
	keys := client.keys("card-bucket")
	if len(keys) != len(expected) {
		t.Fatalf("Expected keys %v, got %v", expected, keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("Expected key %s, got %s", expected[i], keys[i])
		}
	}

	events := 0
	for event := range progress {
		events++
		if event.Total != 2 || event.Err != nil {
			t.Errorf("Unexpected progress event: %+v", event)
		}
	}
	if events != 2 {
		t.Errorf("Expected 2 progress events, got %d", events)
	}
}

func TestBackup_ArchiveContents(t *testing.T) {
	destDir := createBackupFixture(t)
	client := newInMemoryS3Client()

	if err := NewS3BackupWithClient(client).BackupFolders(testCtx, destDir, "card-bucket", 1, nil); err != nil {
		t.Fatalf("BackupFolders failed: %v", err)
	}

	data := client.objects["card-bucket"]["01-01-2025 (2 images).tar.gz"]
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to open gzip: %v", err)
	}
	tr := tar.NewReader(gz)

	found := map[string]string{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read tar: %v", err)
		}
		if header.Typeflag == tar.TypeReg {
			content, _ := io.ReadAll(tr)
			found[header.Name] = string(content)
		}
	}

	if found["DSC00001.JPG"] != "one" || found["DSC00002.ARW"] != "two" {
		t.Errorf("Unexpected archive contents: %v", found)
	}
}

func TestBackup_Deduplication(t *testing.T) {
	destDir := createBackupFixture(t)
	client := newInMemoryS3Client()
	backup := NewS3BackupWithClient(client)

	if err := backup.BackupFolders(testCtx, destDir, "card-bucket", 2, nil); err != nil {
		t.Fatalf("First backup failed: %v", err)
	}
	if err := backup.BackupFolders(testCtx, destDir, "card-bucket", 2, nil); err != nil {
		t.Fatalf("Second backup failed: %v", err)
	}

	if client.puts != 2 {
		t.Errorf("Expected unchanged folders not to be uploaded again, got %d uploads", client.puts)
	}
}

func TestBackup_HashMismatch(t *testing.T) {
	destDir := createBackupFixture(t)
	client := newInMemoryS3Client()
	client.objects["card-bucket"] = map[string][]byte{
		"01-02-2025 (1 images).tar.gz": []byte("something else"),
	}

	err := NewS3BackupWithClient(client).BackupFolders(testCtx, destDir, "card-bucket", 2, nil)

	if err == nil {
		t.Fatal("Expected error for hash mismatch")
	}
	if _, ok := client.objects["card-bucket"]["01-01-2025 (2 images).tar.gz"]; !ok {
		t.Error("Expected other folders to be backed up despite the mismatch")
	}
}

func TestBackup_NoDateFolders(t *testing.T) {
	client := newInMemoryS3Client()

	if err := NewS3BackupWithClient(client).BackupFolders(testCtx, t.TempDir(), "card-bucket", 2, nil); err != nil {
		t.Errorf("Expected no error without date folders, got: %v", err)
	}
	if client.puts != 0 {
		t.Errorf("Expected no uploads, got %d", client.puts)
	}
}

func TestBackup_MissingDestination(t *testing.T) {
	err := NewS3BackupWithClient(newInMemoryS3Client()).BackupFolders(testCtx, "/nonexistent/dest", "card-bucket", 2, nil)

	if err == nil {
		t.Error("Expected error for missing destination")
	}
}

func TestS3Backup_ExtractETag(t *testing.T) {
	backup := &s3Backup{}

	tests := []struct {
		name     string
		etag     *string
		expected string
	}{
		{"nil etag", nil, ""},
		{"empty etag", stringPtr(""), ""},
		{"etag with quotes", stringPtr(`"abc123"`), "abc123"},
		{"etag without quotes", stringPtr("abc123"), "abc123"},
		{"etag with single character", stringPtr(`"a"`), "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := backup.extractETag(tt.etag); result != tt.expected {
				t.Errorf("extractETag() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"NotFound type", &types.NotFound{Message: stringPtr("not found")}, true},
		{"wrapped NotFound", fmt.Errorf("head: %w", &types.NotFound{}), true},
		{"NotFound API error", &mockAPIError{code: "NotFound"}, true},
		{"other API error", &mockAPIError{code: "AccessDenied"}, false},
		{"generic error", os.ErrNotExist, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := isNotFoundError(tt.err); result != tt.expected {
				t.Errorf("isNotFoundError() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestS3Backup_CalculateMD5(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := writeTestFile(t, tmpDir, "test.txt", []byte("test content"), time.Now())

	hash, err := (&s3Backup{}).calculateMD5(filePath)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if hash != etagOf([]byte("test content")) {
		t.Errorf("Unexpected hash %s", hash)
	}
}

func TestS3Backup_CalculateMD5_NonexistentFile(t *testing.T) {
	if _, err := (&s3Backup{}).calculateMD5("/nonexistent/file.txt"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

// headRecordingClient records how many progress events were queued each time
// a folder reached HeadObject
type headRecordingClient struct {
	*inMemoryS3Client
	progress chan BackupEvent
	queued   []int
}

func (c *headRecordingClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	c.queued = append(c.queued, len(c.progress))
	return c.inMemoryS3Client.HeadObject(ctx, params, optFns...)
}

func TestBackup_ProgressReportedAsFoldersFinish(t *testing.T) {
	destDir := createBackupFixture(t)
	progress := make(chan BackupEvent, 10)
	client := &headRecordingClient{inMemoryS3Client: newInMemoryS3Client(), progress: progress}

	if err := NewS3BackupWithClient(client).BackupFolders(testCtx, destDir, "card-bucket", 1, progress); err != nil {
		t.Fatalf("BackupFolders failed: %v", err)
	}

	if len(client.queued) != 2 || client.queued[0] != 0 || client.queued[1] != 1 {
		t.Errorf("Expected the first folder's event before the second folder started, got %v", client.queued)
	}
	first := <-progress
	if first.Current != 1 || first.Total != 2 || first.Folder != "01-01-2025" {
		t.Errorf("Unexpected first event: %+v", first)
	}
}

func TestBackup_FailureEventsReachUnbufferedListener(t *testing.T) {
	destDir := createBackupFixture(t)
	client := newInMemoryS3Client()
	client.objects["card-bucket"] = map[string][]byte{
		"01-02-2025 (1 images).tar.gz": []byte("something else"),
	}

	progress := make(chan BackupEvent)
	received := make(chan []BackupEvent)
	go func() {
		var events []BackupEvent
		for event := range progress {
			events = append(events, event)
		}
		received <- events
	}()

	err := NewS3BackupWithClient(client).BackupFolders(testCtx, destDir, "card-bucket", 2, progress)
	close(progress)
	events := <-received

	if err == nil {
		t.Fatal("Expected error for hash mismatch")
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	failures := 0
	for _, event := range events {
		if event.Err != nil {
			failures++
			if event.Folder != "01-02-2025" {
				t.Errorf("Expected failure for 01-02-2025, got %s", event.Folder)
			}
		}
	}
	if failures != 1 {
		t.Errorf("Expected 1 failure event, got %d", failures)
	}
}

// orderedCloser records its close in a shared log and returns err
type orderedCloser struct {
	name string
	log  *[]string
	err  error
}

func (c *orderedCloser) Close() error {
	*c.log = append(*c.log, c.name)
	return c.err
}

func TestCloseInOrder(t *testing.T) {
	var closed []string
	flushErr := errors.New("no space left on device")
	lateErr := errors.New("late failure")

	err := closeInOrder(
		&orderedCloser{name: "tar", log: &closed},
		&orderedCloser{name: "gzip", log: &closed, err: flushErr},
		&orderedCloser{name: "file", log: &closed, err: lateErr},
	)

	if !errors.Is(err, flushErr) {
		t.Errorf("Expected first close error, got: %v", err)
	}
	if strings.Join(closed, ",") != "tar,gzip,file" {
		t.Errorf("Expected every closer in order, got %v", closed)
	}
}

func TestS3Backup_CreateTarGz(t *testing.T) {
	destDir := createBackupFixture(t)
	archivePath := filepath.Join(t.TempDir(), "01-02-2025.tar.gz")

	if err := (&s3Backup{}).createTarGz(filepath.Join(destDir, "01-02-2025"), archivePath); err != nil {
		t.Fatalf("createTarGz failed: %v", err)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to open gzip: %v", err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Archive is not a complete tar stream: %v", err)
		}
		names = append(names, header.Name)
	}
	if _, err := io.ReadAll(gz); err != nil {
		t.Errorf("Expected a complete gzip stream, got: %v", err)
	}
	if strings.Join(names, ",") != ".,DSC00003.JPG" {
		t.Errorf("Unexpected archive entries: %v", names)
	}
}

func TestS3Backup_CreateTarGz_MissingSource(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "missing.tar.gz")

	if err := (&s3Backup{}).createTarGz("/nonexistent/01-01-2025", archivePath); err == nil {
		t.Error("Expected error for missing source folder")
	}
}
