package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// FileMetadata describes one archived file's checksum and size.
type FileMetadata struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupMetadata accompanies every archive uploaded to R2.
type BackupMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Files     []FileMetadata `json:"files"`
}

// BackupService archives the journal and users SQLite databases plus the
// current day's snapshot CSVs into a single tar.gz, mirroring the
// teacher's BackupService shape (database-name enumeration, per-file
// checksum, staged archive) collapsed to this engine's two databases and
// one snapshot directory.
type BackupService struct {
	JournalDBPath string
	UsersDBPath   string
	SnapshotDir   string
	StagingDir    string
	Log           zerolog.Logger
}

// CreateArchive builds the tar.gz under service.StagingDir and returns its
// path plus the metadata describing what went in.
func (s *BackupService) CreateArchive() (string, BackupMetadata, error) {
	if err := os.MkdirAll(s.StagingDir, 0o755); err != nil {
		return "", BackupMetadata{}, fmt.Errorf("create staging dir: %w", err)
	}

	meta := BackupMetadata{Timestamp: time.Now().UTC()}
	archiveName := fmt.Sprintf("autotrader-backup-%s.tar.gz", meta.Timestamp.Format("20060102-150405"))
	archivePath := filepath.Join(s.StagingDir, archiveName)

	f, err := os.Create(archivePath)
	if err != nil {
		return "", BackupMetadata{}, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	sources := map[string]string{
		"journal.db": s.JournalDBPath,
		"users.db":   s.UsersDBPath,
	}
	for name, path := range sources {
		fm, err := s.addFile(tw, name, path)
		if err != nil {
			tw.Close()
			gz.Close()
			return "", BackupMetadata{}, err
		}
		meta.Files = append(meta.Files, fm)
	}

	snapshots, err := filepath.Glob(filepath.Join(s.SnapshotDir, "*.csv"))
	if err != nil {
		tw.Close()
		gz.Close()
		return "", BackupMetadata{}, fmt.Errorf("glob snapshots: %w", err)
	}
	today := time.Now().Format("20060102")
	for _, path := range snapshots {
		base := filepath.Base(path)
		if len(base) < 8 || base[:8] != today {
			continue // only the current day's snapshots ride along with the backup
		}
		fm, err := s.addFile(tw, filepath.Join("snapshots", base), path)
		if err != nil {
			tw.Close()
			gz.Close()
			return "", BackupMetadata{}, err
		}
		meta.Files = append(meta.Files, fm)
	}

	metaBuf, _ := json.MarshalIndent(meta, "", "  ")
	if err := tw.WriteHeader(&tar.Header{Name: "backup-metadata.json", Mode: 0o644, Size: int64(len(metaBuf))}); err != nil {
		tw.Close()
		gz.Close()
		return "", BackupMetadata{}, fmt.Errorf("write metadata header: %w", err)
	}
	if _, err := tw.Write(metaBuf); err != nil {
		tw.Close()
		gz.Close()
		return "", BackupMetadata{}, fmt.Errorf("write metadata: %w", err)
	}

	if err := tw.Close(); err != nil {
		return "", BackupMetadata{}, fmt.Errorf("close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", BackupMetadata{}, fmt.Errorf("close gzip writer: %w", err)
	}
	return archivePath, meta, nil
}

func (s *BackupService) addFile(tw *tar.Writer, name, path string) (FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("stat %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: info.Size()}); err != nil {
		return FileMetadata{}, fmt.Errorf("write header for %s: %w", name, err)
	}
	if _, err := io.Copy(io.MultiWriter(tw, h), f); err != nil {
		return FileMetadata{}, fmt.Errorf("archive %s: %w", name, err)
	}
	return FileMetadata{Name: name, SizeBytes: info.Size(), Checksum: hex.EncodeToString(h.Sum(nil))}, nil
}

// R2BackupService creates an archive via BackupService and uploads it to
// R2, then removes the staged file regardless of upload outcome.
type R2BackupService struct {
	Backup *BackupService
	R2     *R2Client
	Log    zerolog.Logger
}

// CreateAndUpload runs one backup cycle. Implements scheduler.Job.
func (s *R2BackupService) CreateAndUpload(ctx context.Context) error {
	start := time.Now()
	path, meta, err := s.Backup.CreateArchive()
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer os.Remove(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	if err := s.R2.Upload(ctx, filepath.Base(path), f, info.Size()); err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}

	s.Log.Info().Dur("duration_ms", time.Since(start)).Str("archive", filepath.Base(path)).
		Int("files", len(meta.Files)).Int64("size_bytes", info.Size()).Msg("backup uploaded")
	return nil
}

// Name satisfies scheduler.Job.
func (s *R2BackupService) Name() string { return "r2_backup" }

// Run satisfies scheduler.Job, using a fixed upload timeout.
func (s *R2BackupService) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return s.CreateAndUpload(ctx)
}
