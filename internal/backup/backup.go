// Package backup takes encrypted snapshots of the larder database and keeps
// them in S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

const (
	DefaultInterval  = 24 * time.Hour
	DefaultRetention = 30 * 24 * time.Hour
	listLimit        = 50
)

var (
	ErrDisabled = errors.New("backups not configured")
	ErrNotFound = errors.New("backup not found")
	ErrRunning  = errors.New("backup already running")
)

// s3Client is the subset of the S3 API the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3         S3Config
	Passphrase string
	// Prefix is prepended to every object key.
	Prefix    string
	Interval  time.Duration
	Retention time.Duration
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Manager runs scheduled and on-demand backups.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	status Status
	client s3Client

	db      *sql.DB
	records *store.BackupStore
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager returns a manager that is disabled unless both the bucket
// credentials and a passphrase are configured.
func NewManager(cfg Config, db *sql.DB, records *store.BackupStore, logger *slog.Logger) *Manager {
	var client s3Client
	if cfg.S3.complete() && cfg.Passphrase != "" {
		client = newS3Client(cfg.S3)
	}
	return newManager(cfg, db, records, client, logger)
}

func newManager(cfg Config, db *sql.DB, records *store.BackupStore, client s3Client, logger *slog.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:     cfg,
		client:  client,
		db:      db,
		records: records,
		logger:  logger.With("component", "backup"),
		status:  Status{State: StateDisabled},
	}
	if client != nil {
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Enabled() bool {
	return m.client != nil
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start runs a backup every Interval until ctx is cancelled or Stop is
// called. It does nothing when the manager is disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Info("backups disabled")
		return
	}
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil && !errors.Is(err, ErrRunning) {
					m.logger.Error("scheduled backup", "error", err)
				}
				if _, err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup", "error", err)
				}
			}
		}
	}()
}

func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// List returns recent backup records, newest first.
func (m *Manager) List() ([]model.Backup, error) {
	return m.records.List(listLimit)
}

// RunNow snapshots the database, encrypts it and uploads it. Only one
// backup runs at a time.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	m.mu.Lock()
	if m.status.State == StateRunning {
		m.mu.Unlock()
		return nil, ErrRunning
	}
	last := m.status.LastBackup
	m.status = Status{State: StateRunning, LastBackup: last}
	m.mu.Unlock()

	record, err := m.run(ctx)
	m.mu.Lock()
	if err != nil {
		m.status = Status{State: StateError, LastBackup: last, Error: err.Error()}
	} else {
		now := time.Now().UTC()
		m.status = Status{State: StateIdle, LastBackup: &now}
	}
	m.mu.Unlock()
	return record, err
}

func (m *Manager) run(ctx context.Context) (*model.Backup, error) {
	key := fmt.Sprintf("%sbackup-%s-%s.db.enc", m.cfg.Prefix,
		time.Now().UTC().Format("2006-01-02T150405Z"), uuid.NewString()[:8])
	record, err := m.records.Create(key)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*model.Backup, error) {
		if uerr := m.records.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("record backup failure", "backup_id", record.ID, "error", uerr)
		}
		return nil, err
	}

	snap, err := snapshot(ctx, m.db)
	if err != nil {
		return fail(err)
	}
	sealed, err := Seal(snap, m.cfg.Passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	if err := m.records.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		return fail(err)
	}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fail(fmt.Errorf("upload: %w", err))
	}

	if err := m.records.MarkCompleted(record.ID, int64(len(sealed))); err != nil {
		return nil, err
	}
	m.logger.Info("backup completed", "backup_id", record.ID, "key", key, "bytes", len(sealed))
	return m.records.GetByID(record.ID)
}

// snapshot writes a consistent copy of db with VACUUM INTO and returns
// its bytes.
func snapshot(ctx context.Context, db *sql.DB) ([]byte, error) {
	dir, err := os.MkdirTemp("", "larder-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Download streams a stored backup as the encrypted object.
func (m *Manager) Download(ctx context.Context, id int64) (io.ReadCloser, *model.Backup, error) {
	record, err := m.completed(id)
	if err != nil {
		return nil, nil, err
	}
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download: %w", err)
	}
	return out.Body, record, nil
}

// Restore downloads and decrypts a backup, checks its integrity and writes
// it to dstPath. The live database is never touched; the caller swaps
// files while the server is stopped.
func (m *Manager) Restore(ctx context.Context, id int64, dstPath string) error {
	body, _, err := m.Download(ctx, id)
	if err != nil {
		return err
	}
	defer body.Close()

	sealed, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	plain, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dstPath + ".partial"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restore: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move restore into place: %w", err)
	}
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes backups older than the retention period and returns how
// many records were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if !m.Enabled() {
		return 0, nil
	}
	keys, err := m.records.DeleteOlderThan(time.Now().UTC().Add(-m.cfg.Retention))
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	return len(keys), nil
}

func (m *Manager) completed(id int64) (*model.Backup, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	record, err := m.records.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return nil, ErrNotFound
	}
	return record, nil
}
