// Package influx writes session status points to InfluxDB, falling back to
// a gzip line-protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// StatusBucket receives the periodic session status points.
const StatusBucket = "sdam_sessions"

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{
	StatusBucket,
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	mu sync.Mutex

	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	backupFile   *os.File
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log.With().Str("component", "influx").Logger(),
		BackupPath:  backupPath,
	}
}

// ServerURL builds the server address from the influx.* settings.
func ServerURL() string {
	return fmt.Sprintf(
		"%s://%s:%s",
		viper.GetString("influx.protocol"),
		viper.GetString("influx.host"),
		viper.GetString("influx.port"),
	)
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Client = influxdb2.NewClientWithOptions(
		ServerURL(),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	// validate client connection health
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	running, err := m.Client.Ping(pingCtx)

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			if m.BackupPath == "" {
				return fmt.Errorf("influxdb unreachable and no backup path configured: %v", err)
			}
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// createWriters creates write APIs for all configured buckets.
func (m *Manager) createWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
	}
	return nil
}

// Close flushes pending writes and releases the client or backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}
	m.IsValid = false

	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// NewStatusPoint builds the point recorded on every display poll.
func NewStatusPoint(sessionID, document string, position, length uint, recording, playing bool, rate float64, at time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		"session_status",
		map[string]string{
			"session":  sessionID,
			"document": document,
		},
		map[string]any{
			"position":  int64(position),
			"length":    int64(length),
			"recording": recording,
			"playing":   playing,
			"rate":      rate,
		},
		at,
	)
}
