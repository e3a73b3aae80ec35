package audit

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	appcfg "github.com/Mala4505/tanbeeh-dashboard-backend/config"
	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// ArchiveService exports aged audit-log batches to S3. The ledger stays
// append-only during normal operation; archiving is offline maintenance
// for entries well past their review horizon.
type ArchiveService struct {
	awsConfig aws.Config
}

// ArchivedEntry is the exported representation stored inside archives
type ArchivedEntry struct {
	ID        uint           `json:"id"`
	UserID    *uint          `json:"user_id"`
	Username  string         `json:"username,omitempty"`
	Action    string         `json:"action"`
	Target    string         `json:"target"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewArchiveService creates a new service instance
func NewArchiveService() *ArchiveService {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(),
		awscfg.WithRegion(appcfg.AppConfig.AWSRegion))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; S3 operations will fail until configured")
	}
	return &ArchiveService{awsConfig: cfg}
}

// ArchiveOldEntries moves audit entries older than daysOld into a zipped
// S3 object and deletes them from the store, recording the batch in
// audit_archives.
func (as *ArchiveService) ArchiveOldEntries(daysOld int) error {
	if daysOld < 365 {
		return fmt.Errorf("minimum archive age is 365 days for safety")
	}

	cutoffDate := time.Now().AddDate(0, 0, -daysOld)

	batchSize := 1000
	var entries []ArchivedEntry

	for offset := 0; ; offset += batchSize {
		var logs []models.AuditLog
		err := database.DB.
			Preload("User").
			Where("created_at < ?", cutoffDate).
			Limit(batchSize).
			Offset(offset).
			Find(&logs).Error
		if err != nil {
			return fmt.Errorf("failed to fetch audit logs for archiving: %v", err)
		}
		if len(logs) == 0 {
			break
		}

		for _, entry := range logs {
			archived := ArchivedEntry{
				ID:        entry.ID,
				UserID:    entry.UserID,
				Action:    entry.Action,
				Target:    entry.Target,
				CreatedAt: entry.CreatedAt,
			}
			if len(entry.Metadata) > 0 {
				var metadata map[string]any
				if err := json.Unmarshal(entry.Metadata, &metadata); err == nil {
					archived.Metadata = metadata
				}
			}
			if entry.User != nil {
				archived.Username = entry.User.Username
			}
			entries = append(entries, archived)
		}
	}

	if len(entries) == 0 {
		logrus.Info("No audit logs to archive")
		return nil
	}
	logrus.Infof("Archiving %d audit entries older than %s", len(entries), cutoffDate.Format("2006-01-02"))

	fileName := fmt.Sprintf("audit_logs_%s.zip", cutoffDate.Format("2006-01-02"))
	zipBuffer, err := createZipArchive(entries, fileName)
	if err != nil {
		return fmt.Errorf("failed to create ZIP archive: %v", err)
	}

	s3Key := fmt.Sprintf("audit/archived/%d/%02d/%s", cutoffDate.Year(), cutoffDate.Month(), fileName)
	if err := as.uploadToS3(s3Key, zipBuffer); err != nil {
		return fmt.Errorf("failed to upload archive to S3: %v", err)
	}

	result := database.DB.Where("created_at < ?", cutoffDate).Delete(&models.AuditLog{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete archived audit logs: %v", result.Error)
	}
	logrus.Infof("Deleted %d archived audit entries", result.RowsAffected)

	archive := models.AuditArchive{
		FileName:    fileName,
		S3Key:       s3Key,
		StartDate:   entries[0].CreatedAt,
		EndDate:     cutoffDate,
		RecordCount: len(entries),
		FileSize:    int64(zipBuffer.Len()),
		Status:      "completed",
	}
	if err := database.DB.Create(&archive).Error; err != nil {
		logrus.WithError(err).Error("Failed to save archive metadata")
	}

	return nil
}

func createZipArchive(entries []ArchivedEntry, fileName string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)

	logsFile, err := zipWriter.Create("audit_logs.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create logs file in ZIP: %v", err)
	}

	encoder := json.NewEncoder(logsFile)
	encoder.SetIndent("", "  ")
	payload := map[string]any{
		"export_date":    time.Now().UTC(),
		"record_count":   len(entries),
		"format_version": "1.0",
		"logs":           entries,
	}
	if err := encoder.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode audit logs to JSON: %v", err)
	}

	metadataFile, err := zipWriter.Create("metadata.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata file in ZIP: %v", err)
	}
	metadata := map[string]any{
		"file_name":    fileName,
		"created_at":   time.Now().UTC(),
		"record_count": len(entries),
		"date_range": map[string]any{
			"start": entries[0].CreatedAt,
			"end":   entries[len(entries)-1].CreatedAt,
		},
		"schema_version": "1.0",
		"description":    "Tanbeeh Audit Log Archive",
	}
	if err := json.NewEncoder(metadataFile).Encode(metadata); err != nil {
		return nil, fmt.Errorf("failed to encode metadata to JSON: %v", err)
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ZIP writer: %v", err)
	}
	return buf, nil
}

func (as *ArchiveService) uploadToS3(key string, body *bytes.Buffer) error {
	client := s3.NewFromConfig(as.awsConfig)
	_, err := client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(appcfg.AppConfig.S3BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/zip"),
	})
	return err
}
