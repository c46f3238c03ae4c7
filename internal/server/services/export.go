package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/server/models"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const exportURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportDay is one day of an exported challenge.
type ExportDay struct {
	DayNumber int           `json:"day_number"`
	Progress  int           `json:"progress"`
	Tasks     []models.Task `json:"tasks"`
}

// ExportSnapshot is the JSON document written to object storage.
type ExportSnapshot struct {
	Challenge        models.Challenge `json:"challenge"`
	CurrentDayNumber int              `json:"current_day_number"`
	IsFinished       bool             `json:"is_finished"`
	Days             []ExportDay      `json:"days"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// ExportKey builds the object key for an export generated at t.
func ExportKey(ownerID int64, t time.Time) string {
	return fmt.Sprintf("exports/%d/%04d/%02d/%02d/%s.json", ownerID, t.Year(), int(t.Month()), t.Day(), uuid.New())
}

func (s *ChallengeService) getS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export uploads a JSON snapshot of the challenge and returns a presigned
// GET URL for it.
func (s *ChallengeService) Export(ctx context.Context, ownerID, challengeID int64) (string, error) {
	detail, err := s.Detail(ctx, ownerID, challengeID)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	snapshot := ExportSnapshot{
		Challenge:        detail.Challenge,
		CurrentDayNumber: detail.CurrentDayNumber,
		IsFinished:       detail.IsFinished,
		GeneratedAt:      now.UTC(),
	}
	for day := 1; day <= detail.Challenge.DurationDays; day++ {
		tasks := detail.TasksByDay[day]
		if tasks == nil {
			tasks = []models.Task{}
		}
		snapshot.Days = append(snapshot.Days, ExportDay{
			DayNumber: day,
			Progress:  detail.DailyProgress[day-1],
			Tasks:     tasks,
		})
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("error encoding export: %w", err)
	}

	client, err := s.getS3Client(ctx)
	if err != nil {
		return "", fmt.Errorf("error configuring storage: %w", err)
	}

	bucket := s.config.S3Bucket
	key := ExportKey(ownerID, now.In(s.loc))

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("error uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(exportURLValidity))
	if err != nil {
		return "", fmt.Errorf("error presigning export: %w", err)
	}

	return req.URL, nil
}
