package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stef-codes/30days-weather-dashboard/internal/models"
)

// S3API is the slice of the S3 client the snapshot store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotStore writes one object per fetch under
// weather-data/{city}/{timestamp}.json. Keys embed the fetch time, so a
// snapshot is never overwritten.
type SnapshotStore struct {
	api    S3API
	bucket string
	runID  string
	now    func() time.Time

	lastStamp string
	seq       int
}

func NewSnapshotStore(api S3API, bucket, runID string) *SnapshotStore {
	return &SnapshotStore{
		api:    api,
		bucket: bucket,
		runID:  runID,
		now:    time.Now,
	}
}

// Put uploads the raw API payload for a reading. When raw is empty the
// parsed reading is serialized instead. Returns the object key written.
func (s *SnapshotStore) Put(ctx context.Context, reading models.WeatherReading, raw []byte) (string, error) {
	body := raw
	if len(body) == 0 {
		var err error
		body, err = json.Marshal(reading)
		if err != nil {
			return "", fmt.Errorf("%w: marshal snapshot: %v", ErrPersistence, err)
		}
	}

	key := s.objectKey(reading.City)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"run-id":     s.runID,
			"city":       reading.City,
			"fetched-at": reading.FetchedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object %q: %v", ErrPersistence, key, err)
	}
	return key, nil
}

// objectKey builds the object key for a snapshot. The timestamp has second
// resolution; a sequence suffix keeps keys distinct when two snapshots land
// within the same second.
func (s *SnapshotStore) objectKey(city string) string {
	city = strings.ReplaceAll(city, " ", "_")
	stamp := s.now().Format("20060102-150405")
	if stamp == s.lastStamp {
		s.seq++
		return fmt.Sprintf("weather-data/%s/%s-%d.json", city, stamp, s.seq)
	}
	s.lastStamp = stamp
	s.seq = 0
	return fmt.Sprintf("weather-data/%s/%s.json", city, stamp)
}
