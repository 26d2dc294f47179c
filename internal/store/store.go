// Package store persists weather data to the cloud: raw snapshots go to an
// S3 bucket, per-day forecast records are upserted into a DynamoDB table.
package store

import "errors"

// ErrPersistence marks any failure writing to the object store or the table
// store. Callers match it with errors.Is and keep processing other cities.
var ErrPersistence = errors.New("persistence failure")
