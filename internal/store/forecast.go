package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/stef-codes/30days-weather-dashboard/internal/models"
)

// batchWriteLimit is DynamoDB's maximum item count per BatchWriteItem call.
const batchWriteLimit = 25

// DynamoDBAPI is the slice of the DynamoDB client the forecast store needs.
type DynamoDBAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// ForecastStore upserts ForecastRecords keyed by (City, Date).
type ForecastStore struct {
	api          DynamoDBAPI
	table        string
	pollInterval time.Duration
	pollAttempts int
}

func NewForecastStore(api DynamoDBAPI, table string) *ForecastStore {
	return &ForecastStore{
		api:          api,
		table:        table,
		pollInterval: 2 * time.Second,
		pollAttempts: 30,
	}
}

// EnsureTable creates the forecast table if it does not exist and waits for
// it to become active. A no-op when the table is already there. Call once
// per run, before any write.
func (f *ForecastStore) EnsureTable(ctx context.Context) error {
	_, err := f.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(f.table),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("%w: describe table %q: %v", ErrPersistence, f.table, err)
	}

	_, err = f.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(f.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("City"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("Date"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("City"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("Date"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("%w: create table %q: %v", ErrPersistence, f.table, err)
	}

	return f.waitForActive(ctx)
}

func (f *ForecastStore) waitForActive(ctx context.Context) error {
	for attempt := 0; attempt < f.pollAttempts; attempt++ {
		out, err := f.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(f.table),
		})
		if err == nil && out.Table != nil && out.Table.TableStatus == types.TableStatusActive {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: wait for table %q: %v", ErrPersistence, f.table, ctx.Err())
		case <-time.After(f.pollInterval):
		}
	}
	return fmt.Errorf("%w: table %q did not become active", ErrPersistence, f.table)
}

// Put upserts the records in batches. Items the service reports as
// unprocessed are resubmitted once; anything still unprocessed after that
// surfaces as an error.
func (f *ForecastStore) Put(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(records))
	for _, r := range records {
		item, err := attributevalue.MarshalMap(r)
		if err != nil {
			return fmt.Errorf("%w: marshal record %s/%s: %v", ErrPersistence, r.City, r.Date, err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for start := 0; start < len(requests); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(requests) {
			end = len(requests)
		}
		if err := f.writeBatch(ctx, requests[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *ForecastStore) writeBatch(ctx context.Context, batch []types.WriteRequest) error {
	pending := batch
	// One extra round for unprocessed items; beyond that the store is
	// throttling hard enough that this run should give up.
	for round := 0; round < 2; round++ {
		out, err := f.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				f.table: pending,
			},
		})
		if err != nil {
			return fmt.Errorf("%w: batch write to %q: %v", ErrPersistence, f.table, err)
		}

		pending = out.UnprocessedItems[f.table]
		if len(pending) == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: %d records left unprocessed by %q", ErrPersistence, len(pending), f.table)
}
