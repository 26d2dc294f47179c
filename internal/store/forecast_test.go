package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/stef-codes/30days-weather-dashboard/internal/models"
)

// fakeDynamo emulates just enough of DynamoDB for the forecast store: table
// existence, and an item map keyed by City#Date so upserts can be verified.
type fakeDynamo struct {
	tableExists bool

	describeCalls int
	createCalls   int
	batchCalls    int

	items map[string]map[string]types.AttributeValue

	// failBatches makes the first N batch calls return every item as
	// unprocessed.
	failBatches int
	batchErr    error
	describeErr error
}

func newFakeDynamo(exists bool) *fakeDynamo {
	return &fakeDynamo{
		tableExists: exists,
		items:       map[string]map[string]types.AttributeValue{},
	}
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if !f.tableExists {
		return nil, &types.ResourceNotFoundException{}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: types.TableStatusActive},
	}, nil
}

func (f *fakeDynamo) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.createCalls++
	f.tableExists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}

	if f.failBatches > 0 {
		f.failBatches--
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: params.RequestItems}, nil
	}

	for _, reqs := range params.RequestItems {
		for _, req := range reqs {
			item := req.PutRequest.Item
			key := itemKey(item)
			f.items[key] = item
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func itemKey(item map[string]types.AttributeValue) string {
	city := item["City"].(*types.AttributeValueMemberS).Value
	date := item["Date"].(*types.AttributeValueMemberS).Value
	return city + "#" + date
}

func record(city, date string, temp float64) models.ForecastRecord {
	return models.ForecastRecord{
		City:        city,
		Date:        date,
		Temperature: temp,
		FeelsLike:   temp + 1,
		Humidity:    60,
		Conditions:  "clear sky",
	}
}

func newTestStore(fake *fakeDynamo) *ForecastStore {
	s := NewForecastStore(fake, "WeatherForecasts")
	s.pollInterval = time.Millisecond
	return s
}

func TestEnsureTable_NoopWhenExists(t *testing.T) {
	fake := newFakeDynamo(true)
	s := newTestStore(fake)

	if err := s.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if fake.createCalls != 0 {
		t.Errorf("CreateTable called %d times, want 0", fake.createCalls)
	}
}

func TestEnsureTable_CreatesAndWaits(t *testing.T) {
	fake := newFakeDynamo(false)
	s := newTestStore(fake)

	if err := s.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if fake.createCalls != 1 {
		t.Errorf("CreateTable called %d times, want 1", fake.createCalls)
	}
	// Initial describe plus at least one poll for ACTIVE.
	if fake.describeCalls < 2 {
		t.Errorf("DescribeTable called %d times, want >= 2", fake.describeCalls)
	}
}

func TestEnsureTable_WrapsOtherDescribeErrors(t *testing.T) {
	fake := newFakeDynamo(true)
	fake.describeErr = errors.New("permission denied")
	s := newTestStore(fake)

	err := s.EnsureTable(context.Background())
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("EnsureTable() error = %v, want ErrPersistence", err)
	}
	if fake.createCalls != 0 {
		t.Errorf("CreateTable called %d times, want 0", fake.createCalls)
	}
}

func TestPut_UpsertSemantics(t *testing.T) {
	fake := newFakeDynamo(true)
	s := newTestStore(fake)
	ctx := context.Background()

	if err := s.Put(ctx, []models.ForecastRecord{record("Seattle", "2026-08-24", 60)}); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if err := s.Put(ctx, []models.ForecastRecord{record("Seattle", "2026-08-24", 65)}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	if len(fake.items) != 1 {
		t.Fatalf("store holds %d items, want 1 (upsert)", len(fake.items))
	}
	item := fake.items["Seattle#2026-08-24"]
	if item == nil {
		t.Fatalf("missing item for Seattle#2026-08-24")
	}
	temp := item["Temperature"].(*types.AttributeValueMemberN).Value
	if temp != "65" {
		t.Errorf("Temperature = %s, want 65 (second write wins)", temp)
	}
}

func TestPut_MarshalsAllFields(t *testing.T) {
	fake := newFakeDynamo(true)
	s := newTestStore(fake)

	if err := s.Put(context.Background(), []models.ForecastRecord{record("Philadelphia", "2026-08-25", 72)}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	item := fake.items["Philadelphia#2026-08-25"]
	if item == nil {
		t.Fatalf("item not stored")
	}
	for _, attr := range []string{"City", "Date", "Temperature", "FeelsLike", "Humidity", "Description"} {
		if _, ok := item[attr]; !ok {
			t.Errorf("missing attribute %s", attr)
		}
	}
}

func TestPut_ChunksLargeBatches(t *testing.T) {
	fake := newFakeDynamo(true)
	s := newTestStore(fake)

	records := make([]models.ForecastRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, record("Seattle", fmt.Sprintf("2026-09-%02d", i+1), 60))
	}

	if err := s.Put(context.Background(), records); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.batchCalls != 2 {
		t.Errorf("BatchWriteItem called %d times, want 2 (25 + 5)", fake.batchCalls)
	}
	if len(fake.items) != 30 {
		t.Errorf("store holds %d items, want 30", len(fake.items))
	}
}

func TestPut_RetriesUnprocessedOnce(t *testing.T) {
	fake := newFakeDynamo(true)
	fake.failBatches = 1
	s := newTestStore(fake)

	if err := s.Put(context.Background(), []models.ForecastRecord{record("Seattle", "2026-08-24", 60)}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.batchCalls != 2 {
		t.Errorf("BatchWriteItem called %d times, want 2", fake.batchCalls)
	}
	if len(fake.items) != 1 {
		t.Errorf("store holds %d items, want 1", len(fake.items))
	}
}

func TestPut_FailsWhenStillUnprocessed(t *testing.T) {
	fake := newFakeDynamo(true)
	fake.failBatches = 2
	s := newTestStore(fake)

	err := s.Put(context.Background(), []models.ForecastRecord{record("Seattle", "2026-08-24", 60)})
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Put() error = %v, want ErrPersistence", err)
	}
}

func TestPut_WrapsBatchError(t *testing.T) {
	fake := newFakeDynamo(true)
	fake.batchErr = errors.New("throughput exceeded")
	s := newTestStore(fake)

	err := s.Put(context.Background(), []models.ForecastRecord{record("Seattle", "2026-08-24", 60)})
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Put() error = %v, want ErrPersistence", err)
	}
}

func TestPut_EmptyIsNoop(t *testing.T) {
	fake := newFakeDynamo(true)
	s := newTestStore(fake)

	if err := s.Put(context.Background(), nil); err != nil {
		t.Fatalf("Put(nil) error = %v", err)
	}
	if fake.batchCalls != 0 {
		t.Errorf("BatchWriteItem called %d times, want 0", fake.batchCalls)
	}
}
