package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"paygate/internal/models"
)

// fixtureSeenAt is recent so TTL-based expiry in Lookup does not hide entries.
var fixtureSeenAt = time.Now().UTC().Truncate(time.Second)

func sampleEntry() Entry {
	return Entry{
		Provider:    models.ProviderStripe,
		Key:         "PaymentCaptured:pi_1",
		EventID:     "pi_1",
		Kind:        models.EventPaymentCaptured,
		Outcome:     OutcomeApplied,
		FirstSeenAt: fixtureSeenAt,
	}
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(time.Hour)

	if e, err := l.Lookup(ctx, models.ProviderStripe, "PaymentCaptured:pi_1"); err != nil || e != nil {
		t.Fatalf("expected empty ledger, got %+v, %v", e, err)
	}

	ok, err := l.Record(ctx, sampleEntry())
	if err != nil || !ok {
		t.Fatalf("first record: %v, %v", ok, err)
	}
	ok, err = l.Record(ctx, sampleEntry())
	if err != nil || ok {
		t.Fatalf("second record must not overwrite: %v, %v", ok, err)
	}

	e, err := l.Lookup(ctx, models.ProviderStripe, "PaymentCaptured:pi_1")
	if err != nil || e == nil || e.Outcome != OutcomeApplied {
		t.Fatalf("unexpected entry %+v, %v", e, err)
	}

	if e, _ := l.Lookup(ctx, models.ProviderPayPal, "PaymentCaptured:pi_1"); e != nil {
		t.Fatalf("keys must be scoped by provider")
	}
}

func TestMemoryLedger_Expiry(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(time.Millisecond)

	if ok, _ := l.Record(ctx, sampleEntry()); !ok {
		t.Fatalf("expected record")
	}
	time.Sleep(5 * time.Millisecond)

	if e, _ := l.Lookup(ctx, models.ProviderStripe, "PaymentCaptured:pi_1"); e != nil {
		t.Fatalf("expected entry to expire")
	}
	if ok, _ := l.Record(ctx, sampleEntry()); !ok {
		t.Fatalf("expected expired key to be recordable again")
	}
}

// fakeDynamo implements DynamoAPI with conditional put semantics.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pk := in.Key["pk"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[pk]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if aws.ToString(in.ConditionExpression) != "attribute_not_exists(#pk)" {
		return nil, errors.New("unconditional put")
	}
	pk := in.Item["pk"].(*types.AttributeValueMemberS).Value
	if _, exists := f.items[pk]; exists {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoLedger(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	l := NewDynamoLedger(fake, "", 24*time.Hour)

	if e, err := l.Lookup(ctx, models.ProviderStripe, "PaymentCaptured:pi_1"); err != nil || e != nil {
		t.Fatalf("expected empty ledger, got %+v, %v", e, err)
	}

	ok, err := l.Record(ctx, sampleEntry())
	if err != nil || !ok {
		t.Fatalf("first record: %v, %v", ok, err)
	}
	if _, exists := fake.items["stripe#PaymentCaptured:pi_1"]; !exists {
		t.Fatalf("unexpected partition key layout: %v", fake.items)
	}

	ok, err = l.Record(ctx, sampleEntry())
	if err != nil || ok {
		t.Fatalf("conditional failure must report false without error: %v, %v", ok, err)
	}

	e, err := l.Lookup(ctx, models.ProviderStripe, "PaymentCaptured:pi_1")
	if err != nil || e == nil {
		t.Fatalf("Lookup: %+v, %v", e, err)
	}
	if e.EventID != "pi_1" || e.Outcome != OutcomeApplied || !e.FirstSeenAt.Equal(sampleEntry().FirstSeenAt) {
		t.Fatalf("unexpected entry %+v", e)
	}

	fake.err = errors.New("throttled")
	if _, err := l.Record(ctx, sampleEntry()); err == nil {
		t.Fatalf("expected transport error to surface")
	}
}

func TestDynamoLedger_ExpiredItem(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	l := NewDynamoLedger(fake, "ledger", time.Minute)

	old := sampleEntry()
	old.FirstSeenAt = time.Now().Add(-time.Hour)
	if ok, err := l.Record(ctx, old); err != nil || !ok {
		t.Fatalf("Record: %v, %v", ok, err)
	}
	if e, _ := l.Lookup(ctx, models.ProviderStripe, old.Key); e != nil {
		t.Fatalf("expected expired item to be ignored")
	}
}
