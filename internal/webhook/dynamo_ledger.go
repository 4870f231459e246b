package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"paygate/internal/models"
)

const defaultLedgerTable = "webhook_ledger"

// DynamoAPI is the slice of the DynamoDB client the ledger uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type ledgerItem struct {
	PK          string `dynamodbav:"pk"`
	Provider    string `dynamodbav:"provider"`
	EventKey    string `dynamodbav:"event_key"`
	EventID     string `dynamodbav:"event_id"`
	Kind        string `dynamodbav:"kind"`
	Outcome     string `dynamodbav:"outcome"`
	FirstSeenAt string `dynamodbav:"first_seen_at"`
	ExpiresAt   int64  `dynamodbav:"expires_at,omitempty"`
}

// DynamoLedger stores entries in DynamoDB.
//
// Table requirements:
//   - PK: pk (string), "<provider>#<event key>"
//   - optional TTL attribute: expires_at
type DynamoLedger struct {
	ddb       DynamoAPI
	tableName string
	ttl       time.Duration
}

func NewDynamoLedger(ddb DynamoAPI, tableName string, ttl time.Duration) *DynamoLedger {
	if tableName == "" {
		tableName = defaultLedgerTable
	}
	return &DynamoLedger{ddb: ddb, tableName: tableName, ttl: ttl}
}

// NewDynamoClient builds a DynamoDB client. Static credentials and a custom
// endpoint are only applied when given, for DynamoDB Local.
func NewDynamoClient(ctx context.Context, region, endpoint, accessKey, secretKey string) (*dynamodb.Client, error) {
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func ledgerPK(provider models.Provider, key string) string {
	return string(provider) + "#" + key
}

func (l *DynamoLedger) Lookup(ctx context.Context, provider models.Provider, key string) (*Entry, error) {
	out, err := l.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: ledgerPK(provider, key)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it ledgerItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	if it.ExpiresAt > 0 && time.Now().Unix() > it.ExpiresAt {
		// DynamoDB TTL deletion lags; treat expired rows as gone.
		return nil, nil
	}

	seen, _ := time.Parse(time.RFC3339Nano, it.FirstSeenAt)
	return &Entry{
		Provider:    models.Provider(it.Provider),
		Key:         it.EventKey,
		EventID:     it.EventID,
		Kind:        models.EventKind(it.Kind),
		Outcome:     Outcome(it.Outcome),
		FirstSeenAt: seen,
	}, nil
}

func (l *DynamoLedger) Record(ctx context.Context, entry Entry) (bool, error) {
	it := ledgerItem{
		PK:          ledgerPK(entry.Provider, entry.Key),
		Provider:    string(entry.Provider),
		EventKey:    entry.Key,
		EventID:     entry.EventID,
		Kind:        string(entry.Kind),
		Outcome:     string(entry.Outcome),
		FirstSeenAt: entry.FirstSeenAt.UTC().Format(time.RFC3339Nano),
	}
	if l.ttl > 0 {
		it.ExpiresAt = entry.FirstSeenAt.Add(l.ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return false, err
	}

	_, err = l.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "pk",
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
