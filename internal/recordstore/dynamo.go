package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"relaybot/internal/engine"
	"relaybot/internal/model"
)

// UserIndex is the GSI on the interactions table keyed by userId.
const UserIndex = "userId-index"

// dynamoBatchSize is the BatchWriteItem limit imposed by DynamoDB.
const dynamoBatchSize = 25

// DynamoStore implements the RecordStore interface against DynamoDB, with
// one table for interactions (hash key id, range key timestamp) and one for
// backup metadata (hash key backupId).
type DynamoStore struct {
	client            *dynamodb.Client
	interactionsTable string
	backupsTable      string
}

var _ engine.RecordStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoDB-backed record store. region selects the
// AWS region; endpoint optionally points at a local DynamoDB for development.
func NewDynamoStore(ctx context.Context, region, endpoint, interactionsTable, backupsTable string) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &DynamoStore{
		client:            client,
		interactionsTable: interactionsTable,
		backupsTable:      backupsTable,
	}, nil
}

func (d *DynamoStore) PutInteraction(ctx context.Context, rec *model.InteractionRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshaling interaction: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.interactionsTable),
		Item:      item,
	})
	if err != nil {
		return dynamoErr("putting interaction", err)
	}
	return nil
}

func (d *DynamoStore) GetInteraction(ctx context.Context, id, timestamp string) (*model.InteractionRecord, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.interactionsTable),
		Key: map[string]types.AttributeValue{
			"id":        &types.AttributeValueMemberS{Value: id},
			"timestamp": &types.AttributeValueMemberS{Value: timestamp},
		},
	})
	if err != nil {
		return nil, dynamoErr("getting interaction", err)
	}
	if out.Item == nil {
		return nil, engine.NewStoreError(engine.StoreNotFound, fmt.Errorf("interaction %s@%s", id, timestamp))
	}

	var rec model.InteractionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling interaction: %w", err)
	}
	return &rec, nil
}

func (d *DynamoStore) ScanInteractions(ctx context.Context) ([]model.InteractionRecord, error) {
	return d.scanInteractions(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.interactionsTable),
	})
}

func (d *DynamoStore) QueryInteractionsSince(ctx context.Context, since time.Time) ([]model.InteractionRecord, error) {
	// Timestamps span every partition, so this is a filtered scan rather
	// than a key-condition query.
	return d.scanInteractions(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(d.interactionsTable),
		FilterExpression: aws.String("#ts >= :since"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":since": &types.AttributeValueMemberS{Value: since.UTC().Format(time.RFC3339)},
		},
	})
}

func (d *DynamoStore) scanInteractions(ctx context.Context, input *dynamodb.ScanInput) ([]model.InteractionRecord, error) {
	var out []model.InteractionRecord

	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dynamoErr("scanning interactions", err)
		}
		var recs []model.InteractionRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshaling scan page: %w", err)
		}
		out = append(out, recs...)
	}

	sortByTimestamp(out)
	return out, nil
}

func (d *DynamoStore) QueryInteractionsByUser(ctx context.Context, userID string) ([]model.InteractionRecord, error) {
	var out []model.InteractionRecord

	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.interactionsTable),
		IndexName:              aws.String(UserIndex),
		KeyConditionExpression: aws.String("userId = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dynamoErr("querying interactions by user", err)
		}
		var recs []model.InteractionRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshaling query page: %w", err)
		}
		out = append(out, recs...)
	}

	sortByTimestamp(out)
	return out, nil
}

func (d *DynamoStore) PutBackupMetadata(ctx context.Context, meta *model.BackupMetadata) error {
	item, err := attributevalue.MarshalMap(meta)
	if err != nil {
		return fmt.Errorf("marshaling backup metadata: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.backupsTable),
		Item:      item,
	})
	if err != nil {
		return dynamoErr("putting backup metadata", err)
	}
	return nil
}

func (d *DynamoStore) GetBackupMetadata(ctx context.Context, backupID string) (*model.BackupMetadata, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.backupsTable),
		Key: map[string]types.AttributeValue{
			"backupId": &types.AttributeValueMemberS{Value: backupID},
		},
	})
	if err != nil {
		return nil, dynamoErr("getting backup metadata", err)
	}
	if out.Item == nil {
		return nil, engine.NewStoreError(engine.StoreNotFound, fmt.Errorf("backup %s", backupID))
	}

	var meta model.BackupMetadata
	if err := attributevalue.UnmarshalMap(out.Item, &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling backup metadata: %w", err)
	}
	return &meta, nil
}

func (d *DynamoStore) ListBackupMetadata(ctx context.Context) ([]model.BackupMetadata, error) {
	var out []model.BackupMetadata

	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName: aws.String(d.backupsTable),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dynamoErr("scanning backup metadata", err)
		}
		var metas []model.BackupMetadata
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &metas); err != nil {
			return nil, fmt.Errorf("unmarshaling backup metadata page: %w", err)
		}
		out = append(out, metas...)
	}
	return out, nil
}

func (d *DynamoStore) DeleteBackupMetadata(ctx context.Context, backupIDs []string) error {
	for start := 0; start < len(backupIDs); start += dynamoBatchSize {
		end := min(start+dynamoBatchSize, len(backupIDs))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, id := range backupIDs[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"backupId": &types.AttributeValueMemberS{Value: id},
					},
				},
			})
		}

		_, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				d.backupsTable: requests,
			},
		})
		if err != nil {
			return dynamoErr("batch deleting backup metadata", err)
		}
	}
	return nil
}

func (d *DynamoStore) Close() error { return nil }

// dynamoErr maps AWS SDK errors into the store taxonomy.
func dynamoErr(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)

	var throttled *types.ProvisionedThroughputExceededException
	if errors.As(err, &throttled) {
		return engine.NewStoreError(engine.StoreThrottled, wrapped)
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return engine.NewStoreError(engine.StoreNotFound, wrapped)
	}
	return engine.NewStoreError(engine.StoreUnknown, wrapped)
}
