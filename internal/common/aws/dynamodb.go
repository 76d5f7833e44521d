package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	errs "interview-notifier/internal/common/errors"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// KeyCondition describes an index query: a partition-key equality plus an
// optional BETWEEN range on the sort key.
type KeyCondition struct {
	PartitionName  string
	PartitionValue string
	SortName       string
	SortFrom       string
	SortTo         string
}

// StoreClient is the durable key-value store for appointments, appointment
// types and calendars. Every item carries an "id" partition key and an
// item-type marker; conditional writes are the only concurrency control.
type StoreClient struct {
	client DynamoDBAPI
}

func NewStoreClient(ctx context.Context, region string) (*StoreClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &StoreClient{client: dynamodb.NewFromConfig(cfg)}, nil
}

// NewStoreClientWithAPI wraps an existing DynamoDB API implementation (used in tests).
func NewStoreClientWithAPI(api DynamoDBAPI) *StoreClient {
	return &StoreClient{client: api}
}

func keyAttr(key string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"id": &ddbtypes.AttributeValueMemberS{Value: key},
	}
}

// Get loads the item stored under key into out. Returns ErrItemNotFound when
// the key does not exist.
func (s *StoreClient) Get(ctx context.Context, table, key string, out interface{}) error {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       keyAttr(key),
	})
	if err != nil {
		return errs.NewStoreFailedError("get", err)
	}
	if len(resp.Item) == 0 {
		return fmt.Errorf("table %s key %s: %w", table, key, errs.ErrItemNotFound)
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return errs.NewStoreFailedError("get:unmarshal", err)
	}
	return nil
}

// Put writes item under key. With updateAllowed=false the write is
// conditional on the key not existing and a conflict is reported distinctly,
// which is how double-creation of the same appointment is detected.
func (s *StoreClient) Put(ctx context.Context, table, key, itemType string, item interface{}, updateAllowed bool) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return errs.NewStoreFailedError("put:marshal", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	av["id"] = &ddbtypes.AttributeValueMemberS{Value: key}
	av["type"] = &ddbtypes.AttributeValueMemberS{Value: itemType}
	av["modified"] = &ddbtypes.AttributeValueMemberS{Value: now}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	}
	if !updateAllowed {
		input.ConditionExpression = aws.String("attribute_not_exists(id)")
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return errs.NewStoreConflictError(table, key)
		}
		return errs.NewStoreFailedError("put", err)
	}
	return nil
}

// Update sets the given fields on an existing item.
func (s *StoreClient) Update(ctx context.Context, table, key string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	expr := "SET "
	names := map[string]string{}
	values := map[string]ddbtypes.AttributeValue{}
	i := 0
	for name, value := range fields {
		if i > 0 {
			expr += ", "
		}
		nameRef := fmt.Sprintf("#f%d", i)
		valueRef := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return errs.NewStoreFailedError("update:marshal", err)
		}
		names[nameRef] = name
		values[valueRef] = av
		expr += fmt.Sprintf("%s = %s", nameRef, valueRef)
		i++
	}
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       keyAttr(key),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return errs.NewStoreFailedError("update", err)
	}
	return nil
}

// QueryIndex runs a key-condition query against a secondary index and
// unmarshals the matching items into out (a pointer to a slice).
func (s *StoreClient) QueryIndex(ctx context.Context, table, index string, cond KeyCondition, out interface{}) error {
	keyExpr := "#pk = :pk"
	names := map[string]string{"#pk": cond.PartitionName}
	values := map[string]ddbtypes.AttributeValue{
		":pk": &ddbtypes.AttributeValueMemberS{Value: cond.PartitionValue},
	}
	if cond.SortName != "" {
		keyExpr += " AND #sk BETWEEN :lo AND :hi"
		names["#sk"] = cond.SortName
		values[":lo"] = &ddbtypes.AttributeValueMemberS{Value: cond.SortFrom}
		values[":hi"] = &ddbtypes.AttributeValueMemberS{Value: cond.SortTo}
	}
	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String(keyExpr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return errs.NewStoreFailedError("query", err)
	}
	if err := attributevalue.UnmarshalListOfMaps(resp.Items, out); err != nil {
		return errs.NewStoreFailedError("query:unmarshal", err)
	}
	return nil
}

// ScanFilter scans a table for items whose field equals any of the given
// values and unmarshals them into out (a pointer to a slice).
func (s *StoreClient) ScanFilter(ctx context.Context, table, field string, fieldValues []interface{}, out interface{}) error {
	filter := ""
	names := map[string]string{"#f": field}
	values := map[string]ddbtypes.AttributeValue{}
	for i, v := range fieldValues {
		if i > 0 {
			filter += " OR "
		}
		ref := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return errs.NewStoreFailedError("scan:marshal", err)
		}
		values[ref] = av
		filter += fmt.Sprintf("#f = %s", ref)
	}
	resp, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(table),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return errs.NewStoreFailedError("scan", err)
	}
	if err := attributevalue.UnmarshalListOfMaps(resp.Items, out); err != nil {
		return errs.NewStoreFailedError("scan:unmarshal", err)
	}
	return nil
}

// Delete removes the item stored under key.
func (s *StoreClient) Delete(ctx context.Context, table, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       keyAttr(key),
	})
	if err != nil {
		return errs.NewStoreFailedError("delete", err)
	}
	return nil
}
