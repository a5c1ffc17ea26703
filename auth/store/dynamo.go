package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoSlots.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

const slotPrefix = "SLOT#"

type slotItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Value     string `dynamodbav:"Value"`
	UpdatedAt int64  `dynamodbav:"UpdatedAt"`
}

// DynamoSlots stores slots in a single-table layout:
// PK = partition, SK = "SLOT#<key>", Value = token.
type DynamoSlots struct {
	client    DynamoAPI
	table     string
	partition string
}

// NewDynamoSlots creates slots stored in table under partition.
func NewDynamoSlots(client DynamoAPI, table, partition string) *DynamoSlots {
	return &DynamoSlots{client: client, table: table, partition: partition}
}

func (d *DynamoSlots) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get slot %v: %w", key, err)
	}
	if out.Item == nil {
		return "", false, nil
	}
	var item slotItem
	if err = attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal slot %v: %w", key, err)
	}
	return item.Value, true, nil
}

func (d *DynamoSlots) Set(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(slotItem{
		PK:        d.partition,
		SK:        slotPrefix + key,
		Value:     value,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal slot %v: %w", key, err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put slot %v: %w", key, err)
	}
	return nil
}

func (d *DynamoSlots) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       d.itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete slot %v: %w", key, err)
	}
	return nil
}

func (d *DynamoSlots) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: d.partition},
		"SK": &types.AttributeValueMemberS{Value: slotPrefix + key},
	}
}
