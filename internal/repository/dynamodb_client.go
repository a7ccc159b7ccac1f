package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"csv-summarizer/internal/domain"
)

const DefaultTableName = "CSV_Summaries"

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client writes summary records to a DynamoDB table keyed by "id".
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// SaveSummary writes one record holding the summary payload. The write is
// unconditional and is not retried.
func (c *Client) SaveSummary(ctx context.Context, summary domain.Summary, rowCount int) (domain.SummaryRecord, error) {
	record := NewSummaryRecord(summary, rowCount)

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return domain.SummaryRecord{}, fmt.Errorf("repository: SaveSummary marshal: %w", err)
	}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return domain.SummaryRecord{}, fmt.Errorf("repository: SaveSummary: %w", err)
	}
	return record, nil
}

// NewSummaryRecord builds a record with a fresh id and the current UTC time.
func NewSummaryRecord(summary domain.Summary, rowCount int) domain.SummaryRecord {
	return domain.SummaryRecord{
		ID:        newUUID(),
		Summary:   summary.Payload(),
		RowCount:  rowCount,
		Parsed:    !summary.IsFallback(),
		CreatedAt: now().UTC().Format(time.RFC3339),
	}
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
