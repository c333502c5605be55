// Package jobs tracks the lifecycle of enqueued message jobs in
// DynamoDB, giving the HTTP surface something to poll while the
// worker computes a reply.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/anisalabs/anisa-platform/internal/assistant"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

const jobTTL = 24 * time.Hour

// Status is the lifecycle of a message job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound indicates the requested job id does not exist.
var ErrNotFound = errors.New("jobs: job not found")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Record is the persisted state of one enqueued message.
type Record struct {
	JobID        string            `dynamodbav:"jobId" json:"jobId"`
	UserID       string            `dynamodbav:"userId" json:"userId"`
	Status       Status            `dynamodbav:"status" json:"status"`
	Result       *assistant.Result `dynamodbav:"result,omitempty" json:"result,omitempty"`
	ErrorMessage string            `dynamodbav:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt    string            `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt    string            `dynamodbav:"updatedAt" json:"updatedAt"`
	ExpiresAt    int64             `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// Store persists job records to DynamoDB.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStore builds a store backed by the provided DynamoDB client.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("jobs: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("jobs: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// PutPending inserts a new pending job record. The condition rejects
// duplicate job ids so a webhook retry cannot clobber a running job.
func (s *Store) PutPending(ctx context.Context, job *Record) error {
	if job == nil {
		return errors.New("jobs: job cannot be nil")
	}
	now := time.Now().UTC()
	job.Status = StatusPending
	job.CreatedAt = now.Format(time.RFC3339Nano)
	job.UpdatedAt = job.CreatedAt
	if job.ExpiresAt == 0 {
		job.ExpiresAt = now.Add(jobTTL).Unix()
	}

	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("jobs: failed to marshal job: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(jobId)"),
	})
	if err != nil {
		return fmt.Errorf("jobs: failed to persist job: %w", err)
	}
	return nil
}

// MarkCompleted records the final result for a job.
func (s *Store) MarkCompleted(ctx context.Context, jobID string, result *assistant.Result) error {
	if jobID == "" {
		return errors.New("jobs: jobID required")
	}
	if result == nil {
		result = &assistant.Result{}
	}
	resultAttr, err := attributevalue.Marshal(result)
	if err != nil {
		return fmt.Errorf("jobs: failed to marshal result: %w", err)
	}

	return s.update(ctx, jobID,
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(StatusCompleted)},
			":result":  resultAttr,
			":error":   &types.AttributeValueMemberS{Value: ""},
			":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		"SET #status = :status, #result = :result, #error = :error, #updated = :updated",
	)
}

// MarkFailed records a terminal failure.
func (s *Store) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	if jobID == "" {
		return errors.New("jobs: jobID required")
	}
	return s.update(ctx, jobID,
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(StatusFailed)},
			":result":  &types.AttributeValueMemberNULL{Value: true},
			":error":   &types.AttributeValueMemberS{Value: errMsg},
			":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		"SET #status = :status, #result = :result, #error = :error, #updated = :updated",
	)
}

// Get fetches a job by id.
func (s *Store) Get(ctx context.Context, jobID string) (*Record, error) {
	if jobID == "" {
		return nil, errors.New("jobs: jobID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"jobId": &types.AttributeValueMemberS{Value: jobID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: failed to fetch job: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var job Record
	if err := attributevalue.UnmarshalMap(out.Item, &job); err != nil {
		return nil, fmt.Errorf("jobs: failed to decode job: %w", err)
	}
	return &job, nil
}

func (s *Store) update(ctx context.Context, jobID string, values map[string]types.AttributeValue, expression string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"jobId": &types.AttributeValueMemberS{Value: jobID},
		},
		UpdateExpression: aws.String(expression),
		ExpressionAttributeNames: map[string]string{
			"#status":  "status",
			"#result":  "result",
			"#error":   "errorMessage",
			"#updated": "updatedAt",
		},
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(jobId)"),
	})
	if err != nil {
		return fmt.Errorf("jobs: failed to update job %s: %w", jobID, err)
	}
	return nil
}
