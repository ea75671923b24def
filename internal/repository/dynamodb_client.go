package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"openrouter-chat/internal/domain"
)

const (
	pkPrefix     = "EXCHANGE#"
	pkDayLayout  = "2006-01-02"
	skTimeLayout = "2006-01-02T15:04:05.000000000Z" // fixed width so SK sorts chronologically
	ttlDuration  = 30 * 24 * time.Hour              // 30-day TTL
	defaultLimit = 20
	maxLimit     = math.MaxInt32
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client stores completed exchanges in a DynamoDB table, partitioned by UTC day.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// dayPK returns the partition key holding all exchanges of one UTC day.
func dayPK(ts time.Time) string {
	return pkPrefix + ts.UTC().Format(pkDayLayout)
}

func exchangeSK(ts time.Time, requestID string) string {
	return ts.UTC().Format(skTimeLayout) + "#" + requestID
}

// Save writes one exchange. CreatedAt and TTL are filled in when zero.
func (c *Client) Save(ctx context.Context, ex domain.Exchange) error {
	if strings.TrimSpace(ex.RequestID) == "" {
		return errors.New("repository: Save: request id is required")
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = c.now()
	}
	if ex.TTL == 0 {
		ex.TTL = ex.CreatedAt.Add(ttlDuration).Unix()
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                exchangeItem(ex),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

// ListRecent returns up to limit exchanges recorded on the UTC day of day,
// newest first.
func (c *Client) ListRecent(ctx context.Context, day time.Time, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: dayPK(day)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListRecent query: %w", err)
	}

	exchanges := make([]domain.Exchange, 0, len(out.Items))
	for _, item := range out.Items {
		ex, err := itemToExchange(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListRecent unmarshal: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

func exchangeItem(ex domain.Exchange) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: dayPK(ex.CreatedAt)},
		"SK":         &types.AttributeValueMemberS{Value: exchangeSK(ex.CreatedAt, ex.RequestID)},
		"requestId":  &types.AttributeValueMemberS{Value: ex.RequestID},
		"model":      &types.AttributeValueMemberS{Value: ex.Model},
		"prompt":     &types.AttributeValueMemberS{Value: ex.Prompt},
		"responseId": &types.AttributeValueMemberS{Value: ex.ResponseID},
		"content":    &types.AttributeValueMemberS{Value: ex.Content},
		"createdAt":  &types.AttributeValueMemberS{Value: ex.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(ex.TTL, 10)},
	}
}

func itemToExchange(item map[string]types.AttributeValue) (domain.Exchange, error) {
	requestID, err := strAttr(item, "requestId")
	if err != nil {
		return domain.Exchange{}, err
	}
	createdRaw, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.Exchange{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("repository: parse attribute %q: %w", "createdAt", err)
	}
	model, _ := strAttr(item, "model") // allow empty
	prompt, _ := strAttr(item, "prompt")
	responseID, _ := strAttr(item, "responseId")
	content, _ := strAttr(item, "content")
	ttl, _ := intAttr(item, "ttl")

	return domain.Exchange{
		RequestID:  requestID,
		Model:      model,
		Prompt:     prompt,
		ResponseID: responseID,
		Content:    content,
		CreatedAt:  createdAt,
		TTL:        int64(ttl),
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
