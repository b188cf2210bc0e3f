package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"svario/internal/security"
	"svario/internal/shopify"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// integrationItem is one row of the integrations table.
// PK = SHOP#<shopDomain>
type integrationItem struct {
	PK             string `dynamodbav:"PK"`
	Shop           string `dynamodbav:"Shop"`
	Provider       string `dynamodbav:"Provider"`
	AccessTokenEnc string `dynamodbav:"AccessTokenEnc"`
	UpdatedAt      string `dynamodbav:"UpdatedAt"`
}

func shopPK(shop string) string {
	return fmt.Sprintf("SHOP#%s", shop)
}

// DynamoTokenStore keeps encrypted tokens in the integrations table.
type DynamoTokenStore struct {
	ddb    DDBClient
	table  string
	sealer *security.Sealer
	now    func() time.Time
}

func NewDynamoTokenStore(ddb DDBClient, table string, sealer *security.Sealer) *DynamoTokenStore {
	return &DynamoTokenStore{ddb: ddb, table: table, sealer: sealer, now: time.Now}
}

func (s *DynamoTokenStore) Put(ctx context.Context, shop string, token shopify.AccessToken) error {
	enc, err := s.sealer.Seal(shop, token.Value())
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}

	item, err := attributevalue.MarshalMap(integrationItem{
		PK:             shopPK(shop),
		Shop:           shop,
		Provider:       "shopify",
		AccessTokenEnc: enc,
		UpdatedAt:      s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal integration: %w", err)
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("ddb put integration: %w", err)
	}
	return nil
}

func (s *DynamoTokenStore) Get(ctx context.Context, shop string) (shopify.AccessToken, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: shopPK(shop)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ddb get integration: %w", err)
	}
	if len(out.Item) == 0 {
		return "", ErrNotFound
	}

	var integ integrationItem
	if err := attributevalue.UnmarshalMap(out.Item, &integ); err != nil {
		return "", fmt.Errorf("unmarshal integration: %w", err)
	}
	if integ.AccessTokenEnc == "" {
		return "", ErrNotFound
	}

	plain, err := s.sealer.Open(shop, integ.AccessTokenEnc)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return shopify.AccessToken(plain), nil
}

func (s *DynamoTokenStore) Has(ctx context.Context, shop string) (bool, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: shopPK(shop)},
		},
		ProjectionExpression: aws.String("PK"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("ddb get integration: %w", err)
	}
	return len(out.Item) > 0, nil
}

// DynamoStateStore keeps install states in the OAuth state table. The table
// should have TTL enabled on ExpiresAtEpoch; expiry is also checked on read
// because DynamoDB removes expired items lazily.
type DynamoStateStore struct {
	ddb   DDBClient
	table string
	now   func() time.Time
}

func NewDynamoStateStore(ddb DDBClient, table string) *DynamoStateStore {
	return &DynamoStateStore{ddb: ddb, table: table, now: time.Now}
}

func (s *DynamoStateStore) Save(ctx context.Context, state, shop string, ttl time.Duration) error {
	exp := s.now().UTC().Add(ttl).Unix()

	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"State":          &types.AttributeValueMemberS{Value: state},
			"Shop":           &types.AttributeValueMemberS{Value: shop},
			"ExpiresAtEpoch": &types.AttributeValueMemberN{Value: strconv.FormatInt(exp, 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(#s)"),
		ExpressionAttributeNames: map[string]string{
			"#s": "State",
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return ErrStateCollision
		}
		return fmt.Errorf("ddb put oauth state: %w", err)
	}
	return nil
}

func (s *DynamoStateStore) Consume(ctx context.Context, state string) (string, error) {
	out, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"State": &types.AttributeValueMemberS{Value: state},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return "", fmt.Errorf("ddb delete oauth state: %w", err)
	}
	if len(out.Attributes) == 0 {
		return "", ErrNotFound
	}

	shop := attrS(out.Attributes["Shop"])
	exp, _ := strconv.ParseInt(attrN(out.Attributes["ExpiresAtEpoch"]), 10, 64)
	if shop == "" || exp == 0 || s.now().UTC().Unix() > exp {
		return "", ErrNotFound
	}
	return shop, nil
}

func attrS(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func attrN(av types.AttributeValue) string {
	if n, ok := av.(*types.AttributeValueMemberN); ok {
		return n.Value
	}
	return ""
}
