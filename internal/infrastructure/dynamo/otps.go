package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-nosql/internal/domain"
)

// otpDynamoAPI is the slice of the DynamoDB client OTPRepo calls.
type otpDynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// OTPRepo manages password-reset codes. It also owns the consume-and-reset
// transaction, which spans the otps and users tables.
type OTPRepo struct {
	client     otpDynamoAPI
	tableName  string
	usersTable string
}

func NewOTPRepo(client *dynamodb.Client, tableName, usersTable string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName, usersTable: usersTable}
}

func (r *OTPRepo) Put(ctx context.Context, o *domain.OTP) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// FindActive returns the user's unused OTP matching code, or ErrNotFound.
// Used and non-matching records are skipped, so "wrong code" and "already
// consumed" are indistinguishable to the caller. The filter expression is
// applied after the page is read, so pages are followed until a match turns
// up or the index is exhausted.
func (r *OTPRepo) FindActive(ctx context.Context, userID, code string) (*domain.OTP, error) {
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-index"),
			KeyConditionExpression: aws.String("user_id = :u"),
			FilterExpression:       aws.String("#c = :c AND #used = :f"),
			ExpressionAttributeNames: map[string]string{
				"#c":    "code",
				"#used": "used",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":u": &types.AttributeValueMemberS{Value: userID},
				":c": &types.AttributeValueMemberS{Value: code},
				":f": &types.AttributeValueMemberBOOL{Value: false},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		if len(out.Items) > 0 {
			var o domain.OTP
			if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
				return nil, err
			}
			return &o, nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
		}
		startKey = out.LastEvaluatedKey
	}
}

// ConsumeAndSetPassword marks the OTP used and swaps the user's password hash
// in a single TransactWriteItems call. The condition on the OTP update makes
// concurrent consumption of the same code a first-writer-wins race: losers get
// ErrConflict and neither of their writes is applied.
func (r *OTPRepo) ConsumeAndSetPassword(ctx context.Context, otpID, userID, passwordHash string) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(r.tableName),
					Key:                 strKey("otp_id", otpID),
					UpdateExpression:    aws.String("SET #used = :t"),
					ConditionExpression: aws.String("attribute_exists(otp_id) AND #used = :f"),
					ExpressionAttributeNames: map[string]string{
						"#used": "used",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":t": &types.AttributeValueMemberBOOL{Value: true},
						":f": &types.AttributeValueMemberBOOL{Value: false},
					},
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(r.usersTable),
					Key:                 strKey("user_id", userID),
					UpdateExpression:    aws.String("SET password_hash = :h, updated_at = :u"),
					ConditionExpression: aws.String("attribute_exists(user_id)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":h": &types.AttributeValueMemberS{Value: passwordHash},
						":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
					},
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return fmt.Errorf("otp already consumed: %w", domain.ErrConflict)
				}
			}
		}
		return err
	}
	return nil
}
