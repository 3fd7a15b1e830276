package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserDynamo struct {
	transactErr error
	gotTx       *dynamodb.TransactWriteItemsInput
}

func (f *fakeUserDynamo) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeUserDynamo) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeUserDynamo) UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeUserDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.gotTx = in
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func cancelledTx(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: reasons,
	}
}

func testUser() *domain.User {
	return &domain.User{UserID: "u1", Username: "alice", Email: "a@b.com", PasswordHash: "h"}
}

func TestUserPut_ClaimsUniquenessMarkers(t *testing.T) {
	f := &fakeUserDynamo{}
	repo := &UserRepo{client: f, tableName: "users"}

	require.NoError(t, repo.Put(context.Background(), testUser()))
	require.NotNil(t, f.gotTx)
	require.Len(t, f.gotTx.TransactItems, 3)

	emailKey := f.gotTx.TransactItems[1].Put.Item["user_id"].(*types.AttributeValueMemberS).Value
	usernameKey := f.gotTx.TransactItems[2].Put.Item["user_id"].(*types.AttributeValueMemberS).Value
	assert.Equal(t, "uniq#email#a@b.com", emailKey)
	assert.Equal(t, "uniq#username#alice", usernameKey)
	for _, item := range f.gotTx.TransactItems {
		require.NotNil(t, item.Put.ConditionExpression)
		assert.Equal(t, "attribute_not_exists(user_id)", *item.Put.ConditionExpression)
	}
}

func TestUserPut_EmailMarkerTaken(t *testing.T) {
	f := &fakeUserDynamo{transactErr: cancelledTx("None", "ConditionalCheckFailed", "None")}
	repo := &UserRepo{client: f, tableName: "users"}

	err := repo.Put(context.Background(), testUser())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "Email already exists")
}

func TestUserPut_UsernameMarkerTaken(t *testing.T) {
	f := &fakeUserDynamo{transactErr: cancelledTx("None", "None", "ConditionalCheckFailed")}
	repo := &UserRepo{client: f, tableName: "users"}

	err := repo.Put(context.Background(), testUser())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "Username already exists")
}

func TestUserPut_OtherTransactionFailurePassesThrough(t *testing.T) {
	storeErr := errors.New("dynamo: connection refused")
	f := &fakeUserDynamo{transactErr: storeErr}
	repo := &UserRepo{client: f, tableName: "users"}

	err := repo.Put(context.Background(), testUser())

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
}
