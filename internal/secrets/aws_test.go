package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock Secrets Manager client ---

type mockSecretsManager struct {
	mock.Mock
}

func (m *mockSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*secretsmanager.GetSecretValueOutput)
	return out, args.Error(1)
}

func (m *mockSecretsManager) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*secretsmanager.DescribeSecretOutput)
	return out, args.Error(1)
}

func secretIDIs(name string) any {
	return mock.MatchedBy(func(in *secretsmanager.GetSecretValueInput) bool {
		return aws.ToString(in.SecretId) == name
	})
}

func TestAWSStoreSatisfiesInterfaces(t *testing.T) {
	var _ Store = (*AWSStore)(nil)
	var _ Describer = (*AWSStore)(nil)
}

func TestAWSStore_GetSecret_String(t *testing.T) {
	client := new(mockSecretsManager)
	client.On("GetSecretValue", mock.Anything, secretIDIs("devops-demo/app-secret")).
		Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"password":"SuperSecret123"}`)}, nil).
		Once()

	store := newAWSStoreWithClient(client)
	payload, err := store.GetSecret(context.Background(), "devops-demo/app-secret")

	require.NoError(t, err)
	require.NotNil(t, payload.String)
	assert.Equal(t, `{"password":"SuperSecret123"}`, *payload.String)
	assert.Nil(t, payload.Binary)
	client.AssertExpectations(t)
}

func TestAWSStore_GetSecret_Binary(t *testing.T) {
	client := new(mockSecretsManager)
	client.On("GetSecretValue", mock.Anything, secretIDIs("bin")).
		Return(&secretsmanager.GetSecretValueOutput{SecretBinary: []byte("hello")}, nil)

	payload, err := newAWSStoreWithClient(client).GetSecret(context.Background(), "bin")

	require.NoError(t, err)
	assert.Nil(t, payload.String)
	assert.Equal(t, []byte("hello"), payload.Binary)
}

func TestAWSStore_GetSecret_ClassifiesErrors(t *testing.T) {
	client := new(mockSecretsManager)
	client.On("GetSecretValue", mock.Anything, mock.Anything).
		Return(nil, &smtypes.ResourceNotFoundException{Message: aws.String("not here")})

	_, err := newAWSStoreWithClient(client).GetSecret(context.Background(), "missing")

	require.Error(t, err)
	kind, ok := kindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, kind)
}

func TestAWSStore_GetSecret_NilOutputIsMalformed(t *testing.T) {
	client := new(mockSecretsManager)
	client.On("GetSecretValue", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := newAWSStoreWithClient(client).GetSecret(context.Background(), "weird")

	kind, ok := kindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, kind)
}

func TestAWSStore_DescribeSecret(t *testing.T) {
	client := new(mockSecretsManager)
	client.On("DescribeSecret", mock.Anything, mock.MatchedBy(func(in *secretsmanager.DescribeSecretInput) bool {
		return aws.ToString(in.SecretId) == "ok"
	})).Return(&secretsmanager.DescribeSecretOutput{}, nil)
	client.On("DescribeSecret", mock.Anything, mock.Anything).
		Return(nil, &smtypes.DecryptionFailure{Message: aws.String("kms")})

	store := newAWSStoreWithClient(client)

	assert.NoError(t, store.DescribeSecret(context.Background(), "ok"))

	err := store.DescribeSecret(context.Background(), "locked")
	kind, _ := kindOf(err)
	assert.Equal(t, KindAccessDenied, kind)
}

func TestNewAWSStore_DisablesRetries(t *testing.T) {
	store := NewAWSStore(aws.Config{Region: "us-east-1"})

	client, ok := store.client.(*secretsmanager.Client)
	require.True(t, ok)
	assert.Equal(t, 1, client.Options().Retryer.MaxAttempts())
}

func TestStoreProbe(t *testing.T) {
	client := new(mockSecretsManager)
	client.On("DescribeSecret", mock.Anything, mock.Anything).Return(&secretsmanager.DescribeSecretOutput{}, nil)

	probe := NewStoreProbe(newAWSStoreWithClient(client), "devops-demo/app-secret")

	assert.Equal(t, "secret_store", probe.Name())
	assert.NoError(t, probe.Check(context.Background()))
	client.AssertNotCalled(t, "GetSecretValue", mock.Anything, mock.Anything)
}

// TestAWSStore_UndecodableResponseIsMalformed drives the real SDK client
// against an endpoint that answers with a body that is not JSON.
func TestAWSStore_UndecodableResponseIsMalformed(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-amz-json-1.1")
		_, _ = w.Write([]byte("not json"))
	}))
	defer endpoint.Close()

	store := NewAWSStore(aws.Config{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(endpoint.URL),
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		}),
	})

	_, err := store.GetSecret(context.Background(), "devops-demo/app-secret")

	require.Error(t, err)
	kind, ok := kindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, kind)

	svc, err := NewService(store, "devops-demo/app-secret", nil)
	require.NoError(t, err)
	assert.Equal(t, "*** (error: MalformedError)", svc.Retrieve(context.Background()).Masked)
}
