package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	c := map[string]string{
		"PORT":    "9090",
		"BAD_INT": "nine",
		"FLAG":    "true",
		"ORIGINS": "https://a.dev, ,https://b.dev",
		"EMPTY":   "",
		"TIMEOUT": "15",
	}

	assert.Equal(t, "9090", GetString(c, "PORT", "8080"))
	assert.Equal(t, "8080", GetString(c, "EMPTY", "8080"))
	assert.Equal(t, "x", GetString(nil, "PORT", "x"))
	assert.Equal(t, 9090, GetInt(c, "PORT", 1))
	assert.Equal(t, 1, GetInt(c, "BAD_INT", 1))
	assert.Equal(t, int64(9090), GetInt64(c, "PORT", 1))
	assert.True(t, GetBool(c, "FLAG", false))
	assert.False(t, GetBool(c, "MISSING", false))
	assert.Equal(t, 15*time.Second, GetSeconds(c, "TIMEOUT", 180))
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, GetList(c, "ORIGINS"))
	assert.Nil(t, GetList(c, "MISSING"))
}

func TestNewSnapshotsEnvironment(t *testing.T) {
	t.Setenv("ML4E_CONFIG_TEST", "a=b")

	c := New()
	assert.Equal(t, "a=b", c["ML4E_CONFIG_TEST"])
}

type fakeParameterStore struct {
	pages [][]types.Parameter
	calls int
	err   error
}

func (f *fakeParameterStore) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++

	out := &ssm.GetParametersByPathOutput{Parameters: page}
	if f.calls < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestLoadParametersOverlaysMissingKeys(t *testing.T) {
	store := &fakeParameterStore{pages: [][]types.Parameter{
		{
			{Name: aws.String("/ml4e/prod/DB_PASSWORD"), Value: aws.String("secret")},
			{Name: aws.String("/ml4e/prod/PORT"), Value: aws.String("7000")},
		},
		{
			{Name: aws.String("/ml4e/prod/IMAGE_BUCKET"), Value: aws.String("ml4e-images")},
		},
	}}
	c := map[string]string{"PORT": "8080"}

	loaded, err := LoadParameters(context.Background(), c, store, "/ml4e/prod")
	require.NoError(t, err)

	assert.Equal(t, 2, loaded)
	assert.Equal(t, 2, store.calls)
	assert.Equal(t, "secret", c["DB_PASSWORD"])
	assert.Equal(t, "ml4e-images", c["IMAGE_BUCKET"])
	assert.Equal(t, "8080", c["PORT"])
}

func TestLoadParametersPropagatesErrors(t *testing.T) {
	store := &fakeParameterStore{err: errors.New("access denied")}

	_, err := LoadParameters(context.Background(), map[string]string{}, store, "/ml4e")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
