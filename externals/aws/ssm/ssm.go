package ssm

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type SystemManager struct {
	client *ssm.Client
}

// New create new SystemManager
// config will load secret, region from aws configure
func New(ctx context.Context) (*SystemManager, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &SystemManager{
		client: ssm.NewFromConfig(cfg),
	}, nil
}

// FindParameter find parameter in AWS SSM parameter store
func (s *SystemManager) FindParameter(ctx context.Context, parameterName string) (*ssm.GetParameterOutput, error) {
	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: aws.Bool(true),
	}

	parameter, err := s.client.GetParameter(ctx, input)
	if err != nil {
		return nil, err
	}

	return parameter, nil
}

// GetSecret returns the decrypted value of a SecureString parameter.
// Used to resolve database DSNs that are not supplied in plain config.
func (s *SystemManager) GetSecret(ctx context.Context, parameterName string) (string, error) {
	parameter, err := s.FindParameter(ctx, parameterName)
	if err != nil {
		return "", err
	}

	return aws.ToString(parameter.Parameter.Value), nil
}
