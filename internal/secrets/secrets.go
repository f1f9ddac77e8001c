package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Store отдаёт значения секретов по имени.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// SSMStore читает секреты из SSM Parameter Store с расшифровкой.
type SSMStore struct {
	client *ssm.Client
}

// NewSSMStore создаёт SSMStore с учётными данными из окружения.
func NewSSMStore(ctx context.Context, region string) (*SSMStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SSMStore{client: ssm.NewFromConfig(cfg)}, nil
}

// Get возвращает расшифрованное значение параметра name.
func (s *SSMStore) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// StaticStore — секреты из памяти, для тестов и локального запуска.
type StaticStore map[string]string

func (s StaticStore) Get(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", fmt.Errorf("secret %q is not defined", name)
	}
	return v, nil
}
