package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// InitializeAws loads the default AWS config chain. It is only needed when an
// output bucket is configured.
func InitializeAws(ctx context.Context) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error while initializing aws: %v", err)
	}
	return cfg, nil
}
