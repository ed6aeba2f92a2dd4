package awsutil

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/codebuildervaibhav/voice-to-text/internal/config"
)

// Config returns an AWS config using the provided static credentials when
// present, otherwise the SDK's default chain (env, shared file, instance role).
func Config(cfg config.AWSConfig) *aws.Config {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	}
	return awsCfg
}

// NewSession builds the session shared by the S3 and Transcribe clients
func NewSession(cfg config.AWSConfig) (*session.Session, error) {
	sess, err := session.NewSession(Config(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}
