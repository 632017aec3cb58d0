package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerFunc builds the client; replaced in tests.
var SecretsManagerFunc = func(ctx context.Context) (SecretsManagerAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

type tokenSecret struct {
	GitHubToken string `json:"github_token"`
}

// ResolveGitHubToken fills GitHubToken from Secrets Manager when only the secret id is set.
func (c *Config) ResolveGitHubToken(ctx context.Context) error {
	if c.GitHubToken != "" || c.GitHubTokenSecretID == "" {
		return nil
	}

	svc, err := SecretsManagerFunc(ctx)
	if err != nil {
		return err
	}

	out, err := svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(c.GitHubTokenSecretID),
	})
	if err != nil {
		return fmt.Errorf("failed to retrieve secret %s: %w", c.GitHubTokenSecretID, err)
	}

	token, err := parseTokenSecret(aws.ToString(out.SecretString))
	if err != nil {
		return err
	}
	c.GitHubToken = token
	return nil
}

// parseTokenSecret accepts either a raw token or {"github_token": "..."}.
func parseTokenSecret(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", &ConfigError{Field: "GITHUB_TOKEN_SECRET_ID", Message: "secret is empty"}
	}
	if !strings.HasPrefix(secret, "{") {
		return secret, nil
	}

	var s tokenSecret
	if err := json.Unmarshal([]byte(secret), &s); err != nil {
		return "", fmt.Errorf("failed to unmarshal secret string: %w", err)
	}
	if s.GitHubToken == "" {
		return "", &ConfigError{Field: "GITHUB_TOKEN_SECRET_ID", Message: "secret has no github_token field"}
	}
	return s.GitHubToken, nil
}
