package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const awsSecretTimeout = 30 * time.Second

// resolveAWSSecretsManager resolves an AWS Secrets Manager reference.
// Format: secret-name, or secret-name#key for JSON secrets.
func resolveAWSSecretsManager(ref string) (string, error) {
	name, key, err := splitSecretRef(ref)
	if err != nil {
		return "", fmt.Errorf("invalid AWS Secrets Manager reference: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), awsSecretTimeout)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", name)
	}
	if key == "" {
		return *out.SecretString, nil
	}
	return jsonSecretField(*out.SecretString, key, "secret "+name)
}

func jsonSecretField(secret, key, what string) (string, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(secret), &data); err != nil {
		return "", fmt.Errorf("%s is not a JSON object: %w", what, err)
	}
	return stringField(data, key, what)
}

// splitSecretRef splits "path#key". The key part is optional.
func splitSecretRef(ref string) (path, key string, err error) {
	path, key, _ = strings.Cut(ref, "#")
	if strings.TrimSpace(path) == "" {
		return "", "", fmt.Errorf("empty secret path in %q", ref)
	}
	return path, key, nil
}

func stringField(data map[string]interface{}, key, what string) (string, error) {
	val, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in %s", key, what)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("value for key %q in %s is not a string", key, what)
	}
	return str, nil
}
