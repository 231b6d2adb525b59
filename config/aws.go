package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// GetSecret reads a secret string (or base64 binary secret) from AWS Secrets Manager.
func GetSecret(secretName, region string) (string, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return "", err
	}
	svc := secretsmanager.New(sess)
	result, err := svc.GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return "", err
	}
	if result.SecretString != nil {
		return *result.SecretString, nil
	}
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(result.SecretBinary)))
	n, err := base64.StdEncoding.Decode(decoded, result.SecretBinary)
	if err != nil {
		return "", fmt.Errorf("failed to decode binary secret %s, err=%s", secretName, err.Error())
	}
	return string(decoded[:n]), nil
}

// GetPrivateKey returns the relayer's hex private key, either from the config itself or from
// the {"private_key": "..."} secret it points to.
func (cfg *ChainConfig) GetPrivateKey() string {
	if cfg.KeyType == KeyTypeAWSPrivateKey {
		result, err := GetSecret(cfg.AWSSecretName, cfg.AWSRegion)
		if err != nil {
			panic(err)
		}
		type AwsPrivateKey struct {
			PrivateKey string `json:"private_key"`
		}
		var awsPrivateKey AwsPrivateKey
		if err = json.Unmarshal([]byte(result), &awsPrivateKey); err != nil {
			panic(err)
		}
		return awsPrivateKey.PrivateKey
	}
	return cfg.PrivateKey
}

// GetDBPass returns the DB password, either from the config or from the {"db_pass": "..."}
// secret it points to.
func (cfg *DBConfig) GetDBPass() string {
	if cfg.KeyType == KeyTypeAWSPrivateKey {
		result, err := GetSecret(cfg.AWSSecretName, cfg.AWSRegion)
		if err != nil {
			panic(err)
		}
		type DBPass struct {
			DbPass string `json:"db_pass"`
		}
		var dbPassword DBPass
		if err = json.Unmarshal([]byte(result), &dbPassword); err != nil {
			panic(err)
		}
		return dbPassword.DbPass
	}
	return cfg.Password
}
