package config

import "time"

const (
	FlagConfigPath         = "config-path"
	FlagConfigType         = "config-type"
	FlagConfigAwsRegion    = "aws-region"
	FlagConfigAwsSecretKey = "aws-secret-key"
	FlagConfigPrivateKey   = "private-key"
	FlagConfigDbPass       = "db-pass"

	AWSConfig   = "aws"
	LocalConfig = "local"

	KeyTypeLocalPrivateKey = "local_private_key"
	KeyTypeAWSPrivateKey   = "aws_private_key"

	DBDialectMysql   = "mysql"
	DBDialectSqlite3 = "sqlite3"

	CheckpointBackendFile = "file"
	CheckpointBackendDB   = "db"

	EnvVarConfigType          = "CONFIG_TYPE"
	EnvVarConfigFilePath      = "CONFIG_FILE_PATH"
	EnvVarDBUserPass          = "DB_PASSWORD"
	EnvVarPrivateKey          = "PRIVATE_KEY"
	EnvVarProofMarketUsername = "PROOF_MARKET_USERNAME"
	EnvVarProofMarketPassword = "PROOF_MARKET_PASSWORD"

	DefaultGasLimit           = 30_500_000
	DefaultHeadPollInterval   = 3 * time.Second
	DefaultResubscribeDelay   = 10 * time.Second
	DefaultReconcileInterval  = 10 * time.Second
	DefaultProofMarketTimeout = 30 * time.Second
	DefaultProducerCacheSize  = 1024
	DefaultMetricsAddress     = "0.0.0.0:9090"
)
