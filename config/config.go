package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	LogConfig         LogConfig         `json:"log_config"`
	DBConfig          DBConfig          `json:"db_config"`
	ChainConfig       ChainConfig       `json:"chain_config"`
	ProofMarketConfig ProofMarketConfig `json:"proof_market_config"`
	RelayerConfig     RelayerConfig     `json:"relayer_config"`
	MetricsConfig     MetricsConfig     `json:"metrics_config"`
}

func (c *Config) Validate() {
	c.LogConfig.Validate()
	c.ChainConfig.Validate()
	c.ProofMarketConfig.Validate()
	c.RelayerConfig.Validate()
	if c.RelayerConfig.CheckpointBackend == CheckpointBackendDB {
		c.DBConfig.Validate()
	}
}

type ChainConfig struct {
	RPCAddr          string `json:"rpc_addr"`           // RPCAddr is the JSON-RPC endpoint used for log queries and transactions
	WSAddr           string `json:"ws_addr"`            // WSAddr enables new-head subscriptions; the head poller is used when empty
	EndpointContract string `json:"endpoint_contract"`  // EndpointContract is the deployed proof market endpoint address
	ChainID          uint64 `json:"chain_id"`           // ChainID is used to sign relayer transactions
	GasLimit         uint64 `json:"gas_limit"`          // GasLimit is the ceiling attached to closeOrder/setProducer
	HeadPollInterval int64  `json:"head_poll_interval"` // HeadPollInterval in seconds, only used by the head poller
	ResubscribeDelay int64  `json:"resubscribe_delay"`  // ResubscribeDelay in seconds to wait after a stream error
	KeyType          string `json:"key_type"`
	PrivateKey       string `json:"private_key"`
	AWSRegion        string `json:"aws_region"`
	AWSSecretName    string `json:"aws_secret_name"`
}

func (cfg *ChainConfig) Validate() {
	if cfg.RPCAddr == "" {
		panic("rpc_addr should not be empty")
	}
	if !common.IsHexAddress(cfg.EndpointContract) {
		panic(fmt.Sprintf("endpoint_contract %q is not a valid address", cfg.EndpointContract))
	}
	if cfg.ChainID == 0 {
		panic("chain_id should be set")
	}
	if cfg.KeyType != KeyTypeLocalPrivateKey && cfg.KeyType != KeyTypeAWSPrivateKey {
		panic(fmt.Sprintf("only %s and %s key types supported", KeyTypeLocalPrivateKey, KeyTypeAWSPrivateKey))
	}
	if cfg.KeyType == KeyTypeAWSPrivateKey && (cfg.AWSRegion == "" || cfg.AWSSecretName == "") {
		panic("aws_region and aws_secret_name should be set for aws private key")
	}
}

func (cfg *ChainConfig) GetGasLimit() uint64 {
	if cfg.GasLimit != 0 {
		return cfg.GasLimit
	}
	return DefaultGasLimit
}

func (cfg *ChainConfig) GetHeadPollInterval() time.Duration {
	if cfg.HeadPollInterval > 0 {
		return time.Duration(cfg.HeadPollInterval) * time.Second
	}
	return DefaultHeadPollInterval
}

func (cfg *ChainConfig) GetResubscribeDelay() time.Duration {
	if cfg.ResubscribeDelay > 0 {
		return time.Duration(cfg.ResubscribeDelay) * time.Second
	}
	return DefaultResubscribeDelay
}

type ProofMarketConfig struct {
	Endpoint string `json:"endpoint"`
	Username string `json:"username"`
	Password string `json:"password"`
	Timeout  int64  `json:"timeout"` // Timeout in seconds for a single request
}

func (cfg *ProofMarketConfig) Validate() {
	if cfg.Endpoint == "" {
		panic("proof market endpoint should not be empty")
	}
}

func (cfg *ProofMarketConfig) GetTimeout() time.Duration {
	if cfg.Timeout > 0 {
		return time.Duration(cfg.Timeout) * time.Second
	}
	return DefaultProofMarketTimeout
}

type RelayerConfig struct {
	CheckpointBackend     string `json:"checkpoint_backend"`      // CheckpointBackend is either "file" or "db"
	CheckpointDir         string `json:"checkpoint_dir"`          // CheckpointDir holds the checkpoint files for the file backend
	ReconcileInterval     int64  `json:"reconcile_interval"`      // ReconcileInterval in seconds between two reconciliation cycles
	ReconcileConcurrency  int    `json:"reconcile_concurrency"`   // ReconcileConcurrency bounds the per-order fan-out, 0 means unbounded
	RelayStatuses         bool   `json:"relay_statuses"`          // RelayStatuses enables the producer-only pass over created orders
	StatementRegistryPath string `json:"statement_registry_path"` // StatementRegistryPath points to the statement template registry
	ProducerCacheSize     uint64 `json:"producer_cache_size"`
}

func (cfg *RelayerConfig) Validate() {
	if cfg.CheckpointBackend == "" {
		cfg.CheckpointBackend = CheckpointBackendFile
	}
	if cfg.CheckpointBackend != CheckpointBackendFile && cfg.CheckpointBackend != CheckpointBackendDB {
		panic(fmt.Sprintf("only %s and %s checkpoint backends supported", CheckpointBackendFile, CheckpointBackendDB))
	}
	if cfg.CheckpointBackend == CheckpointBackendFile && cfg.CheckpointDir == "" {
		panic("checkpoint_dir should not be empty if use file checkpoint")
	}
	if cfg.StatementRegistryPath == "" {
		panic("statement_registry_path should not be empty")
	}
	if cfg.ReconcileConcurrency < 0 {
		panic("reconcile_concurrency should not be negative")
	}
}

func (cfg *RelayerConfig) GetReconcileInterval() time.Duration {
	if cfg.ReconcileInterval > 0 {
		return time.Duration(cfg.ReconcileInterval) * time.Second
	}
	return DefaultReconcileInterval
}

func (cfg *RelayerConfig) GetProducerCacheSize() uint64 {
	if cfg.ProducerCacheSize != 0 {
		return cfg.ProducerCacheSize
	}
	return DefaultProducerCacheSize
}

type MetricsConfig struct {
	Enable bool   `json:"enable"`
	Addr   string `json:"addr"`
}

type DBConfig struct {
	Dialect       string `json:"dialect"`
	KeyType       string `json:"key_type"`
	AWSRegion     string `json:"aws_region"`
	AWSSecretName string `json:"aws_secret_name"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Url           string `json:"url"`
	MaxIdleConns  int    `json:"max_idle_conns"`
	MaxOpenConns  int    `json:"max_open_conns"`
}

func (cfg *DBConfig) Validate() {
	if cfg.Dialect != DBDialectMysql && cfg.Dialect != DBDialectSqlite3 {
		panic(fmt.Sprintf("only %s and %s supported", DBDialectMysql, DBDialectSqlite3))
	}
	if cfg.Dialect == DBDialectMysql && (cfg.Username == "" || cfg.Url == "") {
		panic("db config is not correct, missing username and/or url")
	}
	if cfg.MaxIdleConns == 0 || cfg.MaxOpenConns == 0 {
		panic("db connections is not correct")
	}
}

type LogConfig struct {
	Level                        string `json:"level"`
	Filename                     string `json:"filename"`
	MaxFileSizeInMB              int    `json:"max_file_size_in_mb"`
	MaxBackupsOfLogFiles         int    `json:"max_backups_of_log_files"`
	MaxAgeToRetainLogFilesInDays int    `json:"max_age_to_retain_log_files_in_days"`
	UseConsoleLogger             bool   `json:"use_console_logger"`
	UseFileLogger                bool   `json:"use_file_logger"`
	Compress                     bool   `json:"compress"`
}

func (cfg *LogConfig) Validate() {
	if cfg.UseFileLogger {
		if cfg.Filename == "" {
			panic("filename should not be empty if use file logger")
		}
		if cfg.MaxFileSizeInMB <= 0 {
			panic("max_file_size_in_mb should be larger than 0 if use file logger")
		}
		if cfg.MaxBackupsOfLogFiles <= 0 {
			panic("max_backups_off_log_files should be larger than 0 if use file logger")
		}
	}
}

func ParseConfigFromJson(content string) *Config {
	var config Config
	if err := json.Unmarshal([]byte(content), &config); err != nil {
		panic(err)
	}
	return &config
}

func ParseConfigFromFile(filePath string) *Config {
	bz, err := os.ReadFile(filePath)
	if err != nil {
		panic(err)
	}
	var config Config
	if err := json.Unmarshal(bz, &config); err != nil {
		panic(err)
	}
	return &config
}
