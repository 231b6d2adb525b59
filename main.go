package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bnb-chain/proof-relayer/config"
	"github.com/bnb-chain/proof-relayer/db"
	"github.com/bnb-chain/proof-relayer/external"
	"github.com/bnb-chain/proof-relayer/external/proofmarket"
	"github.com/bnb-chain/proof-relayer/logging"
	"github.com/bnb-chain/proof-relayer/metrics"
	"github.com/bnb-chain/proof-relayer/relayer"
	"github.com/bnb-chain/proof-relayer/statement"
)

func initFlags() {
	flag.String(config.FlagConfigPath, "", "config file path")
	flag.String(config.FlagConfigType, "", "config type, local or aws")
	flag.String(config.FlagConfigAwsRegion, "", "aws region")
	flag.String(config.FlagConfigAwsSecretKey, "", "aws secret key")
	flag.String(config.FlagConfigPrivateKey, "", "relayer private key")
	flag.String(config.FlagConfigDbPass, "", "relayer db password")

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	err := viper.BindPFlags(pflag.CommandLine)
	if err != nil {
		panic(err)
	}
}

func printUsage() {
	fmt.Print("usage: ./proof-relayer --config-type local --config-path configFile\n")
	fmt.Print("usage: ./proof-relayer --config-type aws --aws-region awsRegin --aws-secret-key awsSecretKey\n")
}

func loadConfig() *config.Config {
	configType := viper.GetString(config.FlagConfigType)
	if configType == "" {
		configType = os.Getenv(config.EnvVarConfigType)
	}
	if configType == "" {
		configType = config.LocalConfig
	}
	switch configType {
	case config.AWSConfig:
		awsSecretKey := viper.GetString(config.FlagConfigAwsSecretKey)
		awsRegion := viper.GetString(config.FlagConfigAwsRegion)
		if awsSecretKey == "" || awsRegion == "" {
			return nil
		}
		configContent, err := config.GetSecret(awsSecretKey, awsRegion)
		if err != nil {
			fmt.Printf("get aws config error, err=%s", err.Error())
			return nil
		}
		return config.ParseConfigFromJson(configContent)
	case config.LocalConfig:
		configFilePath := viper.GetString(config.FlagConfigPath)
		if configFilePath == "" {
			configFilePath = os.Getenv(config.EnvVarConfigFilePath)
		}
		if configFilePath == "" {
			return nil
		}
		return config.ParseConfigFromFile(configFilePath)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	initFlags()
	cfg := loadConfig()
	if cfg == nil {
		printUsage()
		return
	}
	cfg.Validate()
	logging.InitLogger(&cfg.LogConfig)

	cfg.ProofMarketConfig.Username = firstNonEmpty(os.Getenv(config.EnvVarProofMarketUsername), cfg.ProofMarketConfig.Username)
	cfg.ProofMarketConfig.Password = firstNonEmpty(os.Getenv(config.EnvVarProofMarketPassword), cfg.ProofMarketConfig.Password)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := statement.LoadRegistry(cfg.RelayerConfig.StatementRegistryPath)
	if err != nil {
		panic(err)
	}
	logging.Logger.Infof("loaded %d statement templates", registry.Len())

	privateKey := firstNonEmpty(viper.GetString(config.FlagConfigPrivateKey), os.Getenv(config.EnvVarPrivateKey))
	if privateKey == "" {
		privateKey = cfg.ChainConfig.GetPrivateKey()
	}
	chainClient, err := external.NewChainClient(ctx, &cfg.ChainConfig, privateKey)
	if err != nil {
		panic(err)
	}
	defer chainClient.Close()
	logging.Logger.Infof("relayer address %s", chainClient.RelayerAddress().Hex())

	market := proofmarket.NewClient(cfg.ProofMarketConfig.Endpoint,
		proofmarket.WithBasicAuth(cfg.ProofMarketConfig.Username, cfg.ProofMarketConfig.Password),
		proofmarket.WithTimeout(cfg.ProofMarketConfig.GetTimeout()),
	)

	var stores relayer.StoreFactory
	if cfg.RelayerConfig.CheckpointBackend == config.CheckpointBackendDB {
		password := firstNonEmpty(viper.GetString(config.FlagConfigDbPass), os.Getenv(config.EnvVarDBUserPass))
		if password == "" {
			password = cfg.DBConfig.GetDBPass()
		}
		dao := db.NewRelayerDB(db.InitDB(&cfg.DBConfig, password))
		restored, err := dao.ListCheckpoints()
		if err != nil {
			panic(err)
		}
		for _, cp := range restored {
			logging.Logger.Infof("restored checkpoint %s=%d", cp.Name, cp.Value)
		}
		stores = relayer.DBStoreFactory(dao)
	} else {
		stores = relayer.FileStoreFactory(cfg.RelayerConfig.CheckpointDir)
	}

	r, err := relayer.NewRelayer(cfg, chainClient, market, registry, stores)
	if err != nil {
		panic(err)
	}

	if cfg.MetricsConfig.Enable {
		addr := cfg.MetricsConfig.Addr
		if addr == "" {
			addr = config.DefaultMetricsAddress
		}
		metrics.NewMetrics(addr).Start()
	}

	r.Run(ctx)
	logging.Logger.Info("relayer stopped")
}
