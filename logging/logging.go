package logging

import (
	"os"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bnb-chain/proof-relayer/config"
)

const module = "proof-relayer"

var (
	// Logger is shared by every component of the relayer.
	Logger = logging.MustGetLogger(module)

	format = logging.MustStringFormatter(
		`%{time:2006-01-02T15:04:05.000} %{level:.4s} %{shortfile} %{message}`,
	)
)

// InitLogger sets up console and/or rotating file backends. With neither enabled the
// logger keeps writing to stderr.
func InitLogger(cfg *config.LogConfig) {
	var backends []logging.Backend

	if cfg.UseConsoleLogger || !cfg.UseFileLogger {
		consoleBackend := logging.NewLogBackend(os.Stdout, "", 0)
		backends = append(backends, logging.NewBackendFormatter(consoleBackend, format))
	}

	if cfg.UseFileLogger {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxFileSizeInMB,
			MaxBackups: cfg.MaxBackupsOfLogFiles,
			MaxAge:     cfg.MaxAgeToRetainLogFilesInDays,
			Compress:   cfg.Compress,
		}
		fileBackend := logging.NewLogBackend(fileWriter, "", 0)
		backends = append(backends, logging.NewBackendFormatter(fileBackend, format))
	}

	leveled := logging.MultiLogger(backends...)
	level, err := logging.LogLevel(cfg.Level)
	if err != nil {
		level = logging.INFO
	}
	leveled.SetLevel(level, module)
	Logger.SetBackend(leveled)
}
