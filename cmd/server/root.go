package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"github.com/vedran77/parley/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "parley",
	Short:        "Real-time one-to-one chat coordinator",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		return initLog(viper.GetString("log.level"), viper.GetString("log.file"))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to a config file (yaml, json or toml)")

	rootCmd.PersistentFlags().StringP("logLevel", "v", "info",
		"Log threshold: trace, debug, info, warn or error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("logLevel"))

	rootCmd.PersistentFlags().String("logFile", "",
		"Write logs to this file instead of stdout")
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("logFile"))

	rootCmd.PersistentFlags().String("dbDriver", "postgres",
		"Storage backend: postgres, sqlite or mysql")
	viper.BindPFlag("db.driver", rootCmd.PersistentFlags().Lookup("dbDriver"))

	rootCmd.PersistentFlags().String("dsn", "",
		"Database connection string; for sqlite a file path, empty for in-memory")
	viper.BindPFlag("db.dsn", rootCmd.PersistentFlags().Lookup("dsn"))

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func initLog(level, logPath string) error {
	if logPath != "-" && logPath != "" {
		jww.SetStdoutOutput(io.Discard)
		logOutput, err := os.OpenFile(logPath,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrapf(err, "opening log file %s", logPath)
		}
		jww.SetLogOutput(logOutput)
	}

	var threshold jww.Threshold
	switch strings.ToLower(level) {
	case "trace":
		threshold = jww.LevelTrace
	case "debug":
		threshold = jww.LevelDebug
	case "", "info":
		threshold = jww.LevelInfo
	case "warn":
		threshold = jww.LevelWarn
	case "error":
		threshold = jww.LevelError
	default:
		return errors.Errorf("unknown log level %q", level)
	}

	jww.SetStdoutThreshold(threshold)
	jww.SetLogThreshold(threshold)
	if threshold <= jww.LevelDebug {
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
	jww.INFO.Printf("log level set to: %s", strings.ToUpper(level))
	return nil
}
