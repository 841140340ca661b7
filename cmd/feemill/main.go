package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/config"
	"github.com/feemill/feemill/store/bolt"
	"github.com/feemill/feemill/x/auction"
	"github.com/feemill/feemill/x/stream"
	"github.com/feemill/feemill/x/voting"
)

var (
	flagConfig = "config"
	varConfig  *string
)

func init() {
	defaultConfig := filepath.Join(os.ExpandEnv("$HOME"), ".feemill", "config.yaml")
	varConfig = flag.String(flagConfig, defaultConfig, "path to the configuration file")

	flag.CommandLine.Usage = helpMessage
}

func helpMessage() {
	fmt.Println("feemill")
	fmt.Println("          Revenue sharing governance ledger")
	fmt.Println("")
	fmt.Println("help      Print this message")
	fmt.Println("init      Initialize the state database from the configuration")
	fmt.Println("version   Print the app version")
	fmt.Println(`
  -config string
        path to the configuration file (default "$HOME/.feemill/config.yaml")`)
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Println("Missing command:")
		helpMessage()
		os.Exit(1)
	}

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "help":
		helpMessage()
	case "init":
		err = initCmd(*varConfig)
	case "version":
		fmt.Println(feemill.Version)
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		fmt.Printf("Error: %+v\n\n", err)
		helpMessage()
		os.Exit(1)
	}
}

// initializers configure each extension from its configuration file
// section.
var initializers = []feemill.Initializer{
	&voting.Initializer{},
	&auction.Initializer{},
	&stream.Initializer{},
}

func initCmd(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	db, err := bolt.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	err = feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		for _, ini := range initializers {
			if err := ini.FromGenesis(opts, db); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := db.Commit(); err != nil {
		return err
	}
	logger.Info("state initialized", zap.String("db", cfg.Database.Path))
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return nil, err
	}
	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(lvl)
	return conf.Build()
}
