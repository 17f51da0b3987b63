// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/coinview/build"
	"github.com/btcsuite/coinview/internal/cfgutil"
	"github.com/btcsuite/coinview/wallet"
	"github.com/btcsuite/coinview/wallet/coins"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "coinview.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "coinview.log"
	defaultNetwork        = "mainnet"
	defaultMinConf        = 1
)

var (
	coinviewHomeDir   = btcutil.AppDataDir("coinview", false)
	defaultConfigFile = filepath.Join(coinviewHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(coinviewHomeDir, defaultLogDirname)
)

// ErrInvalidConfig is returned when the parsed options contradict each other
// or name an unknown network.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the options of the output enumeration engine.
type Config struct {
	// General application behavior
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	Network    string `long:"network" description:"Bitcoin network the wallet belongs to {mainnet, testnet3, regtest, signet, simnet}"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	MaxLogSize int64  `long:"maxlogsize" description:"Size in KB at which the log file is rolled"`
	MaxLogs    int    `long:"maxlogs" description:"Number of rolled log files to keep"`

	// Enumeration policy
	MinConf                  int32                `long:"minconf" description:"Minimum number of confirmations an output needs to be spendable"`
	MaxConf                  int32                `long:"maxconf" description:"Maximum number of confirmations a spendable output may have (0 for no limit)"`
	NoSpendUnconfirmedChange bool                 `long:"nospendunconfirmedchange" description:"Do not spend unconfirmed change of the wallet's own transactions"`
	IncludeUnsafe            bool                 `long:"includeunsafe" description:"Spend unconfirmed outputs of transactions the wallet did not fund"`
	RequireSolvable          bool                 `long:"requiresolvable" description:"Only return outputs the wallet can produce a witness or signature script for"`
	IncludeLeased            bool                 `long:"includeleased" description:"Return outputs that are currently leased"`
	MinAmount                *cfgutil.AmountFlag  `long:"minamount" description:"Smallest output value to return, in BTC"`
	MaxAmount                *cfgutil.AmountFlag  `long:"maxamount" description:"Largest output value to return, in BTC (0 for no limit)"`
	MaxCount                 int                  `long:"maxcount" description:"Maximum number of outputs to return (0 for no limit)"`
	FeeRate                  *cfgutil.FeeRateFlag `long:"feerate" description:"Fee rate in sat/kvB used for the effective value of each output"`
	DustRelayFee             *cfgutil.FeeRateFlag `long:"dustrelayfee" description:"Relay fee in sat/kvB below which outputs are skipped as dust (0 to disable)"`
	CoinbaseMaturity         uint16               `long:"coinbasematurity" description:"Override the network's coinbase maturity (0 for the network default)"`
}

// DefaultConfig returns the config used when no option is given.
func DefaultConfig() Config {
	return Config{
		ConfigFile:   defaultConfigFile,
		Network:      defaultNetwork,
		DebugLevel:   defaultLogLevel,
		LogDir:       defaultLogDir,
		MaxLogSize:   build.DefaultMaxLogFileSize,
		MaxLogs:      build.DefaultMaxLogFiles,
		MinConf:      defaultMinConf,
		MinAmount:    cfgutil.NewAmountFlag(0),
		MaxAmount:    cfgutil.NewAmountFlag(0),
		FeeRate:      cfgutil.NewFeeRateFlag(0),
		DustRelayFee: cfgutil.NewFeeRateFlag(0),
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(coinviewHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but they variables can still be expanded via POSIX-style
	// $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// Load initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// A missing config file is not an error. A help request is returned as a
// *flags.Error of type flags.ErrHelp.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	parser := flags.NewParser(&cfg, flags.HelpFlag)
	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	exists, err := cfgutil.FileExists(configFile)
	if err != nil {
		return nil, err
	}
	if exists {
		err := flags.NewIniParser(parser).ParseFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("unable to parse config file "+
				"%s: %w", configFile, err)
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(remainingArgs) > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v",
			ErrInvalidConfig, remainingArgs)
	}

	cfg.ConfigFile = configFile
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the options for contradictions.
func (c *Config) Validate() error {
	if _, err := c.ChainParams(); err != nil {
		return err
	}

	if err := validateDebugLevel(c.DebugLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.MaxLogSize <= 0 || c.MaxLogs < 0 {
		return fmt.Errorf("%w: log rotation needs a positive size and "+
			"a non-negative file count", ErrInvalidConfig)
	}

	elig := c.Eligibility()
	if err := elig.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// ChainParams returns the parameters of the configured network.
func (c *Config) ChainParams() (*chaincfg.Params, error) {
	switch c.Network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3", "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest", "regression":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("%w: unknown network %q",
			ErrInvalidConfig, c.Network)
	}
}

// Eligibility builds the enumeration policy the options describe.
func (c *Config) Eligibility() coins.Eligibility {
	elig := coins.DefaultEligibility()
	elig.MinConfs = c.MinConf
	elig.MaxConfs = c.MaxConf
	elig.SpendUnconfirmedChange = !c.NoSpendUnconfirmedChange
	elig.IncludeUnsafe = c.IncludeUnsafe
	elig.RequireSolvable = c.RequireSolvable
	elig.IncludeLeased = c.IncludeLeased
	elig.MaxCount = c.MaxCount

	if c.MinAmount != nil {
		elig.MinAmount = c.MinAmount.Amount
	}
	if c.MaxAmount != nil {
		elig.MaxAmount = c.MaxAmount.Amount
	}
	if c.FeeRate != nil {
		elig.FeeRate = c.FeeRate.Amount
	}
	if c.DustRelayFee != nil {
		elig.DustRelayFee = c.DustRelayFee.Amount
	}

	return elig
}

// Params returns the enumeration parameters of the configured network with
// the coinbase maturity override applied.
func (c *Config) Params() (coins.Params, error) {
	chainParams, err := c.ChainParams()
	if err != nil {
		return coins.Params{}, err
	}

	params := coins.ParamsFromChain(chainParams)
	if c.CoinbaseMaturity != 0 {
		params.CoinbaseMaturity = c.CoinbaseMaturity
	}

	return params, nil
}

// WalletOptions returns the wallet options the config implies.
func (c *Config) WalletOptions() ([]wallet.Option, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}

	return []wallet.Option{wallet.WithParams(params)}, nil
}

// LogFile returns the path of the rotated log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}
