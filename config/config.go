package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// SlippageDefaults holds the initial slippage settings for a session.
type SlippageDefaults struct {
	TolerancePercent    float64
	MaxTolerancePercent float64
	DeadlineMinutes     int
	Auto                bool
}

// PolicyDefaults holds the initial MEV-protection settings for a session.
type PolicyDefaults struct {
	Enabled         bool
	MaxGasPriceWei  string
	PriorityFeeWei  string
	DeadlineMinutes int
	UsePrivateRelay bool
	FrontrunGuard   bool
	SandwichGuard   bool
	FlashloanGuard  bool
}

// DepthTiers defines pool-depth thresholds (18-decimal amounts of the
// settlement asset) below which the auto-tolerance adds safety margin.
type DepthTiers struct {
	ThinBelow     string
	ModerateBelow string
}

// PriceFeed holds settings for the off-chain reference price source used when
// the pool has no liquidity.
type PriceFeed struct {
	Enabled   bool
	JWTToken  string
	AssetA    string
	AssetB    string
	Recipient string
	Probe     string
}

// Config holds the application configuration
type Config struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string

	RouterAddress string
	PairAddress   string
	TokenAAddress string
	TokenBAddress string

	FeeBasisPoints int64

	Slippage  SlippageDefaults
	Policy    PolicyDefaults
	Depth     DepthTiers
	PriceFeed PriceFeed

	LogLevel string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".ammswap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("fee_basis_points", 30)
	viper.SetDefault("slippage.tolerance_percent", 0.5)
	viper.SetDefault("slippage.max_tolerance_percent", 5.0)
	viper.SetDefault("slippage.deadline_minutes", 20)
	viper.SetDefault("slippage.auto", true)
	viper.SetDefault("policy.enabled", true)
	viper.SetDefault("policy.deadline_minutes", 20)
	viper.SetDefault("depth.thin_below", "10000000000000000000000")      // 10k
	viper.SetDefault("depth.moderate_below", "100000000000000000000000") // 100k
	viper.SetDefault("log_level", "info")

	// Read from environment variables
	viper.SetEnvPrefix("AMMSWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		RPCURL:         viper.GetString("rpc_url"),
		ChainID:        viper.GetInt64("chain_id"),
		PrivateKey:     viper.GetString("private_key"),
		RouterAddress:  viper.GetString("router_address"),
		PairAddress:    viper.GetString("pair_address"),
		TokenAAddress:  viper.GetString("token_a_address"),
		TokenBAddress:  viper.GetString("token_b_address"),
		FeeBasisPoints: viper.GetInt64("fee_basis_points"),
		Slippage: SlippageDefaults{
			TolerancePercent:    viper.GetFloat64("slippage.tolerance_percent"),
			MaxTolerancePercent: viper.GetFloat64("slippage.max_tolerance_percent"),
			DeadlineMinutes:     viper.GetInt("slippage.deadline_minutes"),
			Auto:                viper.GetBool("slippage.auto"),
		},
		Policy: PolicyDefaults{
			Enabled:         viper.GetBool("policy.enabled"),
			MaxGasPriceWei:  viper.GetString("policy.max_gas_price_wei"),
			PriorityFeeWei:  viper.GetString("policy.priority_fee_wei"),
			DeadlineMinutes: viper.GetInt("policy.deadline_minutes"),
			UsePrivateRelay: viper.GetBool("policy.use_private_relay"),
			FrontrunGuard:   viper.GetBool("policy.frontrun_guard"),
			SandwichGuard:   viper.GetBool("policy.sandwich_guard"),
			FlashloanGuard:  viper.GetBool("policy.flashloan_guard"),
		},
		Depth: DepthTiers{
			ThinBelow:     viper.GetString("depth.thin_below"),
			ModerateBelow: viper.GetString("depth.moderate_below"),
		},
		PriceFeed: PriceFeed{
			Enabled:   viper.GetBool("pricefeed.enabled"),
			JWTToken:  viper.GetString("pricefeed.jwt_token"),
			AssetA:    viper.GetString("pricefeed.asset_a"),
			AssetB:    viper.GetString("pricefeed.asset_b"),
			Recipient: viper.GetString("pricefeed.recipient"),
			Probe:     viper.GetString("pricefeed.probe_amount"),
		},
		LogLevel: viper.GetString("log_level"),
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not found. Please set AMMSWAP_RPC_URL or create a .ammswap.yaml config file")
	}
	if cfg.PairAddress == "" || cfg.RouterAddress == "" {
		return nil, fmt.Errorf("pair and router addresses are required. Set AMMSWAP_PAIR_ADDRESS and AMMSWAP_ROUTER_ADDRESS")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
