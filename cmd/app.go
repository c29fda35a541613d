package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"

	"ammswap/config"
	"ammswap/pkg/approval"
	"ammswap/pkg/execution"
	"ammswap/pkg/ledger"
	"ammswap/pkg/logging"
	"ammswap/pkg/policy"
	"ammswap/pkg/pricefeed"
	"ammswap/pkg/quote"
	"ammswap/pkg/session"
	"ammswap/pkg/slippage"
)

// app bundles the wired components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	client  *ledger.EVMClient
	session *session.Session
	engine  *quote.Engine
	slip    *slippage.Config
	exec    *execution.Coordinator

	tokenA common.Address
	tokenB common.Address
	pair   common.Address

	thinBelow     *big.Int
	moderateBelow *big.Int
}

// newApp loads configuration and wires the engine components. The caller must
// Close() the returned app.
func newApp(verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.NewLogger(level)

	client, err := ledger.NewEVMClient(ledger.EVMConfig{
		RPCURL:     cfg.RPCURL,
		ChainID:    cfg.ChainID,
		PrivateKey: cfg.PrivateKey,
		Pair:       cfg.PairAddress,
		Router:     cfg.RouterAddress,
		TokenA:     cfg.TokenAAddress,
		TokenB:     cfg.TokenBAddress,
	}, logger)
	if err != nil {
		return nil, err
	}

	router := common.HexToAddress(cfg.RouterAddress)
	pair := common.HexToAddress(cfg.PairAddress)
	sess := session.New(client.Account(), big.NewInt(cfg.ChainID), router, client)

	var ref pricefeed.Source
	if cfg.PriceFeed.Enabled {
		ref = pricefeed.NewOneClick(pricefeed.OneClickConfig{
			JWTToken:  cfg.PriceFeed.JWTToken,
			AssetA:    cfg.PriceFeed.AssetA,
			AssetB:    cfg.PriceFeed.AssetB,
			Recipient: cfg.PriceFeed.Recipient,
			Probe:     cfg.PriceFeed.Probe,
		}, logger)
	}
	engine := quote.New(cfg.FeeBasisPoints, ref, logger)

	slip := slippage.NewConfig(
		cfg.Slippage.TolerancePercent,
		cfg.Slippage.MaxTolerancePercent,
		cfg.Slippage.DeadlineMinutes,
		cfg.Slippage.Auto,
	)

	pol := policy.Config{
		Enabled:         cfg.Policy.Enabled,
		MaxGasPrice:     parseWei(cfg.Policy.MaxGasPriceWei),
		PriorityFee:     parseWei(cfg.Policy.PriorityFeeWei),
		DeadlineMinutes: cfg.Policy.DeadlineMinutes,
		UsePrivateRelay: cfg.Policy.UsePrivateRelay,
		FrontrunGuard:   cfg.Policy.FrontrunGuard,
		SandwichGuard:   cfg.Policy.SandwichGuard,
		FlashloanGuard:  cfg.Policy.FlashloanGuard,
	}

	approvals := approval.New(client, sess, router, logger)

	exec := execution.New(execution.Config{
		Ledger:        client,
		Engine:        engine,
		Approvals:     approvals,
		Session:       sess,
		Slippage:      slip,
		Policy:        pol,
		TokenA:        common.HexToAddress(cfg.TokenAAddress),
		TokenB:        common.HexToAddress(cfg.TokenBAddress),
		LPToken:       pair,
		ThinBelow:     parseWei(cfg.Depth.ThinBelow),
		ModerateBelow: parseWei(cfg.Depth.ModerateBelow),
		Logger:        logger,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		session: sess,
		engine:  engine,
		slip:    slip,
		exec:    exec,
		tokenA:  common.HexToAddress(cfg.TokenAAddress),
		tokenB:  common.HexToAddress(cfg.TokenBAddress),
		pair:    pair,

		thinBelow:     parseWei(cfg.Depth.ThinBelow),
		moderateBelow: parseWei(cfg.Depth.ModerateBelow),
	}, nil
}

func (a *app) Close() {
	a.client.Close()
}

func parseWei(s string) *big.Int {
	if s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

// confirmPrompt asks for a yes/no answer on stdin. Anything but y/yes
// declines.
func confirmPrompt(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func printCancelled() {
	color.Yellow("\nCancelled. No transaction was sent.\n")
}
