package pricefeed

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"

	"ammswap/pkg/amount"
	"ammswap/pkg/types"
)

// OneClick derives a reference price from a dry 1Click quote: a small probe
// amount is quoted without creating a deposit address, and the in/out ratio
// becomes the price. Only used when the pool itself has no liquidity.
type OneClick struct {
	client *oneclick.APIClient
	ctx    context.Context

	assetA    string
	assetB    string
	recipient string
	probe     string // probe amount in whole units, e.g. "1"

	logger *slog.Logger
}

// OneClickConfig holds the feed's asset identifiers and credentials.
type OneClickConfig struct {
	JWTToken  string
	AssetA    string
	AssetB    string
	Recipient string
	Probe     string
}

// NewOneClick creates an authenticated 1Click-backed price source.
func NewOneClick(cfg OneClickConfig, logger *slog.Logger) *OneClick {
	apiCfg := oneclick.NewConfiguration()
	ctx := context.WithValue(context.Background(), oneclick.ContextAccessToken, cfg.JWTToken)

	probe := cfg.Probe
	if probe == "" {
		probe = "1"
	}

	return &OneClick{
		client:    oneclick.NewAPIClient(apiCfg),
		ctx:       ctx,
		assetA:    cfg.AssetA,
		assetB:    cfg.AssetB,
		recipient: cfg.Recipient,
		probe:     probe,
		logger:    logger,
	}
}

// ReferencePrice quotes the probe amount dry and returns output per unit
// input at 1e18 scale.
func (o *OneClick) ReferencePrice(ctx context.Context, d types.Direction) (*big.Int, error) {
	origin, destination := o.assetA, o.assetB
	if d == types.TokenBToA {
		origin, destination = o.assetB, o.assetA
	}
	if origin == "" || destination == "" {
		return nil, ErrNoReferencePrice
	}

	probe18, err := amount.Parse(o.probe, 18)
	if err != nil {
		return nil, fmt.Errorf("invalid probe amount: %w", err)
	}

	deadline := time.Now().Add(time.Hour)
	quoteReq := oneclick.NewQuoteRequest(
		true,          // dry - price probe only, no deposit address
		"EXACT_INPUT", // swapType
		100,           // slippageTolerance (1%)
		origin,
		"ORIGIN_CHAIN",
		destination,
		probe18.String(),
		o.recipient,
		"ORIGIN_CHAIN",
		o.recipient,
		"DESTINATION_CHAIN",
		deadline,
	)

	resp, httpResp, err := o.client.OneClickAPI.GetQuote(o.ctx).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		o.logger.Warn("reference price probe failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrNoReferencePrice, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: API returned status code %d", ErrNoReferencePrice, httpResp.StatusCode)
	}

	quote := resp.GetQuote()
	in, err := amount.Parse(quote.GetAmountInFormatted(), 18)
	if err != nil || in.Sign() == 0 {
		return nil, fmt.Errorf("%w: bad amount in", ErrNoReferencePrice)
	}
	out, err := amount.Parse(quote.GetAmountOutFormatted(), 18)
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount out", ErrNoReferencePrice)
	}

	price := new(big.Int).Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	price.Quo(price, in)

	o.logger.Debug("reference price", "direction", d.String(), "price_1e18", price.String())
	return price, nil
}
