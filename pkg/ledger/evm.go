package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"ammswap/pkg/policy"
	"ammswap/pkg/types"
)

const receiptPollInterval = 2 * time.Second

// Minimal ABIs for the pair, the ERC20 tokens, and the single-pair router.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

const pairABI = `[
	{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const routerABI = `[
	{"constant":true,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"aToB","type":"bool"}],"name":"getAmountOut","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"lpAmount","type":"uint256"}],"name":"getRemovalAmounts","outputs":[{"name":"amountA","type":"uint256"},{"name":"amountB","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"aToB","type":"bool"},{"name":"minOut","type":"uint256"},{"name":"deadline","type":"uint256"}],"name":"swap","outputs":[],"type":"function"},
	{"constant":false,"inputs":[{"name":"lpAmount","type":"uint256"},{"name":"minA","type":"uint256"},{"name":"minB","type":"uint256"},{"name":"deadline","type":"uint256"}],"name":"removeLiquidity","outputs":[],"type":"function"}
]`

// ConfirmFunc is asked before each transaction is signed. Returning false
// maps to ErrUserRejected.
type ConfirmFunc func(action string) bool

// EVMClient implements Reader and Writer against an EVM endpoint hosting a
// two-token pair and its router.
type EVMClient struct {
	client  *ethclient.Client
	chainID *big.Int

	pair   common.Address
	router common.Address
	tokenA common.Address
	tokenB common.Address

	privateKey *ecdsa.PrivateKey
	from       common.Address

	erc20  abi.ABI
	pairA  abi.ABI
	route  abi.ABI
	logger *slog.Logger

	// Confirm, when set, gates every write. Nil means pre-approved.
	Confirm ConfirmFunc
}

// EVMConfig holds the connection parameters for NewEVMClient.
type EVMConfig struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string
	Pair       string
	Router     string
	TokenA     string
	TokenB     string
}

// NewEVMClient connects to the RPC endpoint and prepares the contract ABIs.
func NewEVMClient(cfg EVMConfig, logger *slog.Logger) (*EVMClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	c := &EVMClient{
		client:  client,
		chainID: big.NewInt(cfg.ChainID),
		pair:    common.HexToAddress(cfg.Pair),
		router:  common.HexToAddress(cfg.Router),
		tokenA:  common.HexToAddress(cfg.TokenA),
		tokenB:  common.HexToAddress(cfg.TokenB),
		logger:  logger,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		pub, ok := key.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("failed to get public key")
		}
		c.privateKey = key
		c.from = crypto.PubkeyToAddress(*pub)
	}

	if c.erc20, err = abi.JSON(strings.NewReader(erc20ABI)); err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	if c.pairA, err = abi.JSON(strings.NewReader(pairABI)); err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}
	if c.route, err = abi.JSON(strings.NewReader(routerABI)); err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return c, nil
}

// Account returns the address derived from the configured private key.
func (c *EVMClient) Account() common.Address { return c.from }

// Close closes the underlying RPC connection.
func (c *EVMClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// ChainID returns the network identifier reported by the endpoint.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id, nil
}

// PoolState reads the pair's reserves and LP supply, plus each token's
// decimal count.
func (c *EVMClient) PoolState(ctx context.Context) (*types.PoolState, error) {
	out, err := c.call(ctx, c.pair, c.pairA, "getReserves")
	if err != nil {
		return nil, err
	}
	reserveA, okA := out[0].(*big.Int)
	reserveB, okB := out[1].(*big.Int)
	if !okA || !okB {
		return nil, fmt.Errorf("unexpected getReserves result")
	}

	supplyOut, err := c.call(ctx, c.pair, c.pairA, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := supplyOut[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalSupply result")
	}

	decA, err := c.tokenDecimals(ctx, c.tokenA)
	if err != nil {
		return nil, err
	}
	decB, err := c.tokenDecimals(ctx, c.tokenB)
	if err != nil {
		return nil, err
	}

	return &types.PoolState{
		ReserveA:  reserveA,
		ReserveB:  reserveB,
		LPSupply:  supply,
		DecimalsA: decA,
		DecimalsB: decB,
	}, nil
}

// Token reads a token snapshot for the owner/spender pair.
func (c *EVMClient) Token(ctx context.Context, owner, spender, token common.Address) (*types.TokenInfo, error) {
	symOut, err := c.call(ctx, token, c.erc20, "symbol")
	if err != nil {
		return nil, err
	}
	symbol, _ := symOut[0].(string)

	dec, err := c.tokenDecimals(ctx, token)
	if err != nil {
		return nil, err
	}

	balOut, err := c.call(ctx, token, c.erc20, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := balOut[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result")
	}

	alOut, err := c.call(ctx, token, c.erc20, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := alOut[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance result")
	}

	return &types.TokenInfo{
		Address:   token,
		Symbol:    symbol,
		Decimals:  dec,
		Balance:   balance,
		Allowance: allowance,
	}, nil
}

// SwapQuote invokes the router's view calculation for the expected output.
func (c *EVMClient) SwapQuote(ctx context.Context, amountIn *big.Int, d types.Direction) (*big.Int, error) {
	out, err := c.call(ctx, c.router, c.route, "getAmountOut", amountIn, d == types.TokenAToB)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getAmountOut result")
	}
	return v, nil
}

// RemovalQuote invokes the router's view calculation for redemption proceeds.
func (c *EVMClient) RemovalQuote(ctx context.Context, lpAmount *big.Int) (*big.Int, *big.Int, error) {
	out, err := c.call(ctx, c.router, c.route, "getRemovalAmounts", lpAmount)
	if err != nil {
		return nil, nil, err
	}
	a, okA := out[0].(*big.Int)
	b, okB := out[1].(*big.Int)
	if !okA || !okB {
		return nil, nil, fmt.Errorf("unexpected getRemovalAmounts result")
	}
	return a, b, nil
}

// GasPrice returns the endpoint's suggested gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// LPBalance returns the owner's pool-token balance.
func (c *EVMClient) LPBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.pair, c.pairA, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result")
	}
	return v, nil
}

// Approve submits an authorization for exactly the given amount.
func (c *EVMClient) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (PendingTx, error) {
	data, err := c.erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve data: %w", err)
	}
	return c.submit(ctx, token, data, nil, fmt.Sprintf("approve %s for spender %s", amount, spender.Hex()))
}

// Swap submits a swap carrying the ledger-enforced minimum output and
// deadline. Guard flags are advisory: they are logged with the submission and
// left to the relay or ledger to act on.
func (c *EVMClient) Swap(ctx context.Context, p SwapParams) (PendingTx, error) {
	data, err := c.route.Pack("swap", p.AmountIn, p.Direction == types.TokenAToB, p.MinimumOut, p.Policy.Deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap data: %w", err)
	}
	c.logger.Debug("submitting swap",
		"direction", p.Direction.String(),
		"min_out", p.MinimumOut.String(),
		"private_relay", p.Policy.UsePrivateRelay,
		"frontrun_guard", p.Policy.FrontrunGuard,
		"sandwich_guard", p.Policy.SandwichGuard,
		"flashloan_guard", p.Policy.FlashloanGuard)
	return c.submit(ctx, c.router, data, &p.Policy, fmt.Sprintf("swap %s (%s)", p.AmountIn, p.Direction))
}

// RemoveLiquidity submits a redemption carrying per-asset minimums.
func (c *EVMClient) RemoveLiquidity(ctx context.Context, p RemovalParams) (PendingTx, error) {
	data, err := c.route.Pack("removeLiquidity", p.LPAmount, p.MinimumA, p.MinimumB, p.Policy.Deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to pack removeLiquidity data: %w", err)
	}
	return c.submit(ctx, c.router, data, &p.Policy, fmt.Sprintf("remove %s LP tokens", p.LPAmount))
}

// TxInfo is a transaction lookup result for status reporting.
type TxInfo struct {
	Hash        string
	Pending     bool
	Succeeded   bool
	BlockNumber uint64
	GasUsed     uint64
}

// TransactionInfo looks up a transaction by hash.
func (c *EVMClient) TransactionInfo(ctx context.Context, hash string) (*TxInfo, error) {
	h := common.HexToHash(hash)
	_, pending, err := c.client.TransactionByHash(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("transaction not found: %w", err)
	}
	info := &TxInfo{Hash: h.Hex(), Pending: pending}
	if pending {
		return info, nil
	}
	receipt, err := c.client.TransactionReceipt(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	info.Succeeded = receipt.Status == ethtypes.ReceiptStatusSuccessful
	info.BlockNumber = receipt.BlockNumber.Uint64()
	info.GasUsed = receipt.GasUsed
	return info, nil
}

func (c *EVMClient) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, c.erc20, "decimals")
	if err != nil {
		return 0, err
	}
	dec, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result")
	}
	return dec, nil
}

func (c *EVMClient) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s data: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	result, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	out, err := contract.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// submit signs and sends a transaction. A policy gas ceiling caps the
// suggested price; the priority fee rides on top of the base price within
// that cap on this legacy-transaction path.
func (c *EVMClient) submit(ctx context.Context, to common.Address, data []byte, pol *policy.Params, action string) (PendingTx, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("no signing key configured")
	}
	if c.Confirm != nil && !c.Confirm(action) {
		return nil, ErrUserRejected
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	if pol != nil {
		if pol.PriorityFee != nil {
			gasPrice = new(big.Int).Add(gasPrice, pol.PriorityFee)
		}
		if pol.MaxGasPrice != nil && gasPrice.Cmp(pol.MaxGasPrice) > 0 {
			gasPrice = pol.MaxGasPrice
		}
	}

	gasLimit := uint64(300000)
	msg := ethereum.CallMsg{From: c.from, To: &to, Data: data}
	if estimated, err := c.client.EstimateGas(ctx, msg); err == nil {
		gasLimit = estimated * 120 / 100
	}

	tx := ethtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return &evmPendingTx{client: c, tx: signedTx, msg: msg}, nil
}

type evmPendingTx struct {
	client *EVMClient
	tx     *ethtypes.Transaction
	msg    ethereum.CallMsg
}

func (p *evmPendingTx) Hash() string { return p.tx.Hash().Hex() }

// Wait polls for the receipt. A failed receipt is replayed as a call at the
// same block to recover the revert reason.
func (p *evmPendingTx) Wait(ctx context.Context) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := p.client.client.TransactionReceipt(ctx, p.tx.Hash())
		if err == nil && receipt != nil {
			if receipt.Status == ethtypes.ReceiptStatusSuccessful {
				return nil
			}
			return &RevertError{Reason: p.revertReason(ctx, receipt.BlockNumber)}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for transaction %s: %w", p.tx.Hash().Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *evmPendingTx) revertReason(ctx context.Context, block *big.Int) string {
	_, err := p.client.client.CallContract(ctx, p.msg, block)
	if err == nil {
		return "unknown"
	}
	reason := err.Error()
	if i := strings.Index(reason, "execution reverted"); i >= 0 {
		reason = strings.TrimSpace(strings.TrimPrefix(reason[i:], "execution reverted"))
		reason = strings.TrimPrefix(reason, ":")
		reason = strings.TrimSpace(reason)
	}
	if reason == "" {
		reason = "unknown"
	}
	return reason
}
