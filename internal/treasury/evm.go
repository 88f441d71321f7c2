package treasury

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/Chuksremi15/wiseramp-backend/internal/chaincfg"
	"github.com/Chuksremi15/wiseramp-backend/internal/settlement"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/config"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

const nativeTransferGas = 21000

// EVMExecutor moves funds on EVM chains: sweeps from HD-derived collection
// wallets and payouts from the vault. One executor serves every configured
// chain, dialing clients lazily.
type EVMExecutor struct {
	appConfig *config.AppConfig
	keys      KeyProvider
	vaultKey  *ecdsa.PrivateKey
	logger    *logger.Logger

	erc20 abi.ABI

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

func NewEVMExecutor(appConfig *config.AppConfig, keys KeyProvider, logger *logger.Logger) (*EVMExecutor, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse erc20 abi")
	}

	var vaultKey *ecdsa.PrivateKey
	if raw := appConfig.Blockchain.VaultPrivateKey; raw != "" {
		vaultKey, err = crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid vault private key")
		}
	}

	return &EVMExecutor{
		appConfig: appConfig,
		keys:      keys,
		vaultKey:  vaultKey,
		logger:    logger,
		erc20:     parsed,
		clients:   make(map[string]*ethclient.Client),
	}, nil
}

func (e *EVMExecutor) client(chain string) (*ethclient.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[chain]; ok {
		return c, nil
	}

	endpoint := e.appConfig.RPCEndpointFor(chain)
	if endpoint == "" {
		return nil, errors.Errorf("no rpc endpoint configured for chain %s", chain)
	}

	c, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s rpc", chain)
	}
	e.clients[chain] = c
	return c, nil
}

// VerifyBalance checks that address holds at least expected base units of
// the asset.
func (e *EVMExecutor) VerifyBalance(ctx context.Context, chain, address, currency string, expected *big.Int) (bool, *big.Int, error) {
	actual, _, err := e.balanceOf(ctx, chain, address, currency)
	if err != nil {
		return false, nil, err
	}
	return actual.Cmp(expected) >= 0, actual, nil
}

// Sweep drains the collection address into the vault. Native sweeps leave
// just enough behind to cover gas; token sweeps move the full balance and
// pay gas from the collection wallet's native balance.
func (e *EVMExecutor) Sweep(ctx context.Context, chain, userID, currency, fromAddress, vaultAddress string) (string, string, error) {
	key, err := e.keys.PrivateKeyFor(userID, fromAddress)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to resolve collection wallet key")
	}

	balance, token, err := e.balanceOf(ctx, chain, fromAddress, currency)
	if err != nil {
		return "", "", err
	}
	if balance.Sign() <= 0 {
		return "", "", errors.Errorf("nothing to sweep at %s", fromAddress)
	}

	to := common.HexToAddress(vaultAddress)
	if token == nil {
		return e.sendNativeAll(ctx, chain, key, to, balance)
	}
	return e.sendToken(ctx, chain, key, common.HexToAddress(token.Address), to, balance)
}

// Payout sends amount base units from the vault to the recipient.
func (e *EVMExecutor) Payout(ctx context.Context, chain, currency, destinationAddress, amount string) (string, string, error) {
	if e.vaultKey == nil {
		return "", "", errors.New("vault private key is not configured")
	}

	value, ok := new(big.Int).SetString(amount, 10)
	if !ok || value.Sign() <= 0 {
		return "", "", errors.Errorf("invalid payout amount %q", amount)
	}

	cfg, ok := chaincfg.Get(chain)
	if !ok {
		return "", "", errors.Errorf("unsupported chain %s", chain)
	}

	to := common.HexToAddress(destinationAddress)
	if strings.EqualFold(currency, cfg.NativeSymbol) {
		return e.sendNative(ctx, chain, e.vaultKey, to, value)
	}

	token, ok := chaincfg.TokenBySymbol(chain, currency)
	if !ok {
		return "", "", errors.Errorf("unsupported token %s on %s", currency, chain)
	}
	return e.sendToken(ctx, chain, e.vaultKey, common.HexToAddress(token.Address), to, value)
}

// balanceOf resolves the asset and returns the base-unit balance. The token
// config is nil for the chain's native asset.
func (e *EVMExecutor) balanceOf(ctx context.Context, chain, address, currency string) (*big.Int, *chaincfg.Token, error) {
	cfg, ok := chaincfg.Get(chain)
	if !ok {
		return nil, nil, errors.Errorf("unsupported chain %s", chain)
	}

	client, err := e.client(chain)
	if err != nil {
		return nil, nil, err
	}

	if strings.EqualFold(currency, cfg.NativeSymbol) {
		balance, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to get native balance")
		}
		return balance, nil, nil
	}

	token, ok := chaincfg.TokenBySymbol(chain, currency)
	if !ok {
		return nil, nil, errors.Errorf("unsupported token %s on %s", currency, chain)
	}

	input, err := e.erc20.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to pack balanceOf")
	}

	contract := common.HexToAddress(token.Address)
	output, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "balanceOf call failed")
	}

	results, err := e.erc20.Unpack("balanceOf", output)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to unpack balanceOf")
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, nil, errors.New("unexpected balanceOf result type")
	}
	return balance, &token, nil
}

// sendNativeAll sweeps the entire native balance minus the gas needed to
// move it.
func (e *EVMExecutor) sendNativeAll(ctx context.Context, chain string, key *ecdsa.PrivateKey, to common.Address, balance *big.Int) (string, string, error) {
	client, err := e.client(chain)
	if err != nil {
		return "", "", err
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to suggest gas price")
	}

	fee := new(big.Int).Mul(gasPrice, big.NewInt(nativeTransferGas))
	value := new(big.Int).Sub(balance, fee)
	if value.Sign() <= 0 {
		return "", "", errors.Errorf("balance %s does not cover gas %s", balance, fee)
	}

	return e.submit(ctx, chain, key, &to, value, nil, nativeTransferGas, gasPrice)
}

func (e *EVMExecutor) sendNative(ctx context.Context, chain string, key *ecdsa.PrivateKey, to common.Address, value *big.Int) (string, string, error) {
	client, err := e.client(chain)
	if err != nil {
		return "", "", err
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to suggest gas price")
	}

	return e.submit(ctx, chain, key, &to, value, nil, nativeTransferGas, gasPrice)
}

func (e *EVMExecutor) sendToken(ctx context.Context, chain string, key *ecdsa.PrivateKey, contract, to common.Address, value *big.Int) (string, string, error) {
	client, err := e.client(chain)
	if err != nil {
		return "", "", err
	}

	input, err := e.erc20.Pack("transfer", to, value)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to pack transfer")
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to suggest gas price")
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &contract,
		Data: input,
	})
	if err != nil {
		return "", "", errors.Wrap(err, "failed to estimate gas")
	}

	return e.submit(ctx, chain, key, &contract, big.NewInt(0), input, gasLimit, gasPrice)
}

func (e *EVMExecutor) submit(ctx context.Context, chain string, key *ecdsa.PrivateKey, to *common.Address, value *big.Int, data []byte, gasLimit uint64, gasPrice *big.Int) (string, string, error) {
	client, err := e.client(chain)
	if err != nil {
		return "", "", err
	}

	cfg, _ := chaincfg.Get(chain)
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to get nonce")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(cfg.ChainID)), key)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to sign transaction")
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", "", errors.Wrap(err, "failed to send transaction")
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	e.logger.Info("[submit] transaction sent", map[string]string{
		"chain":  chain,
		"from":   from.Hex(),
		"txHash": signed.Hash().Hex(),
	})

	return signed.Hash().Hex(), fee.String(), nil
}

var _ settlement.ITransferExecutor = (*EVMExecutor)(nil)
