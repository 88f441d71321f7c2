package chainrpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

// erc20TransferSig is the topic hash of Transfer(address,address,uint256).
var erc20TransferSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// maxBlocksPerCycle bounds one range query; native scanning walks blocks
// individually so the window stays small.
const maxBlocksPerCycle = 100

type EVMClient struct {
	client  *ethclient.Client
	chainID *big.Int
	signer  types.Signer
	logger  *logger.Logger
}

func NewEVMClient(endpoint string, chainID int64, logger *logger.Logger) (*EVMClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("no rpc endpoint configured for chain id %d", chainID)
	}

	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, err
	}

	id := big.NewInt(chainID)
	return &EVMClient{
		client:  client,
		chainID: id,
		signer:  types.LatestSignerForChainID(id),
		logger:  logger,
	}, nil
}

func (c *EVMClient) Height(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

func (c *EVMClient) Close() {
	c.client.Close()
}

func (c *EVMClient) QueryRange(ctx context.Context, fromBlock uint64, filter RangeFilter) (*RangeResult, error) {
	head, err := c.client.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	if fromBlock > head {
		return &RangeResult{NextBlock: fromBlock}, nil
	}

	toBlock := head
	if toBlock-fromBlock >= maxBlocksPerCycle {
		toBlock = fromBlock + maxBlocksPerCycle - 1
	}

	watched := make(map[string]bool, len(filter.Addresses))
	for _, a := range filter.Addresses {
		watched[strings.ToLower(a)] = true
	}

	var transfers []Transfer

	if len(filter.TokenContracts) > 0 {
		tokenTransfers, err := c.queryTokenTransfers(ctx, fromBlock, toBlock, filter)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, tokenTransfers...)
	}

	nativeTransfers, err := c.queryNativeTransfers(ctx, fromBlock, toBlock, watched)
	if err != nil {
		return nil, err
	}
	transfers = append(transfers, nativeTransfers...)

	return &RangeResult{
		Transfers: transfers,
		NextBlock: toBlock + 1,
	}, nil
}

// queryTokenTransfers runs two topic-filtered log queries, one with the
// watched addresses in the sender position and one in the recipient
// position, and merges the decoded results.
func (c *EVMClient) queryTokenTransfers(ctx context.Context, fromBlock, toBlock uint64, filter RangeFilter) ([]Transfer, error) {
	contracts := make([]common.Address, 0, len(filter.TokenContracts))
	for _, t := range filter.TokenContracts {
		contracts = append(contracts, common.HexToAddress(t))
	}

	addrTopics := make([]common.Hash, 0, len(filter.Addresses))
	for _, a := range filter.Addresses {
		addrTopics = append(addrTopics, common.BytesToHash(common.HexToAddress(a).Bytes()))
	}

	topicSets := [][][]common.Hash{
		{{erc20TransferSig}, nil, addrTopics}, // watched address receiving
		{{erc20TransferSig}, addrTopics, nil}, // watched address sending
	}

	seen := map[string]bool{}
	var transfers []Transfer
	for _, topics := range topicSets {
		logs, err := c.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Addresses: contracts,
			Topics:    topics,
		})
		if err != nil {
			return nil, err
		}

		for _, lg := range logs {
			if lg.Removed || len(lg.Topics) < 3 {
				continue
			}
			key := fmt.Sprintf("%s-%d", lg.TxHash.Hex(), lg.Index)
			if seen[key] {
				continue
			}
			seen[key] = true

			transfers = append(transfers, Transfer{
				Kind:          TransferKindToken,
				TxHash:        lg.TxHash.Hex(),
				From:          common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
				To:            common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
				Amount:        new(big.Int).SetBytes(lg.Data),
				TokenContract: lg.Address.Hex(),
				BlockNumber:   lg.BlockNumber,
			})
		}
	}

	return transfers, nil
}

// queryNativeTransfers walks each block in the window and keeps plain value
// transfers whose sender or recipient is watched.
func (c *EVMClient) queryNativeTransfers(ctx context.Context, fromBlock, toBlock uint64, watched map[string]bool) ([]Transfer, error) {
	var transfers []Transfer

	for num := fromBlock; num <= toBlock; num++ {
		block, err := c.client.BlockByNumber(ctx, new(big.Int).SetUint64(num))
		if err != nil {
			return nil, err
		}

		for _, tx := range block.Transactions() {
			to := tx.To()
			if to == nil || tx.Value() == nil || tx.Value().Sign() == 0 {
				continue
			}

			from, err := types.Sender(c.signer, tx)
			if err != nil {
				// Legacy signature edge cases; skip rather than abort.
				continue
			}

			if !watched[strings.ToLower(to.Hex())] && !watched[strings.ToLower(from.Hex())] {
				continue
			}

			transfers = append(transfers, Transfer{
				Kind:        TransferKindNative,
				TxHash:      tx.Hash().Hex(),
				From:        from.Hex(),
				To:          to.Hex(),
				Amount:      new(big.Int).Set(tx.Value()),
				BlockNumber: num,
			})
		}
	}

	return transfers, nil
}
