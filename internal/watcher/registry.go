package watcher

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/chaincfg"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

var hexAddressRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// WatchEntry is the transient watch state for one (chain, address) pair. An
// empty token set means native transfers only.
type WatchEntry struct {
	Address string
	Tokens  map[string]bool
	AddedAt time.Time
}

type IWatchRegistry interface {
	AddNative(address, chain string) bool
	AddToken(address, chain, tokenSymbol string) bool
	AddAllTokens(address, chain string) bool
	Remove(address, chain string) bool
	RemoveIfNoActiveOrders(address, chain string) bool
}

// Registry owns the per-chain watch maps. All mutation goes through its
// methods under one mutex; occupancy transitions start and stop the
// per-chain scanner loops.
type Registry struct {
	mu      sync.Mutex
	entries map[string]map[string]*WatchEntry // chain -> normalized address -> entry

	scanner *Scanner
	store   *store.Store
	db      *gorm.DB
	logger  *logger.Logger
}

func NewRegistry(scanner *Scanner, s *store.Store, db *gorm.DB, logger *logger.Logger) *Registry {
	r := &Registry{
		entries: make(map[string]map[string]*WatchEntry),
		scanner: scanner,
		store:   s,
		db:      db,
		logger:  logger,
	}
	scanner.registry = r
	return r
}

// NormalizeAddress case-folds an EVM address, strips and re-adds the 0x
// prefix, and rejects anything that is not exactly 40 hex characters.
func NormalizeAddress(address string) (string, bool) {
	addr := strings.ToLower(strings.TrimSpace(address))
	addr = strings.TrimPrefix(addr, "0x")
	if !hexAddressRe.MatchString(addr) {
		return "", false
	}
	return "0x" + addr, true
}

func (r *Registry) AddNative(address, chain string) bool {
	return r.add(address, chain, nil)
}

func (r *Registry) AddToken(address, chain, tokenSymbol string) bool {
	token, ok := chaincfg.TokenBySymbol(chain, tokenSymbol)
	if !ok {
		r.logger.Error("[AddToken] unknown chain or token symbol", map[string]string{
			"chain": chain,
			"token": tokenSymbol,
		})
		return false
	}
	return r.add(address, chain, []string{token.Address})
}

func (r *Registry) AddAllTokens(address, chain string) bool {
	contracts := chaincfg.AllTokenAddresses(chain)
	if contracts == nil {
		r.logger.Error("[AddAllTokens] unknown chain", map[string]string{
			"chain": chain,
		})
		return false
	}
	return r.add(address, chain, contracts)
}

func (r *Registry) add(address, chain string, tokenContracts []string) bool {
	addr, ok := NormalizeAddress(address)
	if !ok {
		r.logger.Error("[Registry.add] invalid address", map[string]string{
			"address": address,
			"chain":   chain,
		})
		return false
	}

	chain = strings.ToLower(chain)
	if !chaincfg.IsSupported(chain) {
		r.logger.Error("[Registry.add] unsupported chain", map[string]string{
			"chain": chain,
		})
		return false
	}

	r.mu.Lock()
	byAddr, ok := r.entries[chain]
	if !ok {
		byAddr = make(map[string]*WatchEntry)
		r.entries[chain] = byAddr
	}

	entry, ok := byAddr[addr]
	if !ok {
		entry = &WatchEntry{
			Address: addr,
			Tokens:  make(map[string]bool),
			AddedAt: time.Now(),
		}
		byAddr[addr] = entry
	}
	for _, c := range tokenContracts {
		entry.Tokens[strings.ToLower(c)] = true
	}
	r.mu.Unlock()

	r.scanner.EnsureStarted(chain)
	return true
}

func (r *Registry) Remove(address, chain string) bool {
	addr, ok := NormalizeAddress(address)
	if !ok {
		return false
	}
	chain = strings.ToLower(chain)

	r.mu.Lock()
	byAddr, ok := r.entries[chain]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, ok := byAddr[addr]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(byAddr, addr)
	empty := len(byAddr) == 0
	if empty {
		delete(r.entries, chain)
	}
	r.mu.Unlock()

	if empty {
		r.scanner.Stop(chain)
	}
	return true
}

// RemoveIfNoActiveOrders un-watches the address only when no still-pending
// order needs it. Addresses are reused across orders, so a sibling order on
// the same address keeps the watch alive.
func (r *Registry) RemoveIfNoActiveOrders(address, chain string) bool {
	addr, ok := NormalizeAddress(address)
	if !ok {
		return false
	}
	chain = strings.ToLower(chain)

	count, err := r.store.Order.CountActiveWatch(r.db, chain, addr, time.Now())
	if err != nil {
		r.logger.Error("[RemoveIfNoActiveOrders][CountActiveWatch]", map[string]string{
			"chain":   chain,
			"address": addr,
			"error":   err.Error(),
		})
		return false
	}
	if count > 0 {
		return false
	}

	return r.Remove(addr, chain)
}

// Snapshot returns the watched addresses and the union of watched token
// contracts for one chain.
func (r *Registry) Snapshot(chain string) ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byAddr, ok := r.entries[strings.ToLower(chain)]
	if !ok {
		return nil, nil
	}

	addrs := make([]string, 0, len(byAddr))
	tokenSet := map[string]bool{}
	for addr, entry := range byAddr {
		addrs = append(addrs, addr)
		for c := range entry.Tokens {
			tokenSet[c] = true
		}
	}

	tokens := make([]string, 0, len(tokenSet))
	for c := range tokenSet {
		tokens = append(tokens, c)
	}
	return addrs, tokens
}

// Rebuild repopulates the registry from orders whose crypto leg is still
// pending. Called once at startup; transfers that arrived entirely during
// downtime are forfeited and covered by the orders' expiry path.
func (r *Registry) Rebuild() error {
	orders, err := r.store.Order.FindActiveCryptoWatches(r.db, time.Now())
	if err != nil {
		return err
	}

	restored := 0
	for _, o := range orders {
		chain := strings.ToLower(*o.SourceChain)
		nativeSymbol := ""
		if c, ok := chaincfg.Get(chain); ok {
			nativeSymbol = c.NativeSymbol
		}

		var ok bool
		if strings.EqualFold(o.SourceCurrency, nativeSymbol) {
			ok = r.AddNative(o.SourceAddress, chain)
		} else {
			ok = r.AddToken(o.SourceAddress, chain, o.SourceCurrency)
		}
		if ok {
			restored++
		}
	}

	r.logger.Info("[Rebuild] watch registry restored", map[string]string{
		"orders":   strconv.Itoa(len(orders)),
		"restored": strconv.Itoa(restored),
	})
	return nil
}
