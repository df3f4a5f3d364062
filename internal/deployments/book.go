package deployments

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	WmonModule      = "WmonModule"
	TokensModule    = "TokensModule"
	DexModule       = "DexModule"
	PortfolioModule = "PortfolioModule"

	ContractWMON             = "WMON"
	ContractFactory          = "UniswapV2Factory"
	ContractRouter           = "UniswapV2Router02"
	ContractPortfolioFactory = "PortfolioFactory"
	// ContractPairInitCodeHash records the pair fingerprint the factory was
	// deployed with. Its value is a hash, not an address.
	ContractPairInitCodeHash = "PairInitCodeHash"

	bookFile = "deployed_addresses.json"
)

var (
	ErrAddressNotFound = errors.New("address not found")
	ErrInvalidEntry    = errors.New("invalid address book entry")
)

// Book is the flat "<Module>#<Contract>" to identity mapping of one network.
type Book map[string]string

func Key(module, contract string) string {
	return module + "#" + contract
}

func (b Book) Set(module, contract string, addr common.Address) {
	b[Key(module, contract)] = addr.Hex()
}

// Address resolves a deployed contract.
func (b Book) Address(module, contract string) (common.Address, error) {
	key := Key(module, contract)
	v, ok := b[key]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrAddressNotFound, key)
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: %s = %q", ErrInvalidEntry, key, v)
	}
	return common.HexToAddress(v), nil
}

// InitCodeHash returns the recorded pair fingerprint, if any.
func (b Book) InitCodeHash() (common.Hash, bool) {
	v, ok := b[Key(DexModule, ContractPairInitCodeHash)]
	if !ok {
		return common.Hash{}, false
	}
	return common.HexToHash(v), true
}

// Keys returns the entries in name order.
func (b Book) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path is where the book of chainID lives under dir.
func Path(dir string, chainID uint64) string {
	return filepath.Join(dir, "chain-"+strconv.FormatUint(chainID, 10), bookFile)
}

// Load reads the book of chainID. A missing file is reported with an error
// matching os.ErrNotExist.
func Load(dir string, chainID uint64) (Book, error) {
	path := Path(dir, chainID)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load address book: %w", err)
	}
	var book Book
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return book, nil
}

// Save writes the book of chainID, creating its directory.
func Save(dir string, chainID uint64, book Book) error {
	path := Path(dir, chainID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create deployment dir: %w", err)
	}
	raw, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}
