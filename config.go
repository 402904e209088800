package arbvm

import (
	"bytes"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is one deployment profile: the accounts, market, venues, and
// trade defaults a runner loads at startup. Amount fields arrive in human
// units and are scaled by the market's Decimals.
type Config struct {
	Controller common.Address

	Registry       common.Address
	RegistryExpiry uint64

	Market   common.Address
	Splitter common.Address
	Decimals int32
	Tokens   TokenSet

	Pools PoolRefs

	Liquidation LiquidationPlan

	// Route is zero when the profile has no routed venue section.
	Route FixedRoute

	AmountIn     *big.Int
	MinNetProfit *big.Int
	ToleranceBps int
}

type configFile struct {
	Controller string `yaml:"controller"`

	Registry struct {
		Address    string `yaml:"address"`
		Expiration uint64 `yaml:"expiration"`
	} `yaml:"registry"`

	Market struct {
		Market   string `yaml:"market"`
		Splitter string `yaml:"splitter"`
		Decimals int32  `yaml:"decimals"`
		Tokens   struct {
			Collateral    string `yaml:"collateral"`
			Composite     string `yaml:"composite"`
			CompositeYes  string `yaml:"composite_yes"`
			CompositeNo   string `yaml:"composite_no"`
			CollateralYes string `yaml:"collateral_yes"`
			CollateralNo  string `yaml:"collateral_no"`
		} `yaml:"tokens"`
	} `yaml:"market"`

	Pools struct {
		Yes   string `yaml:"yes"`
		No    string `yaml:"no"`
		Cross string `yaml:"cross"`
	} `yaml:"pools"`

	Liquidation struct {
		Venue        string `yaml:"venue"`
		DirectYes    bool   `yaml:"direct_yes"`
		DirectNo     bool   `yaml:"direct_no"`
		SplitBps     int    `yaml:"split_bps"`
		ToleranceBps int    `yaml:"tolerance_bps"`
	} `yaml:"liquidation"`

	Route *struct {
		BatchVenue   string `yaml:"batch_venue"`
		HopVenue     string `yaml:"hop_venue"`
		Intermediary string `yaml:"intermediary"`
		PoolA        string `yaml:"pool_a"`
		PoolB        string `yaml:"pool_b"`
		BranchBps    int    `yaml:"branch_bps"`
	} `yaml:"route"`

	Trade struct {
		AmountIn     string `yaml:"amount_in"`
		MinNetProfit string `yaml:"min_net_profit"`
		ToleranceBps int    `yaml:"tolerance_bps"`
	} `yaml:"trade"`
}

// LoadConfig reads a YAML deployment profile from path. Unknown keys are
// rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("arbvm: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML deployment profile. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var raw configFile
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("arbvm: parse config: %w", err)
	}

	c := &Config{
		RegistryExpiry: raw.Registry.Expiration,
		Decimals:       raw.Market.Decimals,
		Liquidation: LiquidationPlan{
			DirectYes:    raw.Liquidation.DirectYes,
			DirectNo:     raw.Liquidation.DirectNo,
			SplitBps:     raw.Liquidation.SplitBps,
			ToleranceBps: raw.Liquidation.ToleranceBps,
		},
		ToleranceBps: raw.Trade.ToleranceBps,
	}

	var err error
	for _, f := range []struct {
		name string
		dst  *common.Address
		raw  string
	}{
		{"controller", &c.Controller, raw.Controller},
		{"market.market", &c.Market, raw.Market.Market},
		{"market.splitter", &c.Splitter, raw.Market.Splitter},
		{"market.tokens.collateral", &c.Tokens.Collateral, raw.Market.Tokens.Collateral},
		{"market.tokens.composite", &c.Tokens.Composite, raw.Market.Tokens.Composite},
		{"market.tokens.composite_yes", &c.Tokens.CompositeYes, raw.Market.Tokens.CompositeYes},
		{"market.tokens.composite_no", &c.Tokens.CompositeNo, raw.Market.Tokens.CompositeNo},
		{"market.tokens.collateral_yes", &c.Tokens.CollateralYes, raw.Market.Tokens.CollateralYes},
		{"market.tokens.collateral_no", &c.Tokens.CollateralNo, raw.Market.Tokens.CollateralNo},
		{"liquidation.venue", &c.Liquidation.Venue, raw.Liquidation.Venue},
	} {
		if *f.dst, err = parseAddress(f.name, f.raw); err != nil {
			return nil, err
		}
	}

	// Optional sections take addresses only when present.
	for _, f := range []struct {
		name string
		dst  *common.Address
		raw  string
	}{
		{"registry.address", &c.Registry, raw.Registry.Address},
		{"pools.yes", &c.Pools.YesPool, raw.Pools.Yes},
		{"pools.no", &c.Pools.NoPool, raw.Pools.No},
		{"pools.cross", &c.Pools.CrossPool, raw.Pools.Cross},
	} {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = parseAddress(f.name, f.raw); err != nil {
			return nil, err
		}
	}

	if raw.Route != nil {
		if c.Route.BatchVenue, err = parseAddress("route.batch_venue", raw.Route.BatchVenue); err != nil {
			return nil, err
		}
		if c.Route.HopVenue, err = parseAddress("route.hop_venue", raw.Route.HopVenue); err != nil {
			return nil, err
		}
		if c.Route.Intermediary, err = parseAddress("route.intermediary", raw.Route.Intermediary); err != nil {
			return nil, err
		}
		if c.Route.PoolA, err = parsePoolID("route.pool_a", raw.Route.PoolA); err != nil {
			return nil, err
		}
		if c.Route.PoolB, err = parsePoolID("route.pool_b", raw.Route.PoolB); err != nil {
			return nil, err
		}
		c.Route.BranchBps = raw.Route.BranchBps
		if err := c.Route.validate(); err != nil {
			return nil, err
		}
	}

	if raw.Trade.AmountIn != "" {
		if c.AmountIn, err = ToBaseUnits(raw.Trade.AmountIn, c.Decimals); err != nil {
			return nil, err
		}
	}
	if raw.Trade.MinNetProfit != "" {
		if c.MinNetProfit, err = ToBaseUnits(raw.Trade.MinNetProfit, c.Decimals); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// EngineOptions returns the option list the profile implies.
func (c *Config) EngineOptions() []Option {
	var opts []Option
	if c.Registry != (common.Address{}) {
		opts = append(opts, WithPermissionRegistry(c.Registry, c.RegistryExpiry))
	}
	if c.Route != (FixedRoute{}) {
		opts = append(opts, WithFixedRoute(c.Route))
	}
	return opts
}

// ToBaseUnits scales a human-denominated decimal amount into integer base
// units: "1.5" at 6 decimals is 1500000. Amounts with more fractional
// digits than decimals are rejected rather than truncated. Negative
// amounts pass through, for signed profit thresholds.
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("arbvm: amount %q: %w", amount, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("arbvm: amount %q has more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("arbvm: %s: %q is not a hex address", field, s)
	}
	return common.HexToAddress(s), nil
}

func parsePoolID(field, s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("arbvm: %s: %w", field, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("arbvm: %s: pool id must be 32 bytes, got %d", field, len(b))
	}
	return common.BytesToHash(b), nil
}
