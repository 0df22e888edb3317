// Package scenario provides scenario loading, validation, and access.
// The simulation core consumes the parsed Scenario struct; it never
// reads files itself.
package scenario

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cmfunderburk/vmt-dev-sub002/systems"
	"github.com/cmfunderburk/vmt-dev-sub002/utility"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Scenario is the fully-parsed run description: world shape, exchange
// regime, population, and resource seeding.
type Scenario struct {
	Seed      int64           `yaml:"seed"`
	Grid      GridConfig      `yaml:"grid"`
	Regime    RegimeConfig    `yaml:"regime"`
	Goods     []string        `yaml:"goods"`
	Money     MoneyConfig     `yaml:"money"`
	Agents    []AgentConfig   `yaml:"agents"`
	Resources ResourcesConfig `yaml:"resources"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GridConfig holds world dimensions and the spatial index parameters.
type GridConfig struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	CellSize int    `yaml:"cell_size"` // spatial index bucket size
	Metric   string `yaml:"metric"`    // manhattan or chebyshev
}

// RegimeConfig holds the named mode parameters of a run.
type RegimeConfig struct {
	Exchange          string  `yaml:"exchange"` // goods, money, or mixed
	InteractionRadius int     `yaml:"interaction_radius"`
	PerceptionRadius  int     `yaml:"perception_radius"`
	TradeCooldown     int     `yaml:"trade_cooldown"` // ticks before re-pairing after failure
	MaxQuantity       int64   `yaml:"max_quantity"`   // trade search quantity cap
	Spread            float64 `yaml:"spread"`         // symmetric quote spread
	MoveBudget        int     `yaml:"move_budget"`    // steps per tick
	ForageRate        int64   `yaml:"forage_rate"`    // units harvested per tick
}

// MoneyConfig enables the money balance.
type MoneyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AgentConfig describes one initial agent.
type AgentConfig struct {
	ID      uint32           `yaml:"id"`
	X       int              `yaml:"x"`
	Y       int              `yaml:"y"`
	Goods   map[string]int64 `yaml:"goods"`
	Money   int64            `yaml:"money"`
	Utility UtilityConfig    `yaml:"utility"`
}

// UtilityConfig describes an agent's utility family and parameters.
// Per-good parameters are keyed by good name and converted to vectors
// in goods order at build time.
type UtilityConfig struct {
	Family    string             `yaml:"family"`
	Alpha     map[string]float64 `yaml:"alpha"`
	Beta      map[string]float64 `yaml:"beta"`
	Gamma     map[string]float64 `yaml:"gamma"`
	Rho       float64            `yaml:"rho"`
	MoneyUtil float64            `yaml:"money_util"`
}

// ResourcesConfig seeds the resource field: explicit cells, noise-driven
// placement, or both.
type ResourcesConfig struct {
	Cells []ResourceCellConfig `yaml:"cells"`
	Noise []NoiseSeedConfig    `yaml:"noise"`
}

// ResourceCellConfig places one explicit resource cell.
type ResourceCellConfig struct {
	X          int    `yaml:"x"`
	Y          int    `yaml:"y"`
	Good       string `yaml:"good"`
	Qty        int64  `yaml:"qty"`
	Max        int64  `yaml:"max"`
	RegenEvery int    `yaml:"regen_every"`
}

// NoiseSeedConfig places count cells of one good where a seeded noise
// field peaks.
type NoiseSeedConfig struct {
	Good       string `yaml:"good"`
	Count      int    `yaml:"count"`
	Max        int64  `yaml:"max"`
	RegenEvery int    `yaml:"regen_every"`
}

// TelemetryConfig holds emission cadence, in ticks.
type TelemetryConfig struct {
	StatsWindow   int64 `yaml:"stats_window"`
	SnapshotEvery int64 `yaml:"snapshot_every"`
}

// Load reads a scenario from the given path, layered over the embedded
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Scenario, error) {
	scn := &Scenario{}
	if err := yaml.Unmarshal(defaultsYAML, scn); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading scenario: %w", err)
		}
		if err := yaml.Unmarshal(data, scn); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
		}
	}

	scn.Normalize()
	if err := scn.Validate(); err != nil {
		return nil, err
	}
	return scn, nil
}

// WriteYAML saves the scenario to the given path.
func (s *Scenario) WriteYAML(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing scenario: %w", err)
	}
	return nil
}

// GoodIndex resolves a good name to its index in the goods list.
func (s *Scenario) GoodIndex(name string) (int, error) {
	for i, g := range s.Goods {
		if g == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown good %q", name)
}

// Metric returns the parsed distance metric.
func (s *Scenario) Metric() (systems.Metric, error) {
	switch s.Grid.Metric {
	case "manhattan":
		return systems.Manhattan, nil
	case "chebyshev":
		return systems.Chebyshev, nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", s.Grid.Metric)
	}
}

// ExchangeRegime returns the parsed exchange regime.
func (s *Scenario) ExchangeRegime() (utility.Regime, error) {
	return utility.ParseRegime(s.Regime.Exchange)
}

// BuildUtility converts an agent's utility config into a Function,
// mapping per-good parameters into goods order.
func (s *Scenario) BuildUtility(cfg UtilityConfig) (utility.Function, error) {
	family, err := utility.ParseFamily(cfg.Family)
	if err != nil {
		return utility.Function{}, err
	}

	toVec := func(m map[string]float64) ([]float64, error) {
		if m == nil {
			return nil, nil
		}
		vec := make([]float64, len(s.Goods))
		for name, v := range m {
			idx, err := s.GoodIndex(name)
			if err != nil {
				return nil, err
			}
			vec[idx] = v
		}
		return vec, nil
	}

	alpha, err := toVec(cfg.Alpha)
	if err != nil {
		return utility.Function{}, err
	}
	beta, err := toVec(cfg.Beta)
	if err != nil {
		return utility.Function{}, err
	}
	gamma, err := toVec(cfg.Gamma)
	if err != nil {
		return utility.Function{}, err
	}

	return utility.Function{
		Family:    family,
		Alpha:     alpha,
		Beta:      beta,
		Gamma:     gamma,
		Rho:       cfg.Rho,
		MoneyUtil: cfg.MoneyUtil,
	}, nil
}

// BuildInventory converts an agent's goods map into a vector in goods
// order.
func (s *Scenario) BuildInventory(cfg AgentConfig) ([]int64, error) {
	goods := make([]int64, len(s.Goods))
	for name, qty := range cfg.Goods {
		idx, err := s.GoodIndex(name)
		if err != nil {
			return nil, err
		}
		goods[idx] = qty
	}
	return goods, nil
}
