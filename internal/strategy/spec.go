// Package strategy defines the declarative strategy document, compiles it
// into an immutable rule set the backtest engine interprets, and statically
// validates the result before any simulation starts.
package strategy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Default trading costs, matching the product defaults.
const (
	DefaultCommissionPerShare = 0.005
	DefaultSlippageBps        = 5.0
)

// Timeframe represents the date window a strategy trades over.
type Timeframe struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Interval string `json:"interval"` // "1d"
}

// Operand is the right-hand side of an indicator condition: either a literal
// number or a reference to another indicator.
type Operand struct {
	Literal     float64
	Ind         string
	Period      int
	IsIndicator bool
}

// UnmarshalJSON accepts either a bare number or an {"ind": ..., "period": ...}
// object, the two RHS shapes the strategy document allows.
func (o *Operand) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		o.Literal = num
		o.IsIndicator = false
		return nil
	}

	var ref struct {
		Ind    string `json:"ind"`
		Period int    `json:"period"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return fmt.Errorf("condition rhs must be a number or an indicator reference: %w", err)
	}
	if ref.Ind == "" {
		return fmt.Errorf("condition rhs indicator reference is missing \"ind\"")
	}
	o.Ind = ref.Ind
	o.Period = ref.Period
	o.IsIndicator = true
	return nil
}

// MarshalJSON writes the operand back in its document form.
func (o Operand) MarshalJSON() ([]byte, error) {
	if !o.IsIndicator {
		return json.Marshal(o.Literal)
	}
	return json.Marshal(struct {
		Ind    string `json:"ind"`
		Period int    `json:"period,omitempty"`
	}{o.Ind, o.Period})
}

// ConditionSpec represents one entry condition: an indicator compared against
// a literal or another indicator. A strategy's conditions are implicitly
// AND-ed.
type ConditionSpec struct {
	Type   string  `json:"type"` // "indicator"
	Ind    string  `json:"ind"`
	Period int     `json:"period,omitempty"`
	Op     string  `json:"op"`
	RHS    Operand `json:"rhs"`
}

// ExitSpec represents one exit rule: trailing stop, stop loss or take profit,
// with the trigger percentage relative to the entry fill price.
type ExitSpec struct {
	Type    string  `json:"type"`
	Percent float64 `json:"percent"`
}

// PositionSpec represents the position sizing policy.
type PositionSpec struct {
	Sizing string  `json:"sizing"` // "percent_cash" or "fixed"
	Value  float64 `json:"value"`
	// MaxPositions caps concurrent positions across a universe. The engine
	// trades one instrument at a time, so this is informational here.
	MaxPositions int `json:"max_positions,omitempty"`
}

// CostSpec represents the commission and slippage cost model.
type CostSpec struct {
	CommissionPerShare float64 `json:"commission_per_share"`
	SlippageBps        float64 `json:"slippage_bps"`
}

// Spec represents a complete declarative strategy document.
type Spec struct {
	Name      string          `json:"name"`
	Universe  []string        `json:"universe"`
	Timeframe Timeframe       `json:"timeframe"`
	Entry     []ConditionSpec `json:"entry"`
	Exit      []ExitSpec      `json:"exit"`
	Position  PositionSpec    `json:"position"`
	Costs     CostSpec        `json:"costs"`
}

// ParseSpec parses a strategy document from JSON.
func ParseSpec(data []byte) (*Spec, error) {
	spec := &Spec{
		Costs: CostSpec{
			CommissionPerShare: DefaultCommissionPerShare,
			SlippageBps:        DefaultSlippageBps,
		},
	}
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse strategy document: %w", err)
	}
	return spec, nil
}

// LoadSpec reads and parses a strategy document from a file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file: %w", err)
	}
	return ParseSpec(data)
}
