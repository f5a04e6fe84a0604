package strategy

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"metrade/internal/indicators"
	"metrade/internal/types"
)

// Op represents a comparison operator in an entry condition.
type Op int

const (
	OpGT Op = iota
	OpLT
	OpGE
	OpLE
	OpEQ
)

// String returns the operator's document form.
func (op Op) String() string {
	switch op {
	case OpGT:
		return ">"
	case OpLT:
		return "<"
	case OpGE:
		return ">="
	case OpLE:
		return "<="
	case OpEQ:
		return "=="
	}
	return "?"
}

// parseOp maps a document operator string to an Op.
func parseOp(s string) (Op, bool) {
	switch s {
	case ">":
		return OpGT, true
	case "<":
		return OpLT, true
	case ">=":
		return OpGE, true
	case "<=":
		return OpLE, true
	case "==":
		return OpEQ, true
	}
	return 0, false
}

// Condition is a compiled entry condition: an indicator column compared
// against a literal or another column. All name resolution happened at
// compile time; evaluation is a pure comparison.
type Condition struct {
	Column string
	Op     Op
	// RHSColumn is empty when the right-hand side is the literal RHSValue.
	RHSColumn string
	RHSValue  float64
}

// Evaluate returns the condition's truth value on one bar. A NaN on either
// side (warm-up, or a missing column) evaluates false, never panics.
func (c Condition) Evaluate(bar types.Bar) bool {
	lhs := bar.Indicator(c.Column)
	rhs := c.RHSValue
	if c.RHSColumn != "" {
		rhs = bar.Indicator(c.RHSColumn)
	}
	if math.IsNaN(lhs) || math.IsNaN(rhs) {
		return false
	}
	switch c.Op {
	case OpGT:
		return lhs > rhs
	case OpLT:
		return lhs < rhs
	case OpGE:
		return lhs >= rhs
	case OpLE:
		return lhs <= rhs
	case OpEQ:
		return lhs == rhs
	}
	return false
}

// String renders the condition for diagnostics and trade reasons.
func (c Condition) String() string {
	rhs := c.RHSColumn
	if rhs == "" {
		rhs = trimFloat(c.RHSValue)
	}
	return c.Column + " " + c.Op.String() + " " + rhs
}

// ExitKind tags the exit rule variants.
type ExitKind int

const (
	ExitTrailingStop ExitKind = iota
	ExitStopLoss
	ExitTakeProfit
)

// ExitRule is a compiled exit rule. The percentage is relative to the entry
// fill price; the trailing stop in this model recomputes off the fixed entry
// price, not a running high-water mark.
type ExitRule struct {
	Kind    ExitKind
	Percent float64
}

// Triggered reports whether the rule fires at the given close for a position
// opened at entryPrice. The comparison is in ratio form so a close sitting
// exactly on the threshold fires: entryPrice*(1+pct) rounds away from the
// exact product for ordinary decimal percents (100*(1+0.10) is not 110),
// while close/entryPrice and 1+pct round to the same value.
func (r ExitRule) Triggered(entryPrice, close float64) bool {
	if entryPrice <= 0 {
		return false
	}
	switch r.Kind {
	case ExitTrailingStop, ExitStopLoss:
		return close/entryPrice <= 1-r.Percent
	case ExitTakeProfit:
		return close/entryPrice >= 1+r.Percent
	}
	return false
}

// Reason returns the ledger reason string for a fill triggered by this rule.
func (r ExitRule) Reason() string {
	switch r.Kind {
	case ExitTrailingStop:
		return "trailing stop"
	case ExitStopLoss:
		return "stop loss"
	case ExitTakeProfit:
		return "take profit"
	}
	return "exit"
}

// SizingKind tags the position sizing variants.
type SizingKind int

const (
	SizePercentOfCash SizingKind = iota
	SizeFixedShares
)

// Sizing is the compiled position sizing policy.
type Sizing struct {
	Kind  SizingKind
	Value float64
	// MaxPositions is carried through for callers coordinating a universe;
	// the single-instrument engine does not consult it.
	MaxPositions int
}

// CostModel carries the per-share commission and slippage applied on every
// fill.
type CostModel struct {
	CommissionPerShare float64
	SlippageBps        float64
}

// SlippageFraction converts basis points to a price fraction.
func (c CostModel) SlippageFraction() float64 {
	return c.SlippageBps / 10000.0
}

// RuleSet is an immutable, fully resolved strategy: every condition is bound
// to its indicator column name and no further lookups or validation are
// needed at run time.
type RuleSet struct {
	Name     string
	Universe []string
	Entry    []Condition
	Exits    []ExitRule
	Sizing   Sizing
	Costs    CostModel
}

// Columns returns the sorted set of indicator columns the rule set reads.
func (rs *RuleSet) Columns() []string {
	seen := make(map[string]bool)
	for _, c := range rs.Entry {
		seen[c.Column] = true
		if c.RHSColumn != "" {
			seen[c.RHSColumn] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// EntryReason renders the full entry condition list for the ledger.
func (rs *RuleSet) EntryReason() string {
	parts := make([]string, len(rs.Entry))
	for i, c := range rs.Entry {
		parts[i] = c.String()
	}
	return "entry: " + strings.Join(parts, " and ")
}

// indicatorColumn resolves an indicator name + period from the document to
// its canonical column name. The document's default period is 14, matching
// the schema.
func indicatorColumn(ind string, period int) (string, bool) {
	if period == 0 {
		period = 14
	}
	switch strings.ToUpper(ind) {
	case "SMA", "EMA", "RSI", "ATR":
		return indicators.Column(ind, period), true
	case "MACD":
		return indicators.ColMACD, true
	case "BBANDS":
		// Conditions on Bollinger Bands compare against the middle band.
		return indicators.ColBBMiddle, true
	}
	return "", false
}

// Compile validates and normalizes a strategy document into a RuleSet.
// When available is non-nil it is the set of computed indicator columns, and
// any condition referencing a column outside it is rejected with
// UnknownIndicatorError. All errors are produced here, before any simulation
// starts; none are recoverable mid-run.
func Compile(spec *Spec, available []string) (*RuleSet, error) {
	if spec == nil {
		return nil, &SpecError{Field: "spec", Detail: "missing strategy document"}
	}
	if spec.Name == "" {
		return nil, &SpecError{Field: "name", Detail: "required"}
	}
	if spec.Costs.CommissionPerShare < 0 {
		return nil, &SpecError{Field: "costs.commission_per_share", Detail: "must be >= 0"}
	}
	if spec.Costs.SlippageBps < 0 {
		return nil, &SpecError{Field: "costs.slippage_bps", Detail: "must be >= 0"}
	}

	var availSet map[string]bool
	if available != nil {
		availSet = make(map[string]bool, len(available))
		for _, col := range available {
			availSet[col] = true
		}
	}
	resolve := func(ind string, period int) (string, error) {
		col, ok := indicatorColumn(ind, period)
		if !ok {
			return "", &SpecError{Field: "entry", Detail: "unrecognized indicator " + ind}
		}
		if availSet != nil && !availSet[col] {
			return "", &UnknownIndicatorError{Column: col}
		}
		return col, nil
	}

	rules := &RuleSet{
		Name:     spec.Name,
		Universe: append([]string(nil), spec.Universe...),
		Costs: CostModel{
			CommissionPerShare: spec.Costs.CommissionPerShare,
			SlippageBps:        spec.Costs.SlippageBps,
		},
	}

	for _, cs := range spec.Entry {
		if cs.Type != "" && cs.Type != "indicator" {
			return nil, &SpecError{Field: "entry", Detail: "unsupported condition type " + cs.Type}
		}
		op, ok := parseOp(cs.Op)
		if !ok {
			return nil, &SpecError{Field: "entry", Detail: "unrecognized operator " + cs.Op}
		}
		col, err := resolve(cs.Ind, cs.Period)
		if err != nil {
			return nil, err
		}
		cond := Condition{Column: col, Op: op}
		if cs.RHS.IsIndicator {
			rhsCol, err := resolve(cs.RHS.Ind, cs.RHS.Period)
			if err != nil {
				return nil, err
			}
			cond.RHSColumn = rhsCol
		} else {
			cond.RHSValue = cs.RHS.Literal
		}
		rules.Entry = append(rules.Entry, cond)
	}

	for _, es := range spec.Exit {
		var kind ExitKind
		switch es.Type {
		case "trailing_stop":
			kind = ExitTrailingStop
		case "stop_loss":
			kind = ExitStopLoss
		case "take_profit":
			kind = ExitTakeProfit
		default:
			return nil, &SpecError{Field: "exit", Detail: "unrecognized exit type " + es.Type}
		}
		if es.Percent <= 0 {
			return nil, &InvalidPercentageError{Rule: es.Type, Percent: es.Percent}
		}
		rules.Exits = append(rules.Exits, ExitRule{Kind: kind, Percent: es.Percent})
	}

	switch spec.Position.Sizing {
	case "percent_cash":
		if spec.Position.Value <= 0 || spec.Position.Value > 1 {
			return nil, &SpecError{Field: "position.value", Detail: "percent_cash fraction must be in (0, 1]"}
		}
		rules.Sizing = Sizing{Kind: SizePercentOfCash, Value: spec.Position.Value, MaxPositions: spec.Position.MaxPositions}
	case "fixed":
		if spec.Position.Value <= 0 {
			return nil, &SpecError{Field: "position.value", Detail: "fixed share count must be > 0"}
		}
		rules.Sizing = Sizing{Kind: SizeFixedShares, Value: spec.Position.Value, MaxPositions: spec.Position.MaxPositions}
	case "":
		return nil, &SpecError{Field: "position.sizing", Detail: "required"}
	default:
		return nil, &SpecError{Field: "position.sizing", Detail: "unrecognized sizing " + spec.Position.Sizing}
	}

	return rules, nil
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
