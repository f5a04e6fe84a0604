package strategy

import (
	"fmt"
)

// Validator performs a static safety pass over a compiled rule set. Compile
// already rejects malformed documents; the validator re-checks the invariants
// on the compiled form so that rule sets constructed programmatically go
// through the same gate before execution. A rule set that passes is closed:
// it references nothing outside itself and performs no I/O when interpreted.
type Validator struct {
	violations []string
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a compiled rule set and returns whether it is safe to
// execute along with the list of violations found.
func (v *Validator) Validate(rules *RuleSet) (bool, []string) {
	v.violations = nil

	if rules == nil {
		v.add("missing rule set")
		return false, v.violations
	}
	if rules.Name == "" {
		v.add("rule set has no name")
	}

	v.checkConditions(rules)
	v.checkExits(rules)
	v.checkSizing(rules)
	v.checkCosts(rules)

	return len(v.violations) == 0, v.violations
}

func (v *Validator) checkConditions(rules *RuleSet) {
	if len(rules.Entry) == 0 {
		v.add("no entry conditions: strategy would never trade")
	}
	for i, c := range rules.Entry {
		switch c.Op {
		case OpGT, OpLT, OpGE, OpLE, OpEQ:
		default:
			v.add(fmt.Sprintf("entry condition %d has unrecognized operator", i))
		}
		if c.Column == "" {
			v.add(fmt.Sprintf("entry condition %d has no indicator column", i))
		}
	}
}

func (v *Validator) checkExits(rules *RuleSet) {
	for i, r := range rules.Exits {
		switch r.Kind {
		case ExitTrailingStop, ExitStopLoss, ExitTakeProfit:
		default:
			v.add(fmt.Sprintf("exit rule %d has unrecognized kind", i))
		}
		if r.Percent <= 0 {
			v.add(fmt.Sprintf("exit rule %d has non-positive percentage %v", i, r.Percent))
		}
	}
}

func (v *Validator) checkSizing(rules *RuleSet) {
	switch rules.Sizing.Kind {
	case SizePercentOfCash:
		if rules.Sizing.Value <= 0 || rules.Sizing.Value > 1 {
			v.add(fmt.Sprintf("percent_cash fraction %v outside (0, 1]", rules.Sizing.Value))
		}
	case SizeFixedShares:
		if rules.Sizing.Value <= 0 {
			v.add(fmt.Sprintf("fixed share count %v must be positive", rules.Sizing.Value))
		}
	default:
		v.add("unrecognized position sizing kind")
	}
	if rules.Sizing.MaxPositions < 0 {
		v.add("max positions must not be negative")
	}
}

func (v *Validator) checkCosts(rules *RuleSet) {
	if rules.Costs.CommissionPerShare < 0 {
		v.add(fmt.Sprintf("commission per share %v must not be negative", rules.Costs.CommissionPerShare))
	}
	if rules.Costs.SlippageBps < 0 {
		v.add(fmt.Sprintf("slippage %v bps must not be negative", rules.Costs.SlippageBps))
	}
}

func (v *Validator) add(violation string) {
	v.violations = append(v.violations, violation)
}
