package reconcile

// Rule declares which columns identify "the same real-world record" for one
// table. An incoming entity whose rule columns all match exactly one stored
// row is treated as an update of that row.
type Rule struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// RuleSet holds the match rules configured for a run. Tables without a rule
// always take the insert path. Adding a rule is additive; there is no removal
// beyond Clear.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// Add registers a match rule for a table.
func (s *RuleSet) Add(table string, columns ...string) {
	s.rules = append(s.rules, Rule{Table: table, Columns: columns})
}

// Clear removes all rules.
func (s *RuleSet) Clear() {
	s.rules = nil
}

// ForTable returns the first rule configured for the table, if any.
func (s *RuleSet) ForTable(table string) (Rule, bool) {
	for _, r := range s.rules {
		if r.Table == table {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the configured rules.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}
