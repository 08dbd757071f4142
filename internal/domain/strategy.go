package domain

// StrategyState is a state of the terminal-numbers betting machine.
type StrategyState string

// Strategy states.
const (
	StateNeutral         StrategyState = "NEUTRAL"
	StateTrigger         StrategyState = "TRIGGER"
	StatePostGaleNeutral StrategyState = "POST_GALE_NEUTRAL"
	StateMorto           StrategyState = "MORTO"
)

// Valid reports whether s is one of the four known states.
func (s StrategyState) Valid() bool {
	switch s {
	case StateNeutral, StateTrigger, StatePostGaleNeutral, StateMorto:
		return true
	}
	return false
}

// Outcome is the bet result produced by a single transition, if any.
type Outcome string

// Outcome constants.
const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// StrategyUpdate is emitted to the event sink after every machine transition.
// Corresponds to the strategy_updates table in PostgreSQL.
type StrategyUpdate struct {
	// UpdateID is the primary key, a hash of (table_id, step).
	UpdateID  string
	TableID   string
	TableName string

	// Step is the per-table transition counter, starting at 1.
	Step int64

	// Number is the accepted spin that drove the transition.
	Number int

	PreviousState         StrategyState
	State                 StrategyState
	TriggerNumber         *int
	PreviousTriggerNumber *int
	Wins                  int
	Losses                int
	Outcome               Outcome
	SuggestedNumbers      []int
	Timestamp             int64 // Unix milliseconds
}
