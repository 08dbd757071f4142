// Package strategy tracks the terminal-numbers betting strategy of one table.
package strategy

import (
	"errors"
	"fmt"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/lookup"
)

// ErrInvalidState is returned by Restore for an unknown state.
var ErrInvalidState = errors.New("invalid strategy state")

// Transition describes one Process step.
type Transition struct {
	Step    int64
	Number  int
	From    domain.StrategyState
	To      domain.StrategyState
	Outcome domain.Outcome
}

// Snapshot is the full machine state, used for persistence and restore.
type Snapshot struct {
	State           domain.StrategyState
	Trigger         *int
	PreviousTrigger *int
	Wins            int
	Losses          int
	Step            int64
}

// Machine is the four-state strategy machine:
//
//	NEUTRAL -> TRIGGER                       trigger = n
//	TRIGGER -> MORTO                         n in terminals(trigger), win
//	TRIGGER -> POST_GALE_NEUTRAL             otherwise, prev_trigger = trigger
//	POST_GALE_NEUTRAL -> MORTO               win if n in terminals(prev_trigger), else loss
//	MORTO -> NEUTRAL                         n is ignored
//
// The zero value is not usable; call New.
// Machine is not safe for concurrent use.
type Machine struct {
	state domain.StrategyState

	trigger        int
	hasTrigger     bool
	prevTrigger    int
	hasPrevTrigger bool

	wins   int
	losses int
	step   int64
}

// New returns a machine in the NEUTRAL state.
func New() *Machine {
	return &Machine{state: domain.StateNeutral}
}

// Process applies exactly one transition for the accepted number n.
// The caller validates n; Process never fails.
func (m *Machine) Process(n int) Transition {
	m.step++
	tr := Transition{Step: m.step, Number: n, From: m.state}

	switch m.state {
	case domain.StateMorto:
		m.state = domain.StateNeutral

	case domain.StateTrigger:
		if lookup.IsTerminal(m.trigger, n) {
			m.wins++
			tr.Outcome = domain.OutcomeWin
			m.state = domain.StateMorto
		} else {
			m.prevTrigger = m.trigger
			m.hasPrevTrigger = true
			m.state = domain.StatePostGaleNeutral
		}

	case domain.StatePostGaleNeutral:
		if lookup.IsTerminal(m.prevTrigger, n) {
			m.wins++
			tr.Outcome = domain.OutcomeWin
		} else {
			m.losses++
			tr.Outcome = domain.OutcomeLoss
		}
		m.state = domain.StateMorto

	default:
		// NEUTRAL, and any state a bad Restore could not have produced
		m.trigger = n
		m.hasTrigger = true
		m.state = domain.StateTrigger
	}

	tr.To = m.state
	return tr
}

// CurrentSuggestion returns the numbers to cover in the current state:
// terminals(trigger) in TRIGGER, terminals(prev_trigger) in POST_GALE_NEUTRAL,
// and nil otherwise.
func (m *Machine) CurrentSuggestion() []int {
	switch m.state {
	case domain.StateTrigger:
		if m.hasTrigger {
			return lookup.Terminals(m.trigger)
		}
	case domain.StatePostGaleNeutral:
		if m.hasPrevTrigger {
			return lookup.Terminals(m.prevTrigger)
		}
	}
	return nil
}

// State returns the current state.
func (m *Machine) State() domain.StrategyState { return m.state }

// Wins returns the win count.
func (m *Machine) Wins() int { return m.wins }

// Losses returns the loss count.
func (m *Machine) Losses() int { return m.losses }

// Trigger returns the stored trigger number, if any.
func (m *Machine) Trigger() (int, bool) { return m.trigger, m.hasTrigger }

// PreviousTrigger returns the stored previous trigger number, if any.
func (m *Machine) PreviousTrigger() (int, bool) { return m.prevTrigger, m.hasPrevTrigger }

// Snapshot returns a copy of the machine state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:  m.state,
		Wins:   m.wins,
		Losses: m.losses,
		Step:   m.step,
	}
	if m.hasTrigger {
		v := m.trigger
		s.Trigger = &v
	}
	if m.hasPrevTrigger {
		v := m.prevTrigger
		s.PreviousTrigger = &v
	}
	return s
}

// Restore replaces the machine state with s.
func (m *Machine) Restore(s Snapshot) error {
	if !s.State.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, s.State)
	}
	if s.Wins < 0 || s.Losses < 0 || s.Step < 0 {
		return fmt.Errorf("%w: negative counters", ErrInvalidState)
	}

	*m = Machine{
		state:  s.State,
		wins:   s.Wins,
		losses: s.Losses,
		step:   s.Step,
	}
	if s.Trigger != nil {
		m.trigger, m.hasTrigger = *s.Trigger, true
	}
	if s.PreviousTrigger != nil {
		m.prevTrigger, m.hasPrevTrigger = *s.PreviousTrigger, true
	}
	return nil
}
