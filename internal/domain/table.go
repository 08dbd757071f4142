package domain

// TableRef identifies a roulette table.
type TableRef struct {
	ID   string
	Name string
}
