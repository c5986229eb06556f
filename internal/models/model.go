package models

// Default starting values for every item. A discrimination of 1 and a
// difficulty of 0 make no assumption about the item.
const (
	DefaultDiscrimination = 1.0
	DefaultDifficulty     = 0.0
)

// ItemParams holds the two parameters of a single 2PL item.
type ItemParams struct {
	Discrimination float64 `json:"discrimination" yaml:"discrimination"`
	Difficulty     float64 `json:"difficulty" yaml:"difficulty"`
}

// Model is the item parameter table, indexed by item id.
type Model struct {
	Discrimination []float64 `json:"discrimination" yaml:"discrimination"`
	Difficulty     []float64 `json:"difficulty" yaml:"difficulty"`
}

// NewModel returns a model for items items, every item at the default start.
func NewModel(items int) *Model {
	m := &Model{
		Discrimination: make([]float64, items),
		Difficulty:     make([]float64, items),
	}
	for j := range items {
		m.Discrimination[j] = DefaultDiscrimination
		m.Difficulty[j] = DefaultDifficulty
	}
	return m
}

// ItemCount returns the number of items in the model.
func (m *Model) ItemCount() int {
	return len(m.Difficulty)
}

// Item returns the parameters of item j.
func (m *Model) Item(j int) ItemParams {
	return ItemParams{
		Discrimination: m.Discrimination[j],
		Difficulty:     m.Difficulty[j],
	}
}

// SetItem assigns the parameters of item j.
func (m *Model) SetItem(j int, p ItemParams) {
	m.Discrimination[j] = p.Discrimination
	m.Difficulty[j] = p.Difficulty
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	return &Model{
		Discrimination: append([]float64(nil), m.Discrimination...),
		Difficulty:     append([]float64(nil), m.Difficulty...),
	}
}
