package configalg

import "github.com/arborio/statecraft/internal/model"

// InitialConfiguration builds the configuration and entry set for
// entering a freshly constructed machine: the root itself plus its
// InitialDescendants, sorted ascending.
// There is no prior active configuration to compute an exit set
// against; the caller runs entrySet's Entry actions directly.
func InitialConfiguration(def *model.Definition, resolver HistoryResolver) (*Configuration, []*model.StateNode) {
	cfg := NewConfiguration(def)
	cfg.Add(def.Root)
	entrySet := append([]*model.StateNode{def.Root}, InitialDescendants(def.Root, resolver)...)
	for _, n := range entrySet[1:] {
		cfg.Add(n)
	}
	SortAsc(entrySet)
	return cfg, entrySet
}
