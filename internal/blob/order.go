package blob

import (
	"fmt"
	"sort"
)

// ListOrder sorts a listing. Callers pick the ordering at runtime; new
// orderings are added without touching existing code.
type ListOrder interface {
	Name() string
	Sort(infos []Info)
}

// OrderByKey sorts lexicographically by key (the backend default).
type OrderByKey struct{}

func (OrderByKey) Name() string { return "key" }

func (OrderByKey) Sort(infos []Info) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
}

// OrderBySize sorts largest objects first, key as tiebreaker.
type OrderBySize struct{}

func (OrderBySize) Name() string { return "size" }

func (OrderBySize) Sort(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Size == infos[j].Size {
			return infos[i].Key < infos[j].Key
		}
		return infos[i].Size > infos[j].Size
	})
}

// OrderByRecency sorts most recently modified first, key as tiebreaker.
type OrderByRecency struct{}

func (OrderByRecency) Name() string { return "recency" }

func (OrderByRecency) Sort(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].LastModified.Equal(infos[j].LastModified) {
			return infos[i].Key < infos[j].Key
		}
		return infos[i].LastModified.After(infos[j].LastModified)
	})
}

// OrderFor resolves an ordering by name. Empty selects the key order.
func OrderFor(name string) (ListOrder, error) {
	switch name {
	case "", "key":
		return OrderByKey{}, nil
	case "size":
		return OrderBySize{}, nil
	case "recency":
		return OrderByRecency{}, nil
	default:
		return nil, fmt.Errorf("unknown list order %q", name)
	}
}
