package access

// Capability is a named boolean permission on a grant row. Application rows
// carry read/write/is_admin; template and feature rows carry
// view/edit/delete/is_moderator/is_admin.
type Capability string

const (
	CapRead     Capability = "read"
	CapWrite    Capability = "write"
	CapView     Capability = "view"
	CapEdit     Capability = "edit"
	CapDelete   Capability = "delete"
	CapModerate Capability = "is_moderator"
	CapAdmin    Capability = "is_admin"
)

// Column whitelists per resource type. Capabilities are mapped to column
// names through these tables and never interpolated from caller input.
var (
	applicationColumns = map[Capability]string{
		CapRead:  "read",
		CapWrite: "write",
		CapAdmin: "is_admin",
	}

	templateColumns = map[Capability]string{
		CapView:     "view",
		CapEdit:     "edit",
		CapDelete:   "delete",
		CapModerate: "is_moderator",
		CapAdmin:    "is_admin",
	}
)

// IsReadClass reports whether the capability may be satisfied by a
// resource's is_public flag alone. Write-class and admin capabilities
// always require an explicit grant row.
func (c Capability) IsReadClass() bool {
	return c == CapRead || c == CapView
}

// IDSet holds resource identifiers with set semantics: no duplicates,
// order irrelevant.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Union(other IDSet) IDSet {
	merged := make(IDSet, len(s)+len(other))
	for id := range s {
		merged[id] = struct{}{}
	}
	for id := range other {
		merged[id] = struct{}{}
	}
	return merged
}

func (s IDSet) Intersect(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// IDs returns the members as a slice, for use in `id IN (...)` queries
func (s IDSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
