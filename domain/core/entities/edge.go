package entities

// Edge is a directed transition between two nodes. From and To may reference
// a node by uuid or, in graphs saved by older clients, by human-readable id;
// both forms must stay recognized.
type Edge struct {
	UUID string `yaml:"uuid" json:"uuid" validate:"required"`
	ID   string `yaml:"id" json:"id"`
	From string `yaml:"from" json:"from" validate:"required"`
	To   string `yaml:"to" json:"to" validate:"required"`

	P          *ParamSlot `yaml:"p,omitempty" json:"p,omitempty"`
	CostGBP    *ParamSlot `yaml:"cost_gbp,omitempty" json:"cost_gbp,omitempty"`
	LabourCost *ParamSlot `yaml:"labour_cost,omitempty" json:"labour_cost,omitempty"`

	ConditionalP []ConditionalEntry `yaml:"conditional_p,omitempty" json:"conditional_p,omitempty"`

	// Set when the edge belongs to one branch of a case node's experiment.
	CaseID      string `yaml:"case_id,omitempty" json:"case_id,omitempty"`
	CaseVariant string `yaml:"case_variant,omitempty" json:"case_variant,omitempty"`
}

// ConditionalEntry is one conditional-probability branch on an edge. Identity
// within the edge is positional; identity across sibling edges is the
// normalized condition string.
type ConditionalEntry struct {
	Condition       string    `yaml:"condition" json:"condition"`
	Query           string    `yaml:"query,omitempty" json:"query,omitempty"`
	QueryOverridden bool      `yaml:"query_overridden,omitempty" json:"query_overridden,omitempty"`
	P               ParamSlot `yaml:"p" json:"p"`
	Colour          string    `yaml:"colour,omitempty" json:"colour,omitempty"`
}

// ReferencesNode reports whether the edge touches the node identified by the
// given uuid/id pair, in either endpoint and either reference form
func (e *Edge) ReferencesNode(uuid, id string) bool {
	return e.FromNode(uuid, id) || e.To == uuid || (id != "" && e.To == id)
}

// FromNode reports whether the edge leaves the node identified by the given
// uuid/id pair
func (e *Edge) FromNode(uuid, id string) bool {
	return e.From == uuid || (id != "" && e.From == id)
}

// Clone returns a deep copy of the edge
func (e *Edge) Clone() *Edge {
	out := *e
	out.P = e.P.Clone()
	out.CostGBP = e.CostGBP.Clone()
	out.LabourCost = e.LabourCost.Clone()
	if e.ConditionalP != nil {
		out.ConditionalP = make([]ConditionalEntry, len(e.ConditionalP))
		for i, entry := range e.ConditionalP {
			cloned := entry
			cloned.P = *entry.P.Clone()
			out.ConditionalP[i] = cloned
		}
	}
	return &out
}
