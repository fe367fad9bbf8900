package entities

// Node is one step in the flow graph. The uuid is unique and immutable for
// the node's lifetime; the human-readable id is unique among current nodes
// but can be renamed.
type Node struct {
	UUID  string `yaml:"uuid" json:"uuid" validate:"required"`
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Analytics query defining the node's event. Renaming a node id rewrites
	// the old id token inside this string unless the query is overridden.
	Query string `yaml:"query,omitempty" json:"query,omitempty"`

	LabelOverridden       bool `yaml:"label_overridden,omitempty" json:"label_overridden,omitempty"`
	DescriptionOverridden bool `yaml:"description_overridden,omitempty" json:"description_overridden,omitempty"`
	QueryOverridden       bool `yaml:"query_overridden,omitempty" json:"query_overridden,omitempty"`

	// Present only for case/experiment nodes.
	Case *CaseData `yaml:"case,omitempty" json:"case,omitempty"`

	P          *ParamSlot `yaml:"p,omitempty" json:"p,omitempty"`
	CostGBP    *ParamSlot `yaml:"cost_gbp,omitempty" json:"cost_gbp,omitempty"`
	LabourCost *ParamSlot `yaml:"labour_cost,omitempty" json:"labour_cost,omitempty"`

	Position Position `yaml:"position,omitempty" json:"position,omitempty"`
}

// Position is the node's location on the chart canvas
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// CaseData describes the experiment attached to a case node
type CaseData struct {
	ID         string     `yaml:"id,omitempty" json:"id,omitempty"`
	Variants   []Variant  `yaml:"variants,omitempty" json:"variants,omitempty"`
	Schedules  []Schedule `yaml:"schedules,omitempty" json:"schedules,omitempty"`
	Status     string     `yaml:"status,omitempty" json:"status,omitempty"`
	Connection string     `yaml:"connection,omitempty" json:"connection,omitempty"`
}

// Variant is one branch of a case node's experiment. Variant weights across a
// case must sum to 1, the same contract as sibling edge probabilities.
type Variant struct {
	Name        string  `yaml:"name" json:"name"`
	Weight      float64 `yaml:"weight" json:"weight" validate:"gte=0,lte=1"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`

	WeightOverridden      bool `yaml:"weight_overridden,omitempty" json:"weight_overridden,omitempty"`
	NameOverridden        bool `yaml:"name_overridden,omitempty" json:"name_overridden,omitempty"`
	DescriptionOverridden bool `yaml:"description_overridden,omitempty" json:"description_overridden,omitempty"`

	// Ids of the edges carrying this variant's traffic.
	Edges []string `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// Schedule is one dated weight allocation in a case file's history
type Schedule struct {
	WindowFrom string             `yaml:"window_from" json:"window_from"`
	WindowTo   string             `yaml:"window_to,omitempty" json:"window_to,omitempty"`
	Weights    map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty"`
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	out := *n
	out.P = n.P.Clone()
	out.CostGBP = n.CostGBP.Clone()
	out.LabourCost = n.LabourCost.Clone()
	out.Case = n.Case.Clone()
	return &out
}

// Clone returns a deep copy of the case data
func (c *CaseData) Clone() *CaseData {
	if c == nil {
		return nil
	}
	out := *c
	if c.Variants != nil {
		out.Variants = make([]Variant, len(c.Variants))
		for i, v := range c.Variants {
			cloned := v
			if v.Edges != nil {
				cloned.Edges = append([]string(nil), v.Edges...)
			}
			out.Variants[i] = cloned
		}
	}
	if c.Schedules != nil {
		out.Schedules = make([]Schedule, len(c.Schedules))
		for i, s := range c.Schedules {
			cloned := s
			if s.Weights != nil {
				cloned.Weights = make(map[string]float64, len(s.Weights))
				for k, w := range s.Weights {
					cloned.Weights[k] = w
				}
			}
			out.Schedules[i] = cloned
		}
	}
	return &out
}
