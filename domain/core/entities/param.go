package entities

// ParamSlot holds one probability or cost parameter together with its
// provenance and the per-field override flags. An *_overridden flag being
// true is the sole authority for "a human pinned this value; automated sync
// must not change it".
type ParamSlot struct {
	Mean         float64  `yaml:"mean" json:"mean" validate:"gte=0"`
	Stdev        *float64 `yaml:"stdev,omitempty" json:"stdev,omitempty"`
	Distribution string   `yaml:"distribution,omitempty" json:"distribution,omitempty"`

	Evidence *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
	Latency  *Latency  `yaml:"latency,omitempty" json:"latency,omitempty"`

	// Source bindings. A non-empty binding marks the slot as locked: its
	// value is owned by an external file or data connection and rebalancing
	// must not touch it.
	ParameterID      string `yaml:"parameter_id,omitempty" json:"parameter_id,omitempty"`
	DataSource       string `yaml:"data_source,omitempty" json:"data_source,omitempty"`
	Connection       string `yaml:"connection,omitempty" json:"connection,omitempty"`
	ConnectionString string `yaml:"connection_string,omitempty" json:"connection_string,omitempty"`

	MeanOverridden         bool `yaml:"mean_overridden,omitempty" json:"mean_overridden,omitempty"`
	StdevOverridden        bool `yaml:"stdev_overridden,omitempty" json:"stdev_overridden,omitempty"`
	DistributionOverridden bool `yaml:"distribution_overridden,omitempty" json:"distribution_overridden,omitempty"`
	ConnectionOverridden   bool `yaml:"connection_overridden,omitempty" json:"connection_overridden,omitempty"`
}

// Evidence carries the observation window a mean was derived from
type Evidence struct {
	N          int    `yaml:"n,omitempty" json:"n,omitempty" validate:"gte=0"`
	K          int    `yaml:"k,omitempty" json:"k,omitempty" validate:"gte=0"`
	WindowFrom string `yaml:"window_from,omitempty" json:"window_from,omitempty"`
	WindowTo   string `yaml:"window_to,omitempty" json:"window_to,omitempty"`
	Source     string `yaml:"source,omitempty" json:"source,omitempty"`
}

// Latency describes the conversion lag between the upstream event and this
// parameter's observation
type Latency struct {
	Mean         float64 `yaml:"mean,omitempty" json:"mean,omitempty"`
	Stdev        float64 `yaml:"stdev,omitempty" json:"stdev,omitempty"`
	Distribution string  `yaml:"distribution,omitempty" json:"distribution,omitempty"`
}

// Locked reports whether the slot is backed by an external file or direct
// data connection. Locked slots are exempt from rebalancing like overridden
// ones, but via presence of a binding rather than a flag.
func (p *ParamSlot) Locked() bool {
	if p == nil {
		return false
	}
	return p.ParameterID != "" || p.DataSource != "" || p.Connection != "" || p.ConnectionString != ""
}

// Clone returns a deep copy of the slot
func (p *ParamSlot) Clone() *ParamSlot {
	if p == nil {
		return nil
	}
	out := *p
	if p.Stdev != nil {
		stdev := *p.Stdev
		out.Stdev = &stdev
	}
	if p.Evidence != nil {
		evidence := *p.Evidence
		out.Evidence = &evidence
	}
	if p.Latency != nil {
		latency := *p.Latency
		out.Latency = &latency
	}
	return &out
}
