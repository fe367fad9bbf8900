// Package sync implements the directional field-mapping engine: the mapping
// registry, the override-aware applier, and the five direction handlers.
package sync

// Direction identifies which pair of representations a mapping moves values
// between
type Direction string

const (
	DirectionGraphInternal   Direction = "graph-internal"
	DirectionGraphToFile     Direction = "graph-to-file"
	DirectionFileToGraph     Direction = "file-to-graph"
	DirectionExternalToGraph Direction = "external-to-graph"
	DirectionExternalToFile  Direction = "external-to-file"
)

// Operation identifies what the caller is doing to the target
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationAppend Operation = "APPEND"
	OperationDelete Operation = "DELETE"
)

// SubDestination identifies the entity kind when a direction serves several
type SubDestination string

const (
	SubDestParameter SubDestination = "parameter"
	SubDestCase      SubDestination = "case"
	SubDestNode      SubDestination = "node"
	SubDestContext   SubDestination = "context"
	SubDestEvent     SubDestination = "event"
)

// Options control one application of a rule list
type Options struct {
	// ValidateOnly computes changes without writing them.
	ValidateOnly bool
	// StopOnError aborts the whole application at the first rule error.
	StopOnError bool
	// IgnoreOverrideFlags bypasses override checks entirely. Reserved for
	// explicit user-initiated push/pull actions, never automated sync.
	IgnoreOverrideFlags bool
	// AllowPermissionFlagCopy enables rules that copy *_overridden flags
	// themselves, decoupled from bypassing the checks.
	AllowPermissionFlagCopy bool

	UserID string
	// Metadata is recorded on the audit entry alongside the apply counters.
	Metadata map[string]interface{}
}

// FieldChange records one applied (or, under ValidateOnly, computed) write
type FieldChange struct {
	Field    string      `json:"field"`
	OldValue interface{} `json:"old_value"`
	NewValue interface{} `json:"new_value"`
	Source   string      `json:"source"`
}

// Conflict records a write blocked by an override flag. Conflicts are
// expected and recoverable; they are surfaced to a human or to an explicit
// force re-invocation, and never fail the call.
type Conflict struct {
	Field        string      `json:"field"`
	CurrentValue interface{} `json:"current_value"`
	NewValue     interface{} `json:"new_value"`
	Reason       string      `json:"reason"`
}

// UpdateError records a rule that failed outright
type UpdateError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result metadata keys carrying post-condition flags the caller must act on.
// The core never chains rebalancing inside a single call.
const (
	MetaRequiresSiblingRebalance = "requiresSiblingRebalance"
	MetaRequiresVariantRebalance = "requiresVariantRebalance"
)

// Result describes one mapping application
type Result struct {
	Success   bool                   `json:"success"`
	Changes   []FieldChange          `json:"changes"`
	Conflicts []Conflict             `json:"conflicts"`
	Errors    []UpdateError          `json:"errors"`
	Warnings  []string               `json:"warnings"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func newResult() *Result {
	return &Result{
		Changes:   []FieldChange{},
		Conflicts: []Conflict{},
		Errors:    []UpdateError{},
		Warnings:  []string{},
	}
}

func (r *Result) setMeta(key string, value interface{}) {
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}
	r.Metadata[key] = value
}
