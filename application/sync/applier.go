package sync

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"flowsync-core/domain/documents"
)

// Applier runs a rule list against a source/target document pair. It never
// mutates the source; the target is edited in place, so callers that need
// copy-on-write clone before calling Apply.
type Applier struct {
	logger *zap.Logger
}

// NewApplier creates an applier
func NewApplier(logger *zap.Logger) *Applier {
	return &Applier{logger: logger}
}

// Apply evaluates every rule in order and returns the accumulated result.
// A rule that cannot produce a value skips silently; a rule blocked by an
// override flag records a conflict; only genuine failures (bad paths,
// unregistered transforms, panics) count as errors and flip Success.
func (a *Applier) Apply(source, target documents.Document, rules []Rule, opts Options) *Result {
	result := newResult()

	for _, rule := range rules {
		if err := a.applyRule(source, target, rule, opts, result); err != nil {
			result.Errors = append(result.Errors, UpdateError{
				Field:   rule.TargetField,
				Message: err.Error(),
			})
			if opts.StopOnError {
				break
			}
		}
	}

	result.Success = len(result.Errors) == 0
	return result
}

func (a *Applier) applyRule(source, target documents.Document, rule Rule, opts Options, result *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule for %q panicked: %v", rule.TargetField, r)
		}
	}()

	// Flag-propagation rules are opt-in: copying an *_overridden marker
	// from one document to another changes who is allowed to write the
	// underlying field, so it only happens when the caller asks for it.
	if rule.PermissionCopy && !opts.AllowPermissionFlagCopy {
		return nil
	}

	if rule.Condition != "" {
		cond, err := lookupCondition(rule.Condition)
		if err != nil {
			return err
		}
		if !cond(source, target) {
			return nil
		}
	}

	value, err := a.resolveValue(source, target, rule)
	if err != nil {
		return err
	}
	if value == skipRule {
		return nil
	}

	// A set override flag on the target means a human pinned this field;
	// automated sync records the disagreement and leaves the value alone.
	// A conflict is recorded only when the values actually differ, so
	// re-applying the same source yields an identical, conflict-free result.
	if rule.OverrideFlag != "" && !opts.IgnoreOverrideFlags {
		if flagged, found, _ := documents.Get(target, rule.OverrideFlag); found {
			if b, ok := flagged.(bool); ok && b {
				current, _, _ := documents.Get(target, rule.TargetField)
				if !valuesEqual(current, value) {
					result.Conflicts = append(result.Conflicts, Conflict{
						Field:        rule.TargetField,
						CurrentValue: current,
						NewValue:     value,
						Reason:       "overridden",
					})
				}
				return nil
			}
		}
	}

	// Appends always write; for everything else, skip no-op writes so the
	// change list reflects real differences.
	isAppend := strings.HasSuffix(rule.TargetField, "[]")
	if !isAppend {
		current, found, err := documents.Get(target, rule.TargetField)
		if err != nil {
			return err
		}
		if found && valuesEqual(current, value) {
			return nil
		}
		if opts.ValidateOnly {
			result.Changes = append(result.Changes, FieldChange{
				Field:    rule.TargetField,
				OldValue: current,
				NewValue: value,
				Source:   rule.SourceField,
			})
			return nil
		}
		if err := documents.Set(target, rule.TargetField, value); err != nil {
			return err
		}
		result.Changes = append(result.Changes, FieldChange{
			Field:    rule.TargetField,
			OldValue: current,
			NewValue: value,
			Source:   rule.SourceField,
		})
		return nil
	}

	if opts.ValidateOnly {
		result.Changes = append(result.Changes, FieldChange{
			Field:    rule.TargetField,
			NewValue: value,
			Source:   rule.SourceField,
		})
		return nil
	}
	if err := documents.Set(target, rule.TargetField, value); err != nil {
		return err
	}
	result.Changes = append(result.Changes, FieldChange{
		Field:    rule.TargetField,
		NewValue: value,
		Source:   rule.SourceField,
	})
	return nil
}

// skipRule is a sentinel distinguishing "no value, skip" from a legitimate
// nil value produced by a transform such as clear.
var skipRule = &struct{}{}

func (a *Applier) resolveValue(source, target documents.Document, rule Rule) (interface{}, error) {
	var raw interface{}
	if rule.SourceField != "" {
		v, found, err := documents.Get(source, rule.SourceField)
		if err != nil {
			return nil, err
		}
		if !found && rule.Transform == "" {
			return skipRule, nil
		}
		raw = v
	}

	if rule.Transform == "" {
		if raw == nil && rule.SourceField == "" {
			return skipRule, nil
		}
		return raw, nil
	}

	transform, err := lookupTransform(rule.Transform)
	if err != nil {
		return nil, err
	}
	value, ok := transform(raw, source, target)
	if !ok {
		return skipRule, nil
	}
	return value, nil
}

// valuesEqual compares with numeric normalization so an int 1 read from YAML
// matches a float64 1.0 already in the graph.
func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
