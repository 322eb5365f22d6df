package resolution

import (
	"fmt"
	"time"

	"github.com/steveyegge/taxon/internal/types"
)

// Kind is the kind of conflict a case resolves
type Kind string

const (
	// KindParent is an exact duplicate among top-level tags
	KindParent Kind = "parent"
	// KindChild is a pair of similar siblings
	KindChild Kind = "child"
	// KindSemantic is a near duplicate among top-level tags
	KindSemantic Kind = "semantic"
)

// IsValid checks if the kind value is valid
func (k Kind) IsValid() bool {
	switch k {
	case KindParent, KindChild, KindSemantic:
		return true
	}
	return false
}

// mergesParents reports whether the case merges top-level tags
func (k Kind) mergesParents() bool {
	return k == KindParent || k == KindSemantic
}

// State is the position of a case in the resolution workflow
type State string

const (
	StateOpened          State = "opened"
	StateTargetSelected  State = "target_selected"
	StateParentAssigned  State = "parent_assigned"
	StateReasonsSelected State = "reasons_selected"
	StateChildrenTriaged State = "children_triaged"
	StateCommitted       State = "committed"
	StateRejected        State = "rejected"
	StateFailed          State = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateCommitted || s == StateRejected || s == StateFailed
}

// Disposition is the triage outcome of a child of a merged parent
type Disposition string

const (
	// Migrate moves the child under the surviving target
	Migrate Disposition = "migrate"
	// Orphan clears the child's parent reference
	Orphan Disposition = "orphan"
)

// Case is one conflict being resolved. It holds selections only; the
// Controller applies them.
//
// For child cases the admin picks a unifying parent and at least one reason.
// For parent and semantic cases every child of every source parent is
// triaged into Migrate (the default) or Orphan, and at least one reason is
// required as well.
type Case struct {
	ID         string
	Kind       Kind
	Similarity *float64
	OpenedAt   time.Time

	tags      []types.Tag
	state     State
	targetID  string
	targetSet bool
	parentID  string
	reasons   []Reason
	rationale string
	triaged   bool

	// children of every implicated parent, in tag order
	children    map[string][]types.Tag
	disposition map[string]Disposition
	// top-level tags a child case may be moved under
	parents     map[string]types.Tag
	parentOrder []string
}

// Tags returns the implicated tags in the order they were given
func (c *Case) Tags() []types.Tag {
	return append([]types.Tag(nil), c.tags...)
}

// State returns the current workflow state
func (c *Case) State() State {
	if c.state.IsTerminal() {
		return c.state
	}
	switch {
	case c.Kind == KindChild && c.parentID != "" && len(c.reasons) > 0:
		return StateReasonsSelected
	case c.Kind == KindChild && c.parentID != "":
		return StateParentAssigned
	case c.Kind.mergesParents() && c.triaged:
		return StateChildrenTriaged
	case c.targetSet:
		return StateTargetSelected
	}
	return StateOpened
}

// Target returns the surviving tag
func (c *Case) Target() types.Tag {
	t, _ := c.tag(c.targetID)
	return t
}

// Sources returns every implicated tag except the target
func (c *Case) Sources() []types.Tag {
	var sources []types.Tag
	for _, t := range c.tags {
		if t.ID != c.targetID {
			sources = append(sources, t)
		}
	}
	return sources
}

// SetTarget makes tagID the surviving tag
func (c *Case) SetTarget(tagID string) error {
	if err := c.checkOpen("set target"); err != nil {
		return err
	}
	if _, ok := c.tag(tagID); !ok {
		return invalid("set target", fmt.Errorf("%w: %s", ErrInvalidTarget, tagID))
	}
	c.targetID = tagID
	c.targetSet = true
	return nil
}

// AssignParent selects the unifying parent of a child case
func (c *Case) AssignParent(parentID string) error {
	if err := c.checkOpen("assign parent"); err != nil {
		return err
	}
	if c.Kind != KindChild {
		return invalid("assign parent", fmt.Errorf("%w: only child cases take a parent", ErrKindMismatch))
	}
	if _, ok := c.parents[parentID]; !ok {
		return invalid("assign parent", fmt.Errorf("%w: %s", ErrInvalidParent, parentID))
	}
	c.parentID = parentID
	return nil
}

// Parent returns the selected unifying parent, if any
func (c *Case) Parent() (types.Tag, bool) {
	p, ok := c.parents[c.parentID]
	return p, ok
}

// CandidateParents returns the top-level tags a child case may be moved
// under, in tag order
func (c *Case) CandidateParents() []types.Tag {
	out := make([]types.Tag, 0, len(c.parentOrder))
	for _, id := range c.parentOrder {
		out = append(out, c.parents[id])
	}
	return out
}

// ToggleReason selects r if unselected and unselects it otherwise
func (c *Case) ToggleReason(r Reason) error {
	if err := c.checkOpen("toggle reason"); err != nil {
		return err
	}
	if !r.IsValid() {
		return invalid("toggle reason", fmt.Errorf("%w: %s", ErrInvalidReason, r))
	}
	for i, have := range c.reasons {
		if have == r {
			c.reasons = append(c.reasons[:i], c.reasons[i+1:]...)
			return nil
		}
	}
	c.reasons = append(c.reasons, r)
	return nil
}

// SelectReasons replaces the selected reasons
func (c *Case) SelectReasons(reasons ...Reason) error {
	if err := c.checkOpen("select reasons"); err != nil {
		return err
	}
	var selected []Reason
	seen := make(map[Reason]bool)
	for _, r := range reasons {
		if !r.IsValid() {
			return invalid("select reasons", fmt.Errorf("%w: %s", ErrInvalidReason, r))
		}
		if !seen[r] {
			seen[r] = true
			selected = append(selected, r)
		}
	}
	c.reasons = selected
	return nil
}

// Reasons returns the selected reasons in selection order
func (c *Case) Reasons() []Reason {
	return append([]Reason(nil), c.reasons...)
}

// SetRationale records free-text rationale for the decision
func (c *Case) SetRationale(text string) error {
	if err := c.checkOpen("set rationale"); err != nil {
		return err
	}
	c.rationale = text
	return nil
}

// Rationale returns the recorded rationale
func (c *Case) Rationale() string {
	return c.rationale
}

// AffectedChildren returns the children of the current source parents, in
// tag order. Empty for child cases.
func (c *Case) AffectedChildren() []types.Tag {
	if !c.Kind.mergesParents() {
		return nil
	}
	var out []types.Tag
	for _, src := range c.Sources() {
		out = append(out, c.children[src.ID]...)
	}
	return out
}

// ToggleChild moves an affected child to the other triage bucket
func (c *Case) ToggleChild(childID string) error {
	d, err := c.Disposition(childID)
	if err != nil {
		return err
	}
	if d == Migrate {
		return c.SetDisposition(childID, Orphan)
	}
	return c.SetDisposition(childID, Migrate)
}

// SetDisposition places an affected child in the given bucket
func (c *Case) SetDisposition(childID string, d Disposition) error {
	if err := c.checkOpen("triage child"); err != nil {
		return err
	}
	if d != Migrate && d != Orphan {
		return invalid("triage child", fmt.Errorf("unknown disposition %q", d))
	}
	if !c.isAffected(childID) {
		return invalid("triage child", fmt.Errorf("%w: %s", ErrNotTriaged, childID))
	}
	c.disposition[childID] = d
	c.triaged = true
	return nil
}

// Disposition returns the triage bucket of an affected child
func (c *Case) Disposition(childID string) (Disposition, error) {
	if !c.isAffected(childID) {
		return "", invalid("triage child", fmt.Errorf("%w: %s", ErrNotTriaged, childID))
	}
	if d, ok := c.disposition[childID]; ok {
		return d, nil
	}
	return Migrate, nil
}

// Triage partitions the affected children. Every affected child is in
// exactly one of the two lists.
func (c *Case) Triage() (migrate, orphan []string) {
	for _, child := range c.AffectedChildren() {
		if c.disposition[child.ID] == Orphan {
			orphan = append(orphan, child.ID)
		} else {
			migrate = append(migrate, child.ID)
		}
	}
	return migrate, orphan
}

// Plan validates the selections and returns the mutation plan a commit
// would apply. It never changes the case.
func (c *Case) Plan() (*types.MergePlan, error) {
	const op = "commit"
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}
	if len(c.tags) < 2 {
		return nil, invalid(op, ErrTooFewTags)
	}
	if c.Kind == KindChild && c.parentID == "" {
		return nil, invalid(op, ErrNoParent)
	}
	if len(c.reasons) == 0 {
		return nil, invalid(op, ErrNoReason)
	}

	target := c.Target()
	plan := &types.MergePlan{
		TargetID:   target.ID,
		TargetName: target.Name,
	}

	scope := types.ScopeParent
	if c.Kind == KindChild {
		scope = types.ScopeChild
		plan.NewParentID = c.parentID
		for _, t := range c.tags {
			plan.Reparent = append(plan.Reparent, t.ID)
		}
	} else {
		migrate, orphan := c.Triage()
		if len(migrate) > 0 {
			plan.Reparent = migrate
			plan.NewParentID = target.ID
		}
		plan.ClearParent = orphan
	}

	ruled := make(map[string]bool)
	for _, src := range c.Sources() {
		plan.SourceIDs = append(plan.SourceIDs, src.ID)
		plan.Delete = append(plan.Delete, src.ID)
		if src.Name == target.Name || ruled[src.Name] {
			continue
		}
		ruled[src.Name] = true
		plan.Rules = append(plan.Rules, types.MergeRule{
			SourceName:    src.Name,
			CanonicalName: target.Name,
			Scope:         scope,
		})
	}

	if err := plan.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	return plan, nil
}

func (c *Case) checkOpen(op string) error {
	if c.state.IsTerminal() {
		return invalid(op, fmt.Errorf("%w (%s)", ErrCaseClosed, c.state))
	}
	return nil
}

func (c *Case) tag(id string) (types.Tag, bool) {
	for _, t := range c.tags {
		if t.ID == id {
			return t, true
		}
	}
	return types.Tag{}, false
}

func (c *Case) isAffected(childID string) bool {
	for _, child := range c.AffectedChildren() {
		if child.ID == childID {
			return true
		}
	}
	return false
}

// name returns the name of an implicated tag or affected child
func (c *Case) name(id string) string {
	if t, ok := c.tag(id); ok {
		return t.Name
	}
	for _, children := range c.children {
		for _, child := range children {
			if child.ID == id {
				return child.Name
			}
		}
	}
	return ""
}
