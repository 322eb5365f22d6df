package repl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/steveyegge/taxon/internal/resolution"
	"github.com/steveyegge/taxon/internal/types"
)

var errNoCase = errors.New("no open case (use 'open <ref>')")

// cmdOpen opens a case for a conflict reference
func (r *REPL) cmdOpen(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <ref>")
	}
	if r.current != nil && !r.current.State().IsTerminal() {
		return fmt.Errorf("case %s is still open (commit or reject it first)", shortID(r.current.ID))
	}

	kind, idx, err := parseRef(args[0])
	if err != nil {
		return err
	}

	var c *resolution.Case
	switch kind {
	case refDuplicate:
		if idx >= len(r.results.DuplicateParentTags) {
			return fmt.Errorf("no duplicate group %s", args[0])
		}
		c, err = r.ctrl.OpenDuplicateGroup(r.ctx, r.results.DuplicateParentTags[idx])
	case refSemantic:
		if idx >= len(r.results.SemanticDuplicates) {
			return fmt.Errorf("no similar parents %s", args[0])
		}
		c, err = r.ctrl.OpenSemanticDuplicate(r.ctx, r.results.SemanticDuplicates[idx])
	case refChild:
		if idx >= len(r.childPairs) {
			return fmt.Errorf("no similar children %s", args[0])
		}
		c, err = r.ctrl.OpenSimilarChildren(r.ctx, r.childPairs[idx])
	default:
		return fmt.Errorf("orphans are resolved with 'adopt' or 'delete'")
	}
	if err != nil {
		return err
	}

	r.current = c
	return r.cmdShow(nil)
}

// cmdShow prints the open case
func (r *REPL) cmdShow(args []string) error {
	c := r.current
	if c == nil {
		return errNoCase
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	header := fmt.Sprintf("%s case %s", c.Kind, shortID(c.ID))
	if c.Similarity != nil {
		header += " " + percent(*c.Similarity)
	}
	fmt.Fprintf(r.out, "\n%s %s\n\n", cyan(header), gray("("+string(c.State())+")"))

	target := c.Target()
	fmt.Fprintf(r.out, "  %s %s\n", green("target"), tagLabel(target))
	for _, src := range c.Sources() {
		fmt.Fprintf(r.out, "  %s %s\n", yellow("merge "), tagLabel(src))
	}

	if c.Kind == resolution.KindChild {
		fmt.Fprintf(r.out, "\n  %s\n", cyan("Unifying parent"))
		selected, _ := c.Parent()
		for _, p := range c.CandidateParents() {
			mark := " "
			if p.ID == selected.ID {
				mark = green("*")
			}
			fmt.Fprintf(r.out, "  %s %s\n", mark, tagLabel(p))
		}
	} else if children := c.AffectedChildren(); len(children) > 0 {
		fmt.Fprintf(r.out, "\n  %s\n", cyan("Children of merged parents"))
		for _, child := range children {
			d, _ := c.Disposition(child.ID)
			label := green(string(d))
			if d == resolution.Orphan {
				label = yellow(string(d))
			}
			fmt.Fprintf(r.out, "    %-8s %s\n", label, tagLabel(child))
		}
	}

	reasons := "none"
	if rs := c.Reasons(); len(rs) > 0 {
		parts := make([]string, len(rs))
		for i, reason := range rs {
			parts[i] = string(reason)
		}
		reasons = strings.Join(parts, ", ")
	}
	fmt.Fprintf(r.out, "\n  reasons: %s\n", reasons)
	if c.Rationale() != "" {
		fmt.Fprintf(r.out, "  note:    %s\n", c.Rationale())
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) openCase() (*resolution.Case, error) {
	if r.current == nil || r.current.State().IsTerminal() {
		return nil, errNoCase
	}
	return r.current, nil
}

// cmdTarget selects the surviving tag
func (r *REPL) cmdTarget(args []string) error {
	c, err := r.openCase()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: target <tag-id>")
	}
	if err := c.SetTarget(args[0]); err != nil {
		return err
	}
	return r.cmdShow(nil)
}

// cmdParent selects the unifying parent of a child merge
func (r *REPL) cmdParent(args []string) error {
	c, err := r.openCase()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: parent <tag-id>")
	}
	if err := c.AssignParent(args[0]); err != nil {
		return err
	}
	return r.cmdShow(nil)
}

// cmdReason toggles one or more reasons
func (r *REPL) cmdReason(args []string) error {
	c, err := r.openCase()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: reason <reason>... (see 'reasons')")
	}
	reasons, err := resolution.ParseReasons(args)
	if err != nil {
		return err
	}
	for _, reason := range reasons {
		if err := c.ToggleReason(reason); err != nil {
			return err
		}
	}
	return r.cmdShow(nil)
}

// cmdReasons lists the reason taxonomy
func (r *REPL) cmdReasons(args []string) error {
	for _, reason := range resolution.AllReasons() {
		fmt.Fprintf(r.out, "  %s\n", reason)
	}
	return nil
}

// cmdToggle moves children between the migrate and orphan buckets
func (r *REPL) cmdToggle(args []string) error {
	c, err := r.openCase()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: toggle <child-id>...")
	}
	for _, id := range args {
		if err := c.ToggleChild(id); err != nil {
			return err
		}
	}
	return r.cmdShow(nil)
}

// cmdNote records a rationale
func (r *REPL) cmdNote(args []string) error {
	c, err := r.openCase()
	if err != nil {
		return err
	}
	return c.SetRationale(strings.Join(args, " "))
}

// cmdCommit applies the open case
func (r *REPL) cmdCommit(args []string) error {
	c, err := r.openCase()
	if err != nil {
		return err
	}

	plan, err := r.ctrl.Commit(r.ctx, c)
	if err != nil {
		var ce *resolution.CommitError
		if errors.As(err, &ce) {
			r.current = nil
			if reloadErr := r.reload(); reloadErr != nil {
				r.printError(reloadErr)
			}
		}
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Merged %d tag(s) into %q", green("✓"), len(plan.Delete), plan.TargetName)
	if n := len(plan.Reparent); n > 0 && c.Kind != resolution.KindChild {
		fmt.Fprintf(r.out, ", %d child(ren) migrated", n)
	}
	if n := len(plan.ClearParent); n > 0 {
		fmt.Fprintf(r.out, ", %d orphaned", n)
	}
	fmt.Fprintf(r.out, ", %d rule(s) learned\n", len(plan.Rules))

	r.current = nil
	if err := r.reload(); err != nil {
		return err
	}
	return r.cmdList(nil)
}

// cmdReject dismisses the open case
func (r *REPL) cmdReject(args []string) error {
	c, err := r.openCase()
	if err != nil {
		return err
	}
	if err := r.ctrl.Reject(r.ctx, c, strings.Join(args, " ")); err != nil {
		return err
	}
	r.current = nil

	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(r.out, "%s Case dismissed\n", gray("–"))
	return nil
}

// cmdAdopt moves an orphan under an existing parent
func (r *REPL) cmdAdopt(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: adopt <o-ref> <parent-id> [reason]...")
	}
	orphan, err := r.orphan(args[0])
	if err != nil {
		return err
	}
	reasons, err := resolution.ParseReasons(args[2:])
	if err != nil {
		return err
	}
	if err := r.ctrl.AdoptOrphan(r.ctx, orphan, args[1], resolution.OrphanDecision{Reasons: reasons}); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "%s Adopted %q\n", green("✓"), orphan.Name)
	if err := r.reload(); err != nil {
		return err
	}
	return r.cmdList(nil)
}

// cmdDelete deletes one orphan
func (r *REPL) cmdDelete(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: delete <o-ref> <reason>...")
	}
	orphan, err := r.orphan(args[0])
	if err != nil {
		return err
	}
	reasons, err := resolution.ParseReasons(args[1:])
	if err != nil {
		return err
	}
	if err := r.ctrl.DeleteOrphan(r.ctx, orphan, resolution.OrphanDecision{Reasons: reasons}); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "%s Deleted %q\n", green("✓"), orphan.Name)
	if err := r.reload(); err != nil {
		return err
	}
	return r.cmdList(nil)
}

// cmdPurge deletes every listed orphan
func (r *REPL) cmdPurge(args []string) error {
	reasons, err := resolution.ParseReasons(args)
	if err != nil {
		return err
	}
	n, err := r.ctrl.BulkDeleteOrphans(r.ctx, r.results.OrphanedTags, resolution.OrphanDecision{Reasons: reasons})
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "%s Deleted %d orphan(s)\n", green("✓"), n)
	if err := r.reload(); err != nil {
		return err
	}
	return r.cmdList(nil)
}

func tagLabel(t types.Tag) string {
	gray := color.New(color.FgHiBlack).SprintFunc()
	return fmt.Sprintf("%s %s", t.Name, gray("["+t.ID+"]"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
