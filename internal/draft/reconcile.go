package draft

import "github.com/prappser/prappser_composer/internal/remote"

// Plan is the set of remote changes needed to move from the original media
// snapshot to the edited attachment set.
type Plan struct {
	DeleteIDs []string
	Uploads   []Candidate
}

// Reconcile diffs the original remote media against the current candidates.
// DeleteIDs keeps the snapshot order and Uploads keeps the set order.
func Reconcile(original []remote.Media, current []Candidate) Plan {
	kept := make(map[string]bool, len(current))
	for _, c := range current {
		if c.Origin == OriginExisting && c.RemoteID != "" {
			kept[c.RemoteID] = true
		}
	}

	plan := Plan{}
	seen := make(map[string]bool, len(original))
	for _, m := range original {
		if kept[m.ID] || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		plan.DeleteIDs = append(plan.DeleteIDs, m.ID)
	}

	for _, c := range current {
		if c.IsNew() {
			plan.Uploads = append(plan.Uploads, c)
		}
	}
	return plan
}
