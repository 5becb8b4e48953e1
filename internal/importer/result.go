package importer

import "fmt"

// ItemKind names the batch collection an item came from.
type ItemKind string

// Batch item kinds, in processing order.
const (
	ItemScene   ItemKind = "Scene"
	ItemMonster ItemKind = "NPC"
	ItemNote    ItemKind = "Note"
)

// Outcome is the single result of importing one batch item.
type Outcome struct {
	Kind ItemKind
	Name string
	Err  error
}

// OK reports whether the item was imported.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// String renders the outcome for logs and failure listings.
func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("%s %q imported", o.Kind, o.Name)
	}
	return fmt.Sprintf("%s %q failed: %v", o.Kind, o.Name, o.Err)
}

// Tally counts outcomes for one item kind.
//
// Invariant: each recorded outcome increments exactly one of Success and
// Failure.
type Tally struct {
	Success int
	Failure int
}

// Record counts o.
func (t *Tally) Record(o Outcome) {
	if o.OK() {
		t.Success++
		return
	}
	t.Failure++
}

// Total returns the number of recorded outcomes.
func (t Tally) Total() int {
	return t.Success + t.Failure
}
