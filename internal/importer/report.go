package importer

import "fmt"

// ReportHeader is the first line of every import report.
const ReportHeader = "TAC Import Complete."

// Report is the consolidated result of one batch.
type Report struct {
	Scenes   Tally
	Monsters Tally
	Notes    Tally
	// Failures lists every failed item in processing order.
	Failures []Outcome
}

// record counts o against its kind's tally. Outcomes of an unknown kind are
// not counted and record reports false.
func (r *Report) record(o Outcome) bool {
	switch o.Kind {
	case ItemScene:
		r.Scenes.Record(o)
	case ItemMonster:
		r.Monsters.Record(o)
	case ItemNote:
		r.Notes.Record(o)
	default:
		return false
	}
	if !o.OK() {
		r.Failures = append(r.Failures, o)
	}
	return true
}

// String renders the four-line operator report.
func (r Report) String() string {
	return fmt.Sprintf("%s\nScenes: %d configured, %d failed.\nMonsters: %d imported, %d failed.\nNotes: %d imported, %d failed.",
		ReportHeader,
		r.Scenes.Success, r.Scenes.Failure,
		r.Monsters.Success, r.Monsters.Failure,
		r.Notes.Success, r.Notes.Failure,
	)
}

// Failed returns the total number of failed items.
func (r Report) Failed() int {
	return r.Scenes.Failure + r.Monsters.Failure + r.Notes.Failure
}
