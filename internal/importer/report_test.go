package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_RecordCountsEachKindOnce(t *testing.T) {
	var r Report
	assert.True(t, r.record(Outcome{Kind: ItemScene, Name: "Cave"}))
	assert.True(t, r.record(Outcome{Kind: ItemMonster, Name: "Goblin", Err: errors.New("rejected")}))
	assert.True(t, r.record(Outcome{Kind: ItemNote, Name: "Lore"}))

	assert.Equal(t, Tally{Success: 1}, r.Scenes)
	assert.Equal(t, Tally{Failure: 1}, r.Monsters)
	assert.Equal(t, Tally{Success: 1}, r.Notes)
	assert.Len(t, r.Failures, 1)
}

func TestReport_RecordIgnoresUnknownKind(t *testing.T) {
	var r Report
	assert.False(t, r.record(Outcome{Kind: "Token", Name: "x", Err: errors.New("boom")}))
	assert.False(t, r.record(Outcome{Name: "blank"}))

	assert.Equal(t, Report{}, r)
	assert.Equal(t, 0, r.Failed())
}
