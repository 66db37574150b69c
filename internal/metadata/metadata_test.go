package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingObserver struct {
	name string
	log  *[]string
}

func (c *countingObserver) OnSubjectChanged() { *c.log = append(*c.log, c.name) }

func TestSetters_NotifyInOrder(t *testing.T) {
	var log []string
	m := New(Record{})
	m.AddObserver(&countingObserver{name: "first", log: &log})
	m.AddObserver(&countingObserver{name: "second", log: &log})

	m.SetFilePath("/tmp/x.txt")
	assert.Equal(t, []string{"first", "second"}, log)

	m.SetFileSize(42)
	m.SetLastUpdatedOn(time.Now())
	assert.Len(t, log, 6)
}

func TestSetters_NotifyEvenWhenUnchanged(t *testing.T) {
	calls := 0
	m := New(Record{FilePath: "/a", FileSize: 1})
	m.Subscribe(func() { calls++ })

	m.SetFilePath("/a")
	m.SetFileSize(1)
	assert.Equal(t, 2, calls)
}

func TestSetters_ValueVisibleToObserver(t *testing.T) {
	m := New(Record{})
	var seen string
	m.Subscribe(func() { seen = m.FilePath() })
	m.SetFilePath("/notes/a.txt")
	assert.Equal(t, "/notes/a.txt", seen)
}

func TestSetLastUpdatedOn_Formats(t *testing.T) {
	m := New(Record{})
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	m.SetLastUpdatedOn(ts)
	assert.Equal(t, "2024-01-01 00:00:00", m.LastUpdatedOn())
}

func TestFormatted(t *testing.T) {
	m := New(Record{FilePath: "/tmp/x.txt", FileSize: 42, LastUpdatedOn: "2024-01-01 00:00:00"})
	assert.Equal(t,
		"File path : /tmp/x.txt\nFile size (bytes) : 42\nLast updated on : 2024-01-01 00:00:00",
		m.Formatted())
}

func TestSnapshotIsCopy(t *testing.T) {
	m := New(Record{FilePath: "/a"})
	snap := m.Snapshot()
	m.SetFilePath("/b")
	assert.Equal(t, "/a", snap.FilePath)
	assert.False(t, snap.IsZero())
	assert.True(t, Record{}.IsZero())
}
