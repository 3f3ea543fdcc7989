package journal_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/danielfrey63/qr-scanner-library/journal"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLevelDBJournal_Append(t *testing.T) {
	var (
		req    = require.New(t)
		dbPath = filepath.Join(t.TempDir(), "journal_db")
		topic  = "test_topic"
	)

	j, err := journal.NewLevelDBJournal(dbPath, topic)
	req.NoError(err)
	defer j.Close()

	var appended []journal.Record
	for i := 0; i < 4; i++ {
		record, err := j.Append(journal.Record{
			DeviceID: "1",
			Content:  fmt.Sprintf("payload_%d", i),
		})
		req.NoError(err)
		req.NotEmpty(record.ID)
		req.Equal(uint64(i), record.Offset)
		appended = append(appended, record)
	}

	records, err := j.Records(0)
	req.NoError(err)
	if diff := cmp.Diff(appended, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	tail, err := j.Records(2)
	req.NoError(err)
	req.Len(tail, 2)
	req.Equal("payload_2", tail[0].Content)
}

func TestLevelDBJournal_CounterSurvivesReopen(t *testing.T) {
	var (
		req    = require.New(t)
		dbPath = filepath.Join(t.TempDir(), "journal_db")
		topic  = "test_topic"
	)

	j, err := journal.NewLevelDBJournal(dbPath, topic)
	req.NoError(err)

	_, err = j.Append(journal.Record{Content: "first"})
	req.NoError(err)
	req.NoError(j.Close())

	j, err = journal.NewLevelDBJournal(dbPath, topic)
	req.NoError(err)
	defer j.Close()

	record, err := j.Append(journal.Record{Content: "second"})
	req.NoError(err)
	req.Equal(uint64(1), record.Offset)

	records, err := j.Records(0)
	req.NoError(err)
	req.Len(records, 2)
}
