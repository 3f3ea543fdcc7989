package journal_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielfrey63/qr-scanner-library/journal"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFileJournal_Append(t *testing.T) {
	req := require.New(t)

	dir := t.TempDir()
	dataFile := filepath.Join(dir, "journal")
	lockFile := filepath.Join(dir, "journal_lock")

	fj, err := journal.NewFileJournal(dataFile, lockFile)
	req.NoError(err)
	defer fj.Close()

	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	var appended []journal.Record
	for i := 0; i < 5; i++ {
		record, err := fj.Append(journal.Record{
			DeviceID:  "/dev/video0",
			Content:   fmt.Sprintf("payload_%d", i),
			CreatedAt: createdAt,
		})
		req.NoError(err)
		req.NotEmpty(record.ID)
		req.Equal(uint64(i), record.Offset)
		appended = append(appended, record)
	}

	records, err := fj.Records(0)
	req.NoError(err)
	if diff := cmp.Diff(appended, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	tail, err := fj.Records(3)
	req.NoError(err)
	if diff := cmp.Diff(appended[3:], tail); diff != "" {
		t.Errorf("records from offset mismatch (-want +got):\n%s", diff)
	}
}

func TestFileJournal_Reopen(t *testing.T) {
	req := require.New(t)

	dir := t.TempDir()
	dataFile := filepath.Join(dir, "journal")
	lockFile := filepath.Join(dir, "journal_lock")

	fj, err := journal.NewFileJournal(dataFile, lockFile)
	req.NoError(err)

	_, err = fj.Append(journal.Record{Content: "before close"})
	req.NoError(err)
	req.NoError(fj.Close())

	fj, err = journal.NewFileJournal(dataFile, lockFile)
	req.NoError(err)
	defer fj.Close()

	record, err := fj.Append(journal.Record{Content: "after reopen"})
	req.NoError(err)
	req.Equal(uint64(1), record.Offset)

	records, err := fj.Records(0)
	req.NoError(err)
	req.Len(records, 2)
	req.Equal("before close", records[0].Content)
	req.Equal("after reopen", records[1].Content)

	_, statErr := os.Stat(dataFile)
	req.NoError(statErr)
}
