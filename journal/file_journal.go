package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/juju/fslock"
)

var _ Journal = (*FileJournal)(nil)

const defaultLockFile = "/tmp/qr_scanner_journal_lock"

// FileJournal is an append-only JSON-lines journal. A file lock
// serializes appends so several processes may share one journal file.
type FileJournal struct {
	lockFile *fslock.Lock

	dataFile *os.File
}

// NewFileJournal opens (or creates) the journal at filename. The
// optional second argument overrides the lock file path.
func NewFileJournal(filename string, lockFilename ...string) (*FileJournal, error) {
	var (
		fj  FileJournal
		err error
	)
	if len(lockFilename) > 0 {
		fj.lockFile = fslock.New(lockFilename[0])
	} else {
		fj.lockFile = fslock.New(defaultLockFile)
	}

	if fj.dataFile, err = os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644); err != nil {
		return nil, fmt.Errorf("failed to open a journal file: %w", err)
	}
	return &fj, nil
}

func countLines(r io.Reader) uint64 {
	var count uint64
	fileScanner := bufio.NewScanner(r)

	for fileScanner.Scan() {
		count++
	}

	return count
}

// Append writes the record to the journal and returns it with its
// assigned id and offset.
func (fj *FileJournal) Append(record Record) (Record, error) {
	var (
		data []byte
		err  error
	)
	if err = fj.lockFile.Lock(); err != nil {
		return record, fmt.Errorf("failed to lock the journal: %w", err)
	}
	defer fj.lockFile.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if _, err = fj.dataFile.Seek(0, 0); err != nil { // otherwise countLines will return zero
		return record, fmt.Errorf("failed to seek to the start of the journal file: %w", err)
	}
	record.Offset = countLines(fj.dataFile)

	if data, err = json.Marshal(record); err != nil {
		return record, fmt.Errorf("failed to marshal a record %v: %w", record, err)
	}

	if _, err = fmt.Fprintln(fj.dataFile, string(data)); err != nil {
		return record, fmt.Errorf("failed to write a record to the journal file: %w", err)
	}
	return record, nil
}

// Records returns all records starting from the given offset.
func (fj *FileJournal) Records(offset uint64) ([]Record, error) {
	var (
		records []Record
		record  Record
	)
	if _, err := fj.dataFile.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to seek to the start of the journal file: %w", err)
	}
	scanner := bufio.NewScanner(fj.dataFile)
	for scanner.Scan() {
		if offset > 0 {
			offset--
			continue
		}

		row := scanner.Bytes()
		if err := json.Unmarshal(row, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal a record %s: %w", string(row), err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read the journal file: %w", err)
	}
	return records, nil
}

func (fj *FileJournal) Close() error {
	return fj.dataFile.Close()
}
