package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

var historyHeader = []string{"timestamp_utc", "chosen_price_gbp", "source", "all_gbp_amounts_found", "url"}

// FileStore keeps state and history as flat files under a data directory:
// one JSON state file and one append-only CSV history file per target key.
// This is the default backend when no database is configured.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed and returns a store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("filestore: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) statePath(targetKey string) string {
	return filepath.Join(f.dir, "state_"+targetKey+".json")
}

func (f *FileStore) historyPath(targetKey string) string {
	return filepath.Join(f.dir, "history_"+targetKey+".csv")
}

type stateFile struct {
	LastPrice   decimal.Decimal `json:"last_price_gbp"`
	LastChecked time.Time       `json:"last_checked_utc"`
}

// LoadState reads a target's state file. Missing or corrupt files read as "no
// prior state" so a damaged file never blocks a check.
func (f *FileStore) LoadState(_ context.Context, targetKey string) (*MonitorState, error) {
	data, err := os.ReadFile(f.statePath(targetKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, nil
	}

	return &MonitorState{
		TargetKey:   targetKey,
		LastPrice:   sf.LastPrice,
		LastChecked: sf.LastChecked,
	}, nil
}

// SaveState writes the full state file for a target.
func (f *FileStore) SaveState(_ context.Context, state MonitorState) error {
	sf := stateFile{
		LastPrice:   state.LastPrice,
		LastChecked: state.LastChecked,
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(f.statePath(state.TargetKey), data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// AppendHistory appends one row to the target's CSV history, writing the
// header when the file is new.
func (f *FileStore) AppendHistory(_ context.Context, targetKey string, rec HistoryRecord) error {
	path := f.historyPath(targetKey)
	_, statErr := os.Stat(path)
	newFile := errors.Is(statErr, fs.ErrNotExist)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if newFile {
		if err := writer.Write(historyHeader); err != nil {
			return fmt.Errorf("write history header: %w", err)
		}
	}

	price := ""
	if rec.Price != nil {
		price = rec.Price.StringFixed(2)
	}
	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		price,
		rec.Source,
		FormatAmounts(rec.Amounts),
		rec.URL,
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("write history row: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

// ListRecentHistory returns the newest rows first, up to limit.
func (f *FileStore) ListRecentHistory(ctx context.Context, targetKey string, limit int) ([]HistoryRecord, error) {
	records, err := f.readHistory(targetKey)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// ListHistoryBetween returns rows within [from, to), oldest first.
func (f *FileStore) ListHistoryBetween(ctx context.Context, targetKey string, from, to time.Time) ([]HistoryRecord, error) {
	records, err := f.readHistory(targetKey)
	if err != nil {
		return nil, err
	}

	filtered := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		if rec.Timestamp.Before(from) || !rec.Timestamp.Before(to) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

func (f *FileStore) readHistory(targetKey string) ([]HistoryRecord, error) {
	file, err := os.Open(f.historyPath(targetKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	records := make([]HistoryRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 5 {
			continue
		}
		ts, tsErr := time.Parse(time.RFC3339, row[0])
		if tsErr != nil {
			continue
		}
		rec := HistoryRecord{
			Timestamp: ts,
			Source:    row[2],
			Amounts:   ParseAmounts(row[3]),
			URL:       row[4],
		}
		if row[1] != "" {
			price, convErr := decimal.NewFromString(row[1])
			if convErr == nil {
				rec.Price = &price
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

var (
	_ StateStore  = (*FileStore)(nil)
	_ HistorySink = (*FileStore)(nil)
)
