package file

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/dukex/gradflow/pkg/persistence"
)

// recordDocument is the on-disk form of a record. Steps live in the same file so a
// state change and its step are written by a single rename.
type recordDocument struct {
	Record *models.Record `json:"record"`
	Steps  []*models.Step `json:"steps"`
}

type sequence struct {
	Record int64 `json:"record"`
	Step   int64 `json:"step"`
}

// RecordRepository handles record-related file operations.
type RecordRepository struct {
	root string

	sequenceMu sync.Mutex
	locks      sync.Map // record ID -> *sync.Mutex
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(root string) *RecordRepository {
	return &RecordRepository{root: root}
}

// Create stores a new record with its first step.
func (rr *RecordRepository) Create(ctx context.Context, record *models.Record, step *models.Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if record == nil || step == nil {
		return persistence.NewRecordError("Create", models.NewRecordID, persistence.ErrInvalidRecord)
	}

	ids, err := rr.allocate(1, 1)
	if err != nil {
		return persistence.NewRecordError("Create", models.NewRecordID, err)
	}

	record.ID = ids.Record
	step.ID = ids.Step
	step.RecordID = record.ID

	unlock := rr.lock(record.ID)
	defer unlock()

	err = rr.writeDocument(&recordDocument{Record: record, Steps: []*models.Step{step}})
	if err != nil {
		return persistence.NewRecordError("Create", record.ID, err)
	}

	return nil
}

// Transition applies fn to the record while holding its lock and writes the result.
func (rr *RecordRepository) Transition(
	ctx context.Context,
	id int64,
	apply persistence.TransitionFunc,
) (*models.Record, *models.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	unlock := rr.lock(id)
	defer unlock()

	doc, err := rr.readDocument(id)
	if err != nil {
		return nil, nil, persistence.NewRecordError("Transition", id, err)
	}

	working := doc.Record.Clone()

	step, err := apply(working)
	if err != nil {
		return nil, nil, err
	}

	if step == nil {
		return nil, nil, persistence.NewRecordError("Transition", id, persistence.ErrInvalidRecord)
	}

	// identity and authorship never change
	working.ID = doc.Record.ID
	working.CreatorID = doc.Record.CreatorID
	working.CreatorName = doc.Record.CreatorName
	working.CreatedAt = doc.Record.CreatedAt

	ids, err := rr.allocate(0, 1)
	if err != nil {
		return nil, nil, persistence.NewRecordError("Transition", id, err)
	}

	step.ID = ids.Step
	step.RecordID = id

	doc.Record = working
	doc.Steps = append(doc.Steps, step)

	err = rr.writeDocument(doc)
	if err != nil {
		return nil, nil, persistence.NewRecordError("Transition", id, err)
	}

	return working.Clone(), step, nil
}

// GetByID returns the record with the given ID.
func (rr *RecordRepository) GetByID(_ context.Context, id int64) (*models.Record, error) {
	doc, err := rr.readDocument(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", id, err)
	}

	return doc.Record, nil
}

// List returns filtered records newest first.
func (rr *RecordRepository) List(
	ctx context.Context,
	opts persistence.ListRecordsOptions,
) (*persistence.RecordListResult, error) {
	docs, err := rr.readAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Record, 0, len(docs))

	for _, doc := range docs {
		if opts.Matches(doc.Record) {
			filtered = append(filtered, doc.Record)
		}
	}

	slices.SortFunc(filtered, func(a, b *models.Record) int {
		return cmp.Compare(b.ID, a.ID)
	})

	totalCount := int64(len(filtered))

	startIdx := max(opts.Offset, 0)
	if startIdx >= len(filtered) {
		return &persistence.RecordListResult{
			Records:    make([]*models.Record, 0),
			TotalCount: totalCount,
		}, nil
	}

	endIdx := len(filtered)
	if opts.Limit > 0 && startIdx+opts.Limit < endIdx {
		endIdx = startIdx + opts.Limit
	}

	return &persistence.RecordListResult{
		Records:    filtered[startIdx:endIdx],
		TotalCount: totalCount,
	}, nil
}

// Steps returns the steps of a record in creation order.
func (rr *RecordRepository) Steps(_ context.Context, recordID int64) ([]*models.Step, error) {
	doc, err := rr.readDocument(recordID)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return make([]*models.Step, 0), nil
		}

		return nil, persistence.NewRecordError("Steps", recordID, err)
	}

	return doc.Steps, nil
}

// StepByID scans every record for the step with the given ID.
func (rr *RecordRepository) StepByID(ctx context.Context, id int64) (*models.Step, error) {
	docs, err := rr.readAll(ctx)
	if err != nil {
		return nil, persistence.NewStepError("StepByID", id, err)
	}

	for _, doc := range docs {
		for _, step := range doc.Steps {
			if step.ID == id {
				return step, nil
			}
		}
	}

	return nil, persistence.NewStepError("StepByID", id, persistence.ErrStepNotFound)
}

func (rr *RecordRepository) lock(id int64) func() {
	value, _ := rr.locks.LoadOrStore(id, &sync.Mutex{})
	mu, _ := value.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// allocate reserves the next record and step IDs. IDs are never reused, even when
// the write that requested them fails.
func (rr *RecordRepository) allocate(records, steps int64) (sequence, error) {
	rr.sequenceMu.Lock()
	defer rr.sequenceMu.Unlock()

	var seq sequence

	path := filepath.Join(rr.root, "sequence.json")

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &seq); err != nil {
			return sequence{}, fmt.Errorf("failed to decode sequence: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return sequence{}, fmt.Errorf("failed to read sequence: %w", err)
	}

	seq.Record += records
	seq.Step += steps

	data, err = json.Marshal(seq)
	if err != nil {
		return sequence{}, fmt.Errorf("failed to encode sequence: %w", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return sequence{}, err
	}

	return seq, nil
}

func (rr *RecordRepository) recordsDir() string {
	return filepath.Join(rr.root, "records")
}

func (rr *RecordRepository) recordPath(id int64) string {
	return filepath.Join(rr.recordsDir(), strconv.FormatInt(id, 10)+".json")
}

func (rr *RecordRepository) readDocument(id int64) (*recordDocument, error) {
	if id <= 0 {
		return nil, persistence.ErrRecordNotFound
	}

	data, err := os.ReadFile(rr.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrRecordNotFound
		}

		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var doc recordDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record file: %w", err)
	}

	if doc.Record == nil {
		return nil, fmt.Errorf("record file %d has no record", id)
	}

	if doc.Steps == nil {
		doc.Steps = make([]*models.Step, 0)
	}

	return &doc, nil
}

func (rr *RecordRepository) readAll(ctx context.Context) ([]*recordDocument, error) {
	entries, err := os.ReadDir(rr.recordsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list record files: %w", err)
	}

	docs := make([]*recordDocument, 0, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}

		doc, err := rr.readDocument(id)
		if err != nil {
			// removed between listing and reading
			if errors.Is(err, persistence.ErrRecordNotFound) {
				continue
			}

			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (rr *RecordRepository) writeDocument(doc *recordDocument) error {
	if err := os.MkdirAll(rr.recordsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return writeFileAtomic(rr.recordPath(doc.Record.ID), data)
}

// writeFileAtomic replaces path with data so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(tmpName, path)
	}

	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}
