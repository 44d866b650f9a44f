package postgresql_test

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/dukex/gradflow/pkg/persistence"
	"github.com/dukex/gradflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("rejected")

func approve(record *models.Record) (*models.Step, error) {
	if record.CurrentState != "Topic Created" {
		return nil, errRejected
	}

	record.CurrentState = "Topic Approved"

	return &models.Step{
		OperatorID:   20,
		OperatorName: "Prof. Wang",
		CreatedAt:    time.Now().UTC(),
		ActionKey:    "approve_topic",
		ActionName:   "Approve Topic",
		FromState:    "Topic Created",
		NextState:    "Topic Approved",
		SubmitData:   models.Submission{{Name: "Comments", Value: "ok"}},
	}, nil
}

func TestRecordRepository_CreateAndTransition(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RecordRepository()

	record, step := testutil.CreateTestTopic(10, "Li Lei", "Sensor Networks")
	require.NoError(t, repo.Create(ctx, record, step))
	assert.Positive(t, record.ID)
	assert.Equal(t, record.ID, step.RecordID)

	updated, appended, err := repo.Transition(ctx, record.ID, approve)
	require.NoError(t, err)
	assert.Equal(t, "Topic Approved", updated.CurrentState)
	assert.Equal(t, "Li Lei", updated.CreatorName)
	assert.Greater(t, appended.ID, step.ID)

	loaded, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Topic Approved", loaded.CurrentState)

	steps, err := repo.Steps(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "create_topic", steps[0].ActionKey)
	assert.Equal(t, "approve_topic", steps[1].ActionKey)

	byID, err := repo.StepByID(ctx, appended.ID)
	require.NoError(t, err)
	comment, ok := byID.SubmitData.LookupString("Comments")
	assert.True(t, ok)
	assert.Equal(t, "ok", comment)

	_, _, err = repo.Transition(ctx, record.ID, approve)
	require.ErrorIs(t, err, errRejected)

	steps, err = repo.Steps(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestRecordRepository_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RecordRepository()

	_, err := repo.GetByID(ctx, 404)
	assert.True(t, persistence.IsRecordNotFound(err))

	_, _, err = repo.Transition(ctx, 404, approve)
	assert.True(t, persistence.IsRecordNotFound(err))

	_, err = repo.StepByID(ctx, 404)
	assert.True(t, persistence.IsStepNotFound(err))
}

func TestRecordRepository_ConcurrentTransitions(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RecordRepository()

	record, step := testutil.CreateTestTopic(10, "Li Lei", "Sensor Networks")
	require.NoError(t, repo.Create(ctx, record, step))

	const workers = 8

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, _, err := repo.Transition(ctx, record.ID, approve); err == nil {
				succeeded.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())

	steps, err := repo.Steps(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestRecordRepository_List(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RecordRepository()

	for _, title := range []string{"Sensor Networks", "Robot Arms", "Sensor Fusion", "100% Coverage"} {
		record, step := testutil.CreateTestTopic(10, "Li Lei", title)
		require.NoError(t, repo.Create(ctx, record, step))
	}

	other, otherStep := testutil.CreateTestTopic(11, "Han Meimei", "Compilers")
	require.NoError(t, repo.Create(ctx, other, otherStep))

	result, err := repo.List(ctx, persistence.ListRecordsOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.TotalCount)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Compilers", result.Records[0].Title)

	creator := int64(10)
	result, err = repo.List(ctx, persistence.ListRecordsOptions{CreatorID: &creator, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.TotalCount)

	result, err = repo.List(ctx, persistence.ListRecordsOptions{Keywords: []string{"SENSOR"}, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Sensor Networks", result.Records[0].Title)

	result, err = repo.List(ctx, persistence.ListRecordsOptions{Keywords: []string{"%"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalCount, "wildcards are matched literally")

	result, err = repo.List(ctx, persistence.ListRecordsOptions{Keywords: []string{"meimei"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalCount)
}

func TestRecordRepository_StepsAreAppendOnly(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)
	repo := p.RecordRepository()

	record, step := testutil.CreateTestTopic(10, "Li Lei", "Sensor Networks")
	require.NoError(t, repo.Create(ctx, record, step))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	_, err = db.ExecContext(ctx, "UPDATE workflow_steps SET action_name = 'tampered' WHERE id = $1", step.ID)
	require.Error(t, err)

	_, err = db.ExecContext(ctx, "DELETE FROM workflow_steps WHERE id = $1", step.ID)
	require.Error(t, err)
}

func TestRecordRepository_SubmitDataStoredVerbatim(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)
	repo := p.RecordRepository()

	record, step := testutil.CreateTestTopic(10, "Li Lei", "Sensor Networks")
	step.SubmitData = models.Submission{
		{Name: "Graduate Design Title", Value: "Sensor Networks"},
		{Name: "Attachment", Value: map[string]any{"size": float64(2), "name": "plan.pdf"}},
		{Name: "Graduate Design Title", Value: "Ignored duplicate"},
	}
	require.NoError(t, repo.Create(ctx, record, step))

	expected, err := json.Marshal(step.SubmitData)
	require.NoError(t, err)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	var stored string

	err = db.QueryRowContext(ctx, "SELECT submit_data::text FROM workflow_steps WHERE id = $1", step.ID).Scan(&stored)
	require.NoError(t, err)
	assert.Equal(t, string(expected), stored)

	loaded, err := repo.StepByID(ctx, step.ID)
	require.NoError(t, err)
	assert.Equal(t, step.SubmitData, loaded.SubmitData)
}
