package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"

	"github.com/agentcore/orchestrator/internal/config"
	"github.com/agentcore/orchestrator/internal/model"
)

func sampleCheckpoint() *model.Checkpoint {
	return &model.Checkpoint{
		ID:                 "cp-1",
		ThreadID:           "thread-1",
		ParentCheckpointID: "cp-0",
		MessageCount:       2,
		State:              &model.GraphState{ConversationID: "thread-1", Question: "hi"},
		CreatedAt:          time.Now(),
	}
}

func TestCheckpointStore_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	cp := sampleCheckpoint()
	stateJSON, _ := json.Marshal(cp.State)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkpoints")).
		WithArgs(cp.ID, cp.ThreadID, cp.ParentCheckpointID, cp.MessageCount, stateJSON, cp.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, s.Put(context.Background(), cp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStore_Put_RootCheckpointHasNilParent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	cp := sampleCheckpoint()
	cp.ParentCheckpointID = ""
	stateJSON, _ := json.Marshal(cp.State)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkpoints")).
		WithArgs(cp.ID, cp.ThreadID, nil, cp.MessageCount, stateJSON, cp.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, s.Put(context.Background(), cp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	cp := sampleCheckpoint()
	stateJSON, _ := json.Marshal(cp.State)

	rows := pgxmock.NewRows([]string{"id", "thread_id", "parent_checkpoint_id", "message_count", "state", "created_at"}).
		AddRow(cp.ID, cp.ThreadID, cp.ParentCheckpointID, cp.MessageCount, stateJSON, cp.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE thread_id = $1 AND id = $2")).
		WithArgs(cp.ThreadID, cp.ID).
		WillReturnRows(rows)

	loaded, err := s.Get(context.Background(), cp.ThreadID, cp.ID)
	assert.NoError(t, err)
	assert.Equal(t, cp.ID, loaded.ID)
	assert.Equal(t, cp.MessageCount, loaded.MessageCount)
	assert.Equal(t, "hi", loaded.State.Question)
}

func TestCheckpointStore_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE thread_id = $1 AND id = $2")).
		WithArgs("thread-1", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = s.Get(context.Background(), "thread-1", "missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint not found")
}

func TestCheckpointStore_GetLatest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	cp := sampleCheckpoint()
	stateJSON, _ := json.Marshal(cp.State)

	rows := pgxmock.NewRows([]string{"id", "thread_id", "parent_checkpoint_id", "message_count", "state", "created_at"}).
		AddRow(cp.ID, cp.ThreadID, cp.ParentCheckpointID, cp.MessageCount, stateJSON, cp.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 1")).
		WithArgs(cp.ThreadID).
		WillReturnRows(rows)

	loaded, err := s.GetLatest(context.Background(), cp.ThreadID)
	assert.NoError(t, err)
	assert.Equal(t, cp.ID, loaded.ID)
}

func TestCheckpointStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	threadID := "thread-1"
	now := time.Now()
	state := &model.GraphState{ConversationID: threadID}
	stateJSON, _ := json.Marshal(state)

	rows := pgxmock.NewRows([]string{"id", "thread_id", "parent_checkpoint_id", "message_count", "state", "created_at"}).
		AddRow("cp-1", threadID, "", 1, stateJSON, now).
		AddRow("cp-2", threadID, "cp-1", 2, stateJSON, now.Add(time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE thread_id = $1")).
		WithArgs(threadID).
		WillReturnRows(rows)

	loaded, err := s.List(context.Background(), threadID)
	assert.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "cp-1", loaded[0].ID)
	assert.Equal(t, "cp-2", loaded[1].ID)
	assert.Equal(t, "cp-1", loaded[1].ParentCheckpointID)
}

func TestCheckpointStore_List_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	dbErr := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE thread_id = $1")).
		WithArgs("thread-1").
		WillReturnError(dbErr)

	_, err = s.List(context.Background(), "thread-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list checkpoints")
}

func TestCheckpointStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "checkpoints")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS checkpoints")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, s.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPool_DefaultTableName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "")
	assert.Equal(t, "checkpoints", s.tableName)
}

func TestNew_InvalidConnectionString(t *testing.T) {
	_, err := New(context.Background(), config.Config{}, Options{ConnString: "not-a-url"})
	assert.Error(t, err)
}
