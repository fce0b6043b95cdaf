//go:build !integration

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/repository"
)

type MockLogsRepository struct {
	mock.Mock
}

func (m *MockLogsRepository) Create(ctx context.Context, entry *repository.LogEntryDocument) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLogsRepository) CreateMany(ctx context.Context, entries []*repository.LogEntryDocument) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockLogsRepository) Query(ctx context.Context, opts repository.LogQueryOptions) ([]*repository.LogEntryDocument, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	docs, _ := args.Get(0).([]*repository.LogEntryDocument)
	return docs, args.Error(1)
}

func (m *MockLogsRepository) Count(ctx context.Context, opts repository.LogQueryOptions) (int64, error) {
	args := m.Called(ctx, opts)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

// scanAuditEntry is a representative audit record produced by a scan
// request on a scanner station.
func scanAuditEntry() *model.LogEntry {
	return &model.LogEntry{
		Level:      "info",
		Message:    "Scan processed",
		RequestID:  "req-7f3a",
		Method:     "POST",
		Path:       "/api/scan",
		StatusCode: 200,
		Duration:   12,
		IP:         "10.0.4.17",
		UserAgent:  "station-firmware/2.3",
		WorkerID:   "worker-7",
		JobID:      "job-42",
		ActionType: "scan",
		Fields:     map[string]interface{}{"outcome": "match", "box_number": 5},
	}
}

func TestNewLoggingService(t *testing.T) {
	service := NewLoggingService(new(MockLogsRepository))

	assert.NotNil(t, service)
	assert.IsType(t, &LoggingServiceImpl{}, service)
}

func TestLoggingService_CreateLog(t *testing.T) {
	tests := []struct {
		name      string
		entry     *model.LogEntry
		setupMock func(*MockLogsRepository)
		wantError bool
	}{
		{
			name:  "scan audit entry is stored",
			entry: scanAuditEntry(),
			setupMock: func(m *MockLogsRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(doc *repository.LogEntryDocument) bool {
					return doc.WorkerID == "worker-7" && doc.JobID == "job-42" && doc.ActionType == "scan"
				})).Return(nil)
			},
		},
		{
			name:  "missing ID and timestamp are assigned",
			entry: &model.LogEntry{Level: "info", Message: "Undo applied", ActionType: "undo"},
			setupMock: func(m *MockLogsRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(doc *repository.LogEntryDocument) bool {
					return !doc.ID.IsZero() && !doc.Timestamp.IsZero()
				})).Return(nil)
			},
		},
		{
			name: "provided ID is preserved",
			entry: &model.LogEntry{
				ID:      primitive.NewObjectID(),
				Level:   "warn",
				Message: "Check session conflict",
			},
			setupMock: func(m *MockLogsRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(doc *repository.LogEntryDocument) bool {
					return !doc.ID.IsZero()
				})).Return(nil)
			},
		},
		{
			name:  "repository failure propagates",
			entry: scanAuditEntry(),
			setupMock: func(m *MockLogsRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(errors.New("mongo: connection reset"))
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockLogsRepository)
			tt.setupMock(mockRepo)
			service := NewLoggingService(mockRepo)

			err := service.CreateLog(context.Background(), tt.entry)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.False(t, tt.entry.ID.IsZero())
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLoggingService_CreateLogs(t *testing.T) {
	tests := []struct {
		name      string
		entries   []*model.LogEntry
		setupMock func(*MockLogsRepository)
		wantError bool
	}{
		{
			name: "flushes a batch of audit entries",
			entries: []*model.LogEntry{
				{Level: "info", Message: "Scan processed", ActionType: "scan", WorkerID: "worker-7"},
				{Level: "info", Message: "Put-aside drained", ActionType: "drain", JobID: "job-42"},
				{Level: "error", Message: "Unknown barcode", ActionType: "scan", WorkerID: "worker-3"},
			},
			setupMock: func(m *MockLogsRepository) {
				m.On("CreateMany", mock.Anything, mock.MatchedBy(func(docs []*repository.LogEntryDocument) bool {
					return len(docs) == 3 && docs[1].ActionType == "drain"
				})).Return(nil)
			},
		},
		{
			name:      "empty batch touches nothing",
			entries:   []*model.LogEntry{},
			setupMock: func(m *MockLogsRepository) {},
		},
		{
			name: "repository failure propagates",
			entries: []*model.LogEntry{
				{Level: "info", Message: "Scan processed"},
			},
			setupMock: func(m *MockLogsRepository) {
				m.On("CreateMany", mock.Anything, mock.Anything).Return(errors.New("mongo: connection reset"))
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockLogsRepository)
			tt.setupMock(mockRepo)
			service := NewLoggingService(mockRepo)

			err := service.CreateLogs(context.Background(), tt.entries)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLoggingService_QueryLogs(t *testing.T) {
	tests := []struct {
		name      string
		opts      model.LogQueryOptions
		setupMock func(*MockLogsRepository)
		wantCount int
		wantError bool
	}{
		{
			name: "by request ID",
			opts: model.LogQueryOptions{RequestID: "req-7f3a"},
			setupMock: func(m *MockLogsRepository) {
				docs := []*repository.LogEntryDocument{
					{ID: primitive.NewObjectID(), RequestID: "req-7f3a", Path: "/api/scan", ActionType: "scan"},
				}
				m.On("Query", mock.Anything, mock.MatchedBy(func(opts repository.LogQueryOptions) bool {
					return opts.RequestID == "req-7f3a"
				})).Return(docs, nil)
			},
			wantCount: 1,
		},
		{
			name: "by path",
			opts: model.LogQueryOptions{Path: "/api/undo"},
			setupMock: func(m *MockLogsRepository) {
				docs := []*repository.LogEntryDocument{
					{ID: primitive.NewObjectID(), Path: "/api/undo", ActionType: "undo"},
					{ID: primitive.NewObjectID(), Path: "/api/undo", ActionType: "undo"},
				}
				m.On("Query", mock.Anything, mock.MatchedBy(func(opts repository.LogQueryOptions) bool {
					return opts.Path == "/api/undo"
				})).Return(docs, nil)
			},
			wantCount: 2,
		},
		{
			name: "time window with no matches",
			opts: model.LogQueryOptions{
				StartTime: func() *time.Time { t := time.Now().Add(-time.Hour); return &t }(),
				EndTime:   func() *time.Time { t := time.Now(); return &t }(),
			},
			setupMock: func(m *MockLogsRepository) {
				m.On("Query", mock.Anything, mock.Anything).Return([]*repository.LogEntryDocument{}, nil)
			},
		},
		{
			name: "repository failure propagates",
			opts: model.LogQueryOptions{},
			setupMock: func(m *MockLogsRepository) {
				m.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("mongo: cursor timeout"))
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockLogsRepository)
			tt.setupMock(mockRepo)
			service := NewLoggingService(mockRepo)

			entries, err := service.QueryLogs(context.Background(), tt.opts)

			if tt.wantError {
				assert.Error(t, err)
				assert.Nil(t, entries)
			} else {
				assert.NoError(t, err)
				assert.Len(t, entries, tt.wantCount)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLoggingService_CountLogs(t *testing.T) {
	tests := []struct {
		name      string
		opts      model.LogQueryOptions
		setupMock func(*MockLogsRepository)
		wantCount int64
		wantError bool
	}{
		{
			name: "all entries",
			opts: model.LogQueryOptions{},
			setupMock: func(m *MockLogsRepository) {
				m.On("Count", mock.Anything, mock.Anything).Return(int64(10), nil)
			},
			wantCount: 10,
		},
		{
			name: "error-level entries only",
			opts: model.LogQueryOptions{Level: "error"},
			setupMock: func(m *MockLogsRepository) {
				m.On("Count", mock.Anything, mock.MatchedBy(func(opts repository.LogQueryOptions) bool {
					return opts.Level == "error"
				})).Return(int64(5), nil)
			},
			wantCount: 5,
		},
		{
			name: "repository failure propagates",
			opts: model.LogQueryOptions{},
			setupMock: func(m *MockLogsRepository) {
				m.On("Count", mock.Anything, mock.Anything).Return(int64(0), errors.New("mongo: connection reset"))
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockLogsRepository)
			tt.setupMock(mockRepo)
			service := NewLoggingService(mockRepo)

			count, err := service.CountLogs(context.Background(), tt.opts)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantCount, count)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLoggingService_conversion(t *testing.T) {
	service := &LoggingServiceImpl{}

	t.Run("round trip keeps worker and job context", func(t *testing.T) {
		entry := scanAuditEntry()
		entry.Timestamp = time.Now().Add(-time.Minute)

		doc := service.modelToDocument(entry)
		assert.Equal(t, "worker-7", doc.WorkerID)
		assert.Equal(t, "job-42", doc.JobID)
		assert.Equal(t, "scan", doc.ActionType)
		assert.Equal(t, "/api/scan", doc.Path)
		assert.Equal(t, entry.Timestamp, doc.Timestamp)
		assert.Equal(t, entry.Fields, doc.Fields)

		back := service.documentToModel(doc)
		assert.Equal(t, *entry, back)
	})

	t.Run("zero ID and timestamp are filled in", func(t *testing.T) {
		doc := service.modelToDocument(&model.LogEntry{Level: "info", Message: "Session paused"})
		assert.False(t, doc.ID.IsZero())
		assert.False(t, doc.Timestamp.IsZero())
	})

	t.Run("existing ID is kept", func(t *testing.T) {
		id := primitive.NewObjectID()
		doc := service.modelToDocument(&model.LogEntry{ID: id, Message: "Drain completed"})
		assert.Equal(t, id, doc.ID)
	})
}
