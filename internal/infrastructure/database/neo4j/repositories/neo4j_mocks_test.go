package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	infraNeo4j "github.com/medimatch/medimatch/internal/infrastructure/database/neo4j"
)

// MockInfraDriver implements infraNeo4j.DriverInterface. ExecuteRead and
// ExecuteWrite run the supplied work against a MockInfraTransaction so the
// repository's Cypher path is exercised end to end.
type MockInfraDriver struct {
	mock.Mock
	Tx *MockInfraTransaction
}

func (m *MockInfraDriver) ExecuteRead(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	args := m.Called(ctx)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return work(m.Tx)
}

func (m *MockInfraDriver) ExecuteWrite(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	args := m.Called(ctx)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return work(m.Tx)
}

func (m *MockInfraDriver) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockInfraDriver) Close() error {
	return m.Called().Error(0)
}

// MockInfraTransaction implements infraNeo4j.Transaction.
type MockInfraTransaction struct {
	mock.Mock
}

func (m *MockInfraTransaction) Run(ctx context.Context, cypher string, params map[string]any) (infraNeo4j.Result, error) {
	args := m.Called(ctx, cypher, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(infraNeo4j.Result), args.Error(1)
}

// MockResult implements infraNeo4j.Result over a fixed record slice.
type MockResult struct {
	Records []*neo4j.Record
	ErrVal  error
	current int
}

func (m *MockResult) Next(ctx context.Context) bool {
	if m.current < len(m.Records) {
		m.current++
		return true
	}
	return false
}

func (m *MockResult) Record() *neo4j.Record {
	return m.Records[m.current-1]
}

func (m *MockResult) Err() error { return m.ErrVal }

func newMockDriver() *MockInfraDriver {
	return &MockInfraDriver{Tx: new(MockInfraTransaction)}
}

func newMockResult(records ...*neo4j.Record) *MockResult {
	return &MockResult{Records: records}
}

func tripleRecord(head, relation, tail string) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"head", "relation", "tail"},
		Values: []any{head, relation, tail},
	}
}

func nameRecord(name string) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"name"}, Values: []any{name}}
}
