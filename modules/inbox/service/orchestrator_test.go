package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hweber/secondbrain/internal/platform/logger"
	agentmodel "github.com/hweber/secondbrain/modules/agents/model"
	hitlmodel "github.com/hweber/secondbrain/modules/hitl/model"
	"github.com/hweber/secondbrain/modules/inbox/matcher"
	"github.com/hweber/secondbrain/modules/inbox/repository"
	notifymodel "github.com/hweber/secondbrain/modules/notify/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStore implements Store
type MockStore struct {
	InsertRecordFunc              func(ctx context.Context, table string, data map[string]interface{}) (int64, error)
	UpdateRecordFunc              func(ctx context.Context, table string, id int64, changes map[string]interface{}) error
	CompleteFunc                  func(ctx context.Context, table string, id int64) error
	DeleteFunc                    func(ctx context.Context, table string, id int64) error
	SetLinkFunc                   func(ctx context.Context, table string, id int64, column string, target int64) error
	FindPersonIDByNameFunc        func(ctx context.Context, name string) (int64, error)
	CreatePersonStubFunc          func(ctx context.Context, name string) (int64, error)
	FindProjectIDByPartialNameFunc func(ctx context.Context, name string) (int64, error)
	RunQueryFunc                  func(ctx context.Context, table, searchType, searchValue string) ([]map[string]interface{}, error)
}

func (m *MockStore) InsertRecord(ctx context.Context, table string, data map[string]interface{}) (int64, error) {
	if m.InsertRecordFunc != nil {
		return m.InsertRecordFunc(ctx, table, data)
	}
	return 1, nil
}

func (m *MockStore) UpdateRecord(ctx context.Context, table string, id int64, changes map[string]interface{}) error {
	if m.UpdateRecordFunc != nil {
		return m.UpdateRecordFunc(ctx, table, id, changes)
	}
	return nil
}

func (m *MockStore) Complete(ctx context.Context, table string, id int64) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, table, id)
	}
	return nil
}

func (m *MockStore) Delete(ctx context.Context, table string, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, table, id)
	}
	return nil
}

func (m *MockStore) SetLink(ctx context.Context, table string, id int64, column string, target int64) error {
	if m.SetLinkFunc != nil {
		return m.SetLinkFunc(ctx, table, id, column, target)
	}
	return nil
}

func (m *MockStore) FindPersonIDByName(ctx context.Context, name string) (int64, error) {
	if m.FindPersonIDByNameFunc != nil {
		return m.FindPersonIDByNameFunc(ctx, name)
	}
	return 0, nil
}

func (m *MockStore) CreatePersonStub(ctx context.Context, name string) (int64, error) {
	if m.CreatePersonStubFunc != nil {
		return m.CreatePersonStubFunc(ctx, name)
	}
	return 0, nil
}

func (m *MockStore) FindProjectIDByPartialName(ctx context.Context, name string) (int64, error) {
	if m.FindProjectIDByPartialNameFunc != nil {
		return m.FindProjectIDByPartialNameFunc(ctx, name)
	}
	return 0, nil
}

func (m *MockStore) RunQuery(ctx context.Context, table, searchType, searchValue string) ([]map[string]interface{}, error) {
	if m.RunQueryFunc != nil {
		return m.RunQueryFunc(ctx, table, searchType, searchValue)
	}
	return nil, nil
}

// MockAudit implements AuditLog
type MockAudit struct {
	Entries []repository.LogEntry
}

func (m *MockAudit) Write(ctx context.Context, entry repository.LogEntry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}

// MockSearcher implements Searcher
type MockSearcher struct {
	Matches []matcher.Match
}

func (m *MockSearcher) Keywords(text string) []string {
	return []string{"stub"}
}

func (m *MockSearcher) Search(ctx context.Context, keywords []string) ([]matcher.Match, error) {
	return m.Matches, nil
}

// MockClarifier implements Clarifier
type MockClarifier struct {
	NextID    int64
	Requests  map[int64]*hitlmodel.HumanRequest
	Responses []string
}

func newMockClarifier() *MockClarifier {
	return &MockClarifier{NextID: 1, Requests: map[int64]*hitlmodel.HumanRequest{}}
}

func (m *MockClarifier) CreateRequest(ctx context.Context, requestType, question string, options []string, reqContext json.RawMessage) (int64, error) {
	id := m.NextID
	m.NextID++
	m.Requests[id] = &hitlmodel.HumanRequest{
		ID:          id,
		RequestType: requestType,
		Question:    question,
		Options:     options,
		Status:      hitlmodel.StatusPending,
		Context:     reqContext,
	}
	return id, nil
}

func (m *MockClarifier) Get(ctx context.Context, id int64) (*hitlmodel.HumanRequest, error) {
	req, ok := m.Requests[id]
	if !ok {
		return nil, hitlmodel.ErrRequestNotFound
	}
	return req, nil
}

func (m *MockClarifier) Respond(ctx context.Context, id int64, response string, approved *bool) error {
	req, ok := m.Requests[id]
	if !ok {
		return hitlmodel.ErrRequestNotFound
	}
	if req.Status != hitlmodel.StatusPending {
		return hitlmodel.ErrTerminalRequest
	}
	req.Status = hitlmodel.StatusAnswered
	req.Response = &response
	m.Responses = append(m.Responses, response)
	return nil
}

// MockNotifier implements Notifier
type MockNotifier struct {
	Sent []string
}

func (m *MockNotifier) NotifyChannel(ctx context.Context, channel notifymodel.ChannelContext, text string) notifymodel.NotificationResult {
	m.Sent = append(m.Sent, text)
	return notifymodel.NotificationResult{Success: true, Channel: channel.Channel}
}

// MockAgent implements AgentRunner
type MockAgent struct {
	ExecuteFunc func(ctx context.Context, templateContext map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError)
	Calls       []map[string]interface{}
}

func (m *MockAgent) Execute(ctx context.Context, templateContext map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
	m.Calls = append(m.Calls, templateContext)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, templateContext)
	}
	return nil, &agentmodel.AgentError{Error: "not configured", ErrorCode: agentmodel.CodeAgentError}
}

type fixture struct {
	store     *MockStore
	audit     *MockAudit
	search    *MockSearcher
	hitl      *MockClarifier
	notifier  *MockNotifier
	intent    *MockAgent
	structure *MockAgent
	classify  *MockAgent
	query     *MockAgent
	edit      *MockAgent
	orch      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	f := &fixture{
		store:     &MockStore{},
		audit:     &MockAudit{},
		search:    &MockSearcher{},
		hitl:      newMockClarifier(),
		notifier:  &MockNotifier{},
		intent:    &MockAgent{},
		structure: &MockAgent{},
		classify:  &MockAgent{},
		query:     &MockAgent{},
		edit:      &MockAgent{},
	}
	f.orch = NewOrchestrator(
		f.store, f.audit, f.search, f.hitl, f.notifier,
		Agents{Intent: f.intent, Structure: f.structure, QueryClassifier: f.classify, Query: f.query, Edit: f.edit},
		0.3, time.UTC, log,
	)
	return f
}

func webChannel() notifymodel.ChannelContext {
	return notifymodel.ChannelContext{Channel: notifymodel.ChannelWeb, ChannelID: "session-1"}
}

func TestProcessCreateTaskWithLinkedPerson(t *testing.T) {
	f := newFixture(t)

	f.intent.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"intent":     "create",
			"category":   "tasks",
			"confidence": 0.9,
		}, nil
	}
	f.structure.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		// the preprocessor context must reach the structure agent
		assert.Equal(t, "tasks", tc["category"])
		assert.NotNil(t, tc["resolved_due_date"])
		return map[string]interface{}{
			"data": map[string]interface{}{
				"title":    "Rechnung an Schmidt schicken",
				"due_date": tc["resolved_due_date"],
				"linked_entities": map[string]interface{}{
					"person_name": "Schmidt",
				},
			},
		}, nil
	}

	var insertedTable string
	var insertedData map[string]interface{}
	f.store.InsertRecordFunc = func(ctx context.Context, table string, data map[string]interface{}) (int64, error) {
		insertedTable = table
		insertedData = data
		return 42, nil
	}
	var createdPerson string
	f.store.CreatePersonStubFunc = func(ctx context.Context, name string) (int64, error) {
		createdPerson = name
		return 7, nil
	}
	var linkColumn string
	var linkTarget int64
	f.store.SetLinkFunc = func(ctx context.Context, table string, id int64, column string, target int64) error {
		linkColumn = column
		linkTarget = target
		return nil
	}

	result := f.orch.Process(context.Background(), "Rechnung an Schmidt schicken bis Freitag", webChannel(), false, nil)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "create", result.Intent)
	assert.Equal(t, int64(42), result.RecordID)
	assert.Equal(t, "tasks", insertedTable)
	assert.Contains(t, insertedData["title"], "Rechnung")
	assert.NotContains(t, insertedData, "linked_entities")

	// Schmidt did not exist, so a person stub was created and linked
	assert.Equal(t, "Schmidt", createdPerson)
	assert.Equal(t, "person_id", linkColumn)
	assert.Equal(t, int64(7), linkTarget)

	// audit trail
	require.Len(t, f.audit.Entries, 1)
	assert.Equal(t, "create", f.audit.Entries[0].Intent)
	assert.Equal(t, "tasks", f.audit.Entries[0].TargetTable)
	assert.False(t, f.audit.Entries[0].NeedsReview)

	// success notification went to the origin channel
	assert.Len(t, f.notifier.Sent, 1)
}

func TestProcessCompleteViaFuzzyMatch(t *testing.T) {
	f := newFixture(t)

	f.search.Matches = []matcher.Match{
		{Table: "projects", ID: 3, Data: map[string]interface{}{"name": "Reibekuchenofen"}, Score: 1.0},
	}
	f.intent.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"intent":     "complete",
			"target":     map[string]interface{}{"table": "projects", "id": float64(3)},
			"confidence": 0.95,
		}, nil
	}

	var completedTable string
	var completedID int64
	f.store.CompleteFunc = func(ctx context.Context, table string, id int64) error {
		completedTable = table
		completedID = id
		return nil
	}

	result := f.orch.Process(context.Background(), "Reibekuchenofen ist fertig", webChannel(), false, nil)

	require.True(t, result.Success)
	assert.Equal(t, "complete", result.Intent)
	assert.Equal(t, "projects", completedTable)
	assert.Equal(t, int64(3), completedID)

	// the structure agent is never consulted on complete
	assert.Empty(t, f.structure.Calls)
}

func TestProcessUnclearCreatesClarification(t *testing.T) {
	f := newFixture(t)

	f.intent.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"intent":     "unclear",
			"question":   "Aufgabe oder Idee?",
			"confidence": 0.2,
			"options": []interface{}{
				map[string]interface{}{"label": "Neue Aufgabe", "table": "tasks", "intent": "create", "category": "tasks"},
				map[string]interface{}{"label": "Neue Idee", "table": "ideas", "intent": "create", "category": "ideas"},
			},
		}, nil
	}

	result := f.orch.Process(context.Background(), "vielleicht was mit Garten", webChannel(), false, nil)

	require.True(t, result.Success)
	assert.True(t, result.NeedsClarification)
	assert.Equal(t, "Aufgabe oder Idee?", result.Question)
	assert.Len(t, result.Options, 2)
	assert.NotZero(t, result.RequestID)

	// a pending request exists
	req := f.hitl.Requests[result.RequestID]
	require.NotNil(t, req)
	assert.Equal(t, hitlmodel.StatusPending, req.Status)

	// the question was pushed to the origin channel
	require.Len(t, f.notifier.Sent, 1)
	assert.Contains(t, f.notifier.Sent[0], "Aufgabe oder Idee?")
}

func TestRespondToClarificationResumesPipeline(t *testing.T) {
	f := newFixture(t)

	f.intent.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"intent":     "unclear",
			"question":   "Was genau?",
			"confidence": 0.1,
			"options": []interface{}{
				map[string]interface{}{"label": "Neue Idee", "table": "ideas", "intent": "create", "category": "ideas"},
			},
		}, nil
	}
	f.structure.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"data": map[string]interface{}{"name": "Gartenprojekt"},
		}, nil
	}

	first := f.orch.Process(context.Background(), "was mit Garten", webChannel(), false, nil)
	require.True(t, first.NeedsClarification)

	second := f.orch.RespondToClarification(context.Background(), first.RequestID, "1")
	require.True(t, second.Success, "error: %s", second.Error)
	assert.Equal(t, "create", second.Intent)
	assert.Equal(t, "ideas", second.Category)

	// the request reached a terminal status
	assert.Equal(t, hitlmodel.StatusAnswered, f.hitl.Requests[first.RequestID].Status)
}

func TestRespondToClarificationTerminalRequest(t *testing.T) {
	f := newFixture(t)

	contextJSON, _ := json.Marshal(clarificationContext{Text: "x", Channel: webChannel()})
	f.hitl.Requests[9] = &hitlmodel.HumanRequest{
		ID:      9,
		Status:  hitlmodel.StatusAnswered,
		Context: contextJSON,
	}

	result := f.orch.RespondToClarification(context.Background(), 9, "1")
	assert.False(t, result.Success)
	assert.Equal(t, hitlmodel.ErrTerminalRequest.Error(), result.Error)
}

func TestProcessEditCriticalNeedsConfirmation(t *testing.T) {
	f := newFixture(t)

	f.edit.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"action": map[string]interface{}{
				"operation":   "update",
				"table":       "people",
				"id":          float64(4),
				"field":       "phone",
				"new_value":   "+49 30 999",
				"target_name": "Anna Schmidt",
			},
		}, nil
	}

	var updated bool
	f.store.UpdateRecordFunc = func(ctx context.Context, table string, id int64, changes map[string]interface{}) error {
		updated = true
		return nil
	}

	result := f.orch.Process(context.Background(), "! Telefonnummer von Anna ändern", webChannel(), false, nil)

	require.True(t, result.Success)
	assert.True(t, result.NeedsConfirmation)
	assert.NotEmpty(t, result.ConfirmationQuestion)
	assert.NotNil(t, result.PendingAction)
	assert.False(t, updated, "critical edit must not execute without confirmation")

	// replay with confirmation executes
	confirmed := f.orch.Process(context.Background(), "! Telefonnummer von Anna ändern", webChannel(), true, result.PendingAction)
	require.True(t, confirmed.Success)
	assert.True(t, updated)
}

func TestProcessEditNonCriticalExecutesImmediately(t *testing.T) {
	f := newFixture(t)

	f.edit.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"action": map[string]interface{}{
				"operation": "update",
				"table":     "tasks",
				"id":        float64(5),
				"field":     "status",
				"new_value": "next",
			},
		}, nil
	}

	var gotChanges map[string]interface{}
	f.store.UpdateRecordFunc = func(ctx context.Context, table string, id int64, changes map[string]interface{}) error {
		gotChanges = changes
		return nil
	}

	result := f.orch.Process(context.Background(), "! Task 5 auf next", webChannel(), false, nil)

	require.True(t, result.Success)
	assert.False(t, result.NeedsConfirmation)
	assert.Equal(t, map[string]interface{}{"status": "next"}, gotChanges)
}

func TestProcessEditDeleteIsCritical(t *testing.T) {
	f := newFixture(t)

	f.edit.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"action": map[string]interface{}{
				"operation":   "delete",
				"table":       "tasks",
				"id":          float64(8),
				"target_name": "Altes Todo",
			},
		}, nil
	}

	result := f.orch.Process(context.Background(), "! Altes Todo löschen", webChannel(), false, nil)
	require.True(t, result.Success)
	assert.True(t, result.NeedsConfirmation)
	assert.Contains(t, result.ConfirmationQuestion, "gelöscht")
}

func TestProcessQueryPath(t *testing.T) {
	f := newFixture(t)

	f.classify.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		assert.Equal(t, "wie ist die Email von Tim", tc["question"])
		return map[string]interface{}{
			"table":        "people",
			"search_type":  "name",
			"search_value": "Tim",
		}, nil
	}

	f.store.RunQueryFunc = func(ctx context.Context, table, searchType, searchValue string) ([]map[string]interface{}, error) {
		assert.Equal(t, "people", table)
		assert.Equal(t, "name", searchType)
		return []map[string]interface{}{{"name": "Tim", "email": "tim@example.com"}}, nil
	}

	f.query.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{"answer": "Tims Email ist tim@example.com."}, nil
	}

	result := f.orch.Process(context.Background(), "? wie ist die Email von Tim", webChannel(), false, nil)

	require.True(t, result.Success)
	assert.Equal(t, "query", result.Intent)
	assert.Equal(t, "Tims Email ist tim@example.com.", result.Message)
	assert.NotNil(t, result.Data)
}

func TestProcessIntentAgentFailure(t *testing.T) {
	f := newFixture(t)

	f.intent.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return nil, &agentmodel.AgentError{
			Error:        "Agent execution failed",
			ErrorCode:    agentmodel.CodeAgentError,
			ErrorMessage: "provider down",
			AgentName:    "intent_agent",
		}
	}

	result := f.orch.Process(context.Background(), "irgendwas", webChannel(), false, nil)

	assert.False(t, result.Success)
	assert.Equal(t, StageIntentRecognition, result.Stage)
	assert.Equal(t, "provider down", result.Error)
}

func TestProcessLowConfidenceTriggersClarification(t *testing.T) {
	f := newFixture(t)

	f.intent.ExecuteFunc = func(ctx context.Context, tc map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError) {
		return map[string]interface{}{
			"intent":     "create",
			"category":   "tasks",
			"confidence": 0.1,
			"question":   "Meintest du eine Aufgabe?",
		}, nil
	}

	result := f.orch.Process(context.Background(), "hmm", webChannel(), false, nil)
	require.True(t, result.Success)
	assert.True(t, result.NeedsClarification)
}
