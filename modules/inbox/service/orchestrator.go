package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hweber/secondbrain/internal/platform/logger"
	agentmodel "github.com/hweber/secondbrain/modules/agents/model"
	hitlmodel "github.com/hweber/secondbrain/modules/hitl/model"
	"github.com/hweber/secondbrain/modules/inbox/matcher"
	"github.com/hweber/secondbrain/modules/inbox/prefix"
	"github.com/hweber/secondbrain/modules/inbox/preprocess"
	"github.com/hweber/secondbrain/modules/inbox/repository"
	notifymodel "github.com/hweber/secondbrain/modules/notify/model"
	"go.uber.org/zap"
)

// Intents recognised by the pipeline
const (
	IntentCreate   = "create"
	IntentUpdate   = "update"
	IntentComplete = "complete"
	IntentDelete   = "delete"
	IntentQuery    = "query"
	IntentEdit     = "edit"
	IntentUnclear  = "unclear"
)

// Pipeline stages reported in structured failures
const (
	StageIntentRecognition = "intent_recognition"
	StageStructuring       = "structuring"
	StageExecution         = "execution"
	StageQuery             = "query"
	StageEdit              = "edit"
	StageClarification     = "clarification"
)

// AgentRunner is the slice of the configurable agent the pipeline needs
type AgentRunner interface {
	Execute(ctx context.Context, templateContext map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError)
}

// Store is the pipeline's whitelisted mutation surface
type Store interface {
	InsertRecord(ctx context.Context, table string, data map[string]interface{}) (int64, error)
	UpdateRecord(ctx context.Context, table string, id int64, changes map[string]interface{}) error
	Complete(ctx context.Context, table string, id int64) error
	Delete(ctx context.Context, table string, id int64) error
	SetLink(ctx context.Context, table string, id int64, column string, target int64) error
	FindPersonIDByName(ctx context.Context, name string) (int64, error)
	CreatePersonStub(ctx context.Context, name string) (int64, error)
	FindProjectIDByPartialName(ctx context.Context, name string) (int64, error)
	RunQuery(ctx context.Context, table, searchType, searchValue string) ([]map[string]interface{}, error)
}

// Searcher extracts keywords and runs the fuzzy entity search
type Searcher interface {
	Keywords(text string) []string
	Search(ctx context.Context, keywords []string) ([]matcher.Match, error)
}

// AuditLog writes the inbox audit trail
type AuditLog interface {
	Write(ctx context.Context, entry repository.LogEntry) error
}

// Clarifier is the human-in-the-loop surface the pipeline needs
type Clarifier interface {
	CreateRequest(ctx context.Context, requestType, question string, options []string, reqContext json.RawMessage) (int64, error)
	Get(ctx context.Context, id int64) (*hitlmodel.HumanRequest, error)
	Respond(ctx context.Context, id int64, response string, approved *bool) error
}

// Notifier routes responses back to the originating channel
type Notifier interface {
	NotifyChannel(ctx context.Context, channel notifymodel.ChannelContext, text string) notifymodel.NotificationResult
}

// Agents bundles the specialised agents the pipeline coordinates
type Agents struct {
	Intent          AgentRunner
	Structure       AgentRunner
	QueryClassifier AgentRunner
	Query           AgentRunner
	Edit            AgentRunner
}

// Result is the pipeline outcome returned to the ingress channel
type Result struct {
	Success              bool                   `json:"success"`
	Intent               string                 `json:"intent,omitempty"`
	Category             string                 `json:"category,omitempty"`
	RecordID             int64                  `json:"record_id,omitempty"`
	Target               map[string]interface{} `json:"target,omitempty"`
	Message              string                 `json:"message,omitempty"`
	Data                 interface{}            `json:"data,omitempty"`
	NeedsClarification   bool                   `json:"needs_clarification,omitempty"`
	Question             string                 `json:"question,omitempty"`
	Options              []string               `json:"options,omitempty"`
	RequestID            int64                  `json:"request_id,omitempty"`
	NeedsConfirmation    bool                   `json:"needs_confirmation,omitempty"`
	ConfirmationQuestion string                 `json:"confirmation_question,omitempty"`
	PendingAction        map[string]interface{} `json:"pending_action,omitempty"`
	Error                string                 `json:"error,omitempty"`
	Stage                string                 `json:"stage,omitempty"`
}

// criticalPeopleFields force a confirmation round before an edit
var criticalPeopleFields = map[string]bool{
	"name": true, "first_name": true, "last_name": true,
	"phone": true, "email": true, "context": true,
}

// clarificationContext is persisted with each HumanRequest so the pipeline
// can resume after the user picks an option
type clarificationContext struct {
	Text    string                     `json:"text"`
	Channel notifymodel.ChannelContext `json:"channel"`
	Options []map[string]interface{}   `json:"options"`
}

// Orchestrator coordinates prefix routing, matching, classification,
// structuring, persistence, clarification and notification.
type Orchestrator struct {
	store    Store
	audit    AuditLog
	search   Searcher
	hitl     Clarifier
	notifier Notifier
	agents   Agents
	log      *logger.Logger

	confidenceThreshold float64
	location            *time.Location
	now                 func() time.Time
}

// NewOrchestrator wires the pipeline
func NewOrchestrator(
	store Store,
	audit AuditLog,
	search Searcher,
	hitl Clarifier,
	notifier Notifier,
	agents Agents,
	confidenceThreshold float64,
	location *time.Location,
	log *logger.Logger,
) *Orchestrator {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.3
	}
	if location == nil {
		location = time.UTC
	}
	return &Orchestrator{
		store:               store,
		audit:               audit,
		search:              search,
		hitl:                hitl,
		notifier:            notifier,
		agents:              agents,
		log:                 log,
		confidenceThreshold: confidenceThreshold,
		location:            location,
		now:                 time.Now,
	}
}

// Process is the pipeline entry point
func (o *Orchestrator) Process(ctx context.Context, text string, channel notifymodel.ChannelContext, confirmed bool, pendingAction map[string]interface{}) Result {
	parsed := prefix.Parse(text)

	switch parsed.Type {
	case prefix.TypeQuery:
		return o.handleQuery(ctx, parsed.Text)
	case prefix.TypeEdit:
		return o.handleEdit(ctx, parsed.Text, channel, confirmed, pendingAction)
	default:
		return o.handleCreate(ctx, parsed.Text, channel)
	}
}

// --- query path ---

func (o *Orchestrator) handleQuery(ctx context.Context, question string) Result {
	if strings.TrimSpace(question) == "" {
		return Result{Success: false, Intent: IntentQuery, Error: "empty question", Stage: StageQuery}
	}

	today := o.now().In(o.location).Format("2006-01-02")

	classified, agentErr := o.agents.QueryClassifier.Execute(ctx, map[string]interface{}{
		"question": question,
		"today":    today,
	})
	if agentErr != nil {
		return Result{Success: false, Intent: IntentQuery, Error: agentErr.ErrorMessage, Stage: StageQuery}
	}

	table := getString(classified, "table")
	searchType := getString(classified, "search_type")
	searchValue := getString(classified, "search_value")
	if searchType == "" {
		searchType = repository.SearchAll
	}

	rows, err := o.store.RunQuery(ctx, table, searchType, searchValue)
	if err != nil {
		return Result{Success: false, Intent: IntentQuery, Error: err.Error(), Stage: StageQuery}
	}

	rowsJSON, _ := json.Marshal(rows)
	answer, agentErr := o.agents.Query.Execute(ctx, map[string]interface{}{
		"question": question,
		"rows":     string(rowsJSON),
		"today":    today,
	})
	if agentErr != nil {
		return Result{Success: false, Intent: IntentQuery, Error: agentErr.ErrorMessage, Stage: StageQuery}
	}

	message := getString(answer, "answer")
	if message == "" {
		message = "Keine Daten gefunden."
	}

	return Result{Success: true, Intent: IntentQuery, Message: message, Data: rows}
}

// --- edit path ---

func (o *Orchestrator) handleEdit(ctx context.Context, instruction string, channel notifymodel.ChannelContext, confirmed bool, pendingAction map[string]interface{}) Result {
	if confirmed && pendingAction != nil {
		return o.executeEditAction(ctx, instruction, channel, pendingAction)
	}

	if strings.TrimSpace(instruction) == "" {
		return Result{Success: false, Intent: IntentEdit, Error: "empty instruction", Stage: StageEdit}
	}

	today := o.now().In(o.location).Format("2006-01-02")
	parsed, agentErr := o.agents.Edit.Execute(ctx, map[string]interface{}{
		"instruction": instruction,
		"today":       today,
	})
	if agentErr != nil {
		return Result{Success: false, Intent: IntentEdit, Error: agentErr.ErrorMessage, Stage: StageEdit}
	}

	action, _ := parsed["action"].(map[string]interface{})
	if action == nil {
		return Result{Success: false, Intent: IntentEdit, Error: "no action recognised", Stage: StageEdit}
	}

	table := getString(action, "table")
	if !repository.AllowedTable(table) {
		return Result{Success: false, Intent: IntentEdit, Error: fmt.Sprintf("table not allowed: %s", table), Stage: StageEdit}
	}

	if o.isCriticalEdit(action) {
		question := getString(parsed, "confirmation_question")
		if question == "" {
			question = o.buildConfirmation(action)
		}
		return Result{
			Success:              true,
			Intent:               IntentEdit,
			NeedsConfirmation:    true,
			ConfirmationQuestion: question,
			PendingAction:        action,
		}
	}

	return o.executeEditAction(ctx, instruction, channel, action)
}

func (o *Orchestrator) isCriticalEdit(action map[string]interface{}) bool {
	if getString(action, "operation") == "delete" {
		return true
	}
	return getString(action, "table") == "people" && criticalPeopleFields[getString(action, "field")]
}

func (o *Orchestrator) buildConfirmation(action map[string]interface{}) string {
	table := getString(action, "table")
	target := getString(action, "target_name")
	if target == "" {
		target = fmt.Sprintf("#%d", getInt64(action, "id"))
	}

	if getString(action, "operation") == "delete" {
		return fmt.Sprintf("Soll '%s' aus %s wirklich gelöscht werden?", target, table)
	}
	return fmt.Sprintf("Soll %s von '%s' auf '%s' geändert werden?",
		getString(action, "field"), target, getString(action, "new_value"))
}

func (o *Orchestrator) executeEditAction(ctx context.Context, instruction string, channel notifymodel.ChannelContext, action map[string]interface{}) Result {
	table := getString(action, "table")
	id := getInt64(action, "id")

	if !repository.AllowedTable(table) {
		return Result{Success: false, Intent: IntentEdit, Error: fmt.Sprintf("table not allowed: %s", table), Stage: StageEdit}
	}

	var message string
	switch getString(action, "operation") {
	case "delete":
		if err := o.store.Delete(ctx, table, id); err != nil {
			return Result{Success: false, Intent: IntentEdit, Error: err.Error(), Stage: StageExecution}
		}
		message = fmt.Sprintf("✅ Eintrag #%d aus %s gelöscht", id, table)

	case "update":
		field := getString(action, "field")
		newValue := action["new_value"]
		if field == "" || newValue == nil {
			return Result{Success: false, Intent: IntentEdit, Error: "field or value missing", Stage: StageEdit}
		}
		if err := o.store.UpdateRecord(ctx, table, id, map[string]interface{}{field: newValue}); err != nil {
			return Result{Success: false, Intent: IntentEdit, Error: err.Error(), Stage: StageExecution}
		}
		message = fmt.Sprintf("✅ %s #%d aktualisiert", capitalize(table), id)

	default:
		return Result{Success: false, Intent: IntentEdit, Error: "unknown operation", Stage: StageEdit}
	}

	o.notify(ctx, channel, message)
	return Result{
		Success: true,
		Intent:  IntentEdit,
		Target:  map[string]interface{}{"table": table, "id": id},
		Message: message,
	}
}

// --- create path ---

func (o *Orchestrator) handleCreate(ctx context.Context, text string, channel notifymodel.ChannelContext) Result {
	keywords := o.search.Keywords(text)

	matches, err := o.search.Search(ctx, keywords)
	if err != nil {
		o.log.Warn("entity search failed", zap.Error(err))
		matches = nil
	}

	matchMaps := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		matchMaps = append(matchMaps, map[string]interface{}{
			"table":       m.Table,
			"id":          m.ID,
			"data":        m.Data,
			"match_score": m.Score,
		})
	}

	intentResult, agentErr := o.agents.Intent.Execute(ctx, map[string]interface{}{
		"text":    text,
		"matches": matchMaps,
	})
	if agentErr != nil {
		return Result{Success: false, Error: agentErr.ErrorMessage, Stage: StageIntentRecognition}
	}

	intent := getString(intentResult, "intent")
	confidence := getFloat(intentResult, "confidence")

	o.log.Info("intent classified",
		zap.String("intent", intent),
		zap.Float64("confidence", confidence),
	)

	if confidence < o.confidenceThreshold || intent == IntentUnclear {
		return o.handleUnclear(ctx, text, channel, intentResult)
	}

	return o.executeIntent(ctx, text, channel, intentResult)
}

// executeIntent runs steps (d)-(g) of the create path. It is re-entered by
// respond_to_clarification with a reconstructed intent result.
func (o *Orchestrator) executeIntent(ctx context.Context, text string, channel notifymodel.ChannelContext, intentResult map[string]interface{}) Result {
	intent := getString(intentResult, "intent")

	switch intent {
	case IntentComplete, IntentDelete:
		return o.executeSimple(ctx, text, channel, intentResult)
	case IntentCreate, IntentUpdate:
		return o.executeWithStructure(ctx, text, channel, intentResult)
	default:
		return Result{Success: false, Error: fmt.Sprintf("unknown intent: %s", intent), Stage: StageExecution}
	}
}

func (o *Orchestrator) executeSimple(ctx context.Context, text string, channel notifymodel.ChannelContext, intentResult map[string]interface{}) Result {
	intent := getString(intentResult, "intent")
	target, _ := intentResult["target"].(map[string]interface{})
	table := getString(target, "table")
	id := getInt64(target, "id")

	if !repository.AllowedTable(table) || id == 0 {
		return Result{Success: false, Error: "no valid target", Stage: StageExecution, Intent: intent}
	}

	var err error
	var verb string
	if intent == IntentComplete {
		err = o.store.Complete(ctx, table, id)
		verb = "abgeschlossen"
	} else {
		err = o.store.Delete(ctx, table, id)
		verb = "gelöscht"
	}
	if err != nil {
		return Result{Success: false, Error: err.Error(), Stage: StageExecution, Intent: intent}
	}

	o.writeAudit(ctx, text, intentResult, table, &id, nil)

	message := fmt.Sprintf("✅ %s #%d %s", capitalize(table), id, verb)
	o.notify(ctx, channel, message)

	return Result{
		Success: true,
		Intent:  intent,
		Target:  map[string]interface{}{"table": table, "id": id},
		Message: message,
	}
}

func (o *Orchestrator) executeWithStructure(ctx context.Context, text string, channel notifymodel.ChannelContext, intentResult map[string]interface{}) Result {
	intent := getString(intentResult, "intent")
	category := getString(intentResult, "category")
	target, _ := intentResult["target"].(map[string]interface{})

	pre := preprocess.New(o.now().In(o.location))
	templateContext := pre.PromptContext(text, category)
	templateContext["intent"] = intent
	templateContext["category"] = category
	templateContext["target"] = target

	structured, agentErr := o.agents.Structure.Execute(ctx, templateContext)
	if agentErr != nil {
		return Result{Success: false, Error: agentErr.ErrorMessage, Stage: StageStructuring, Intent: intent}
	}

	var recordID int64
	var table string
	var message string
	var err error

	switch intent {
	case IntentCreate:
		table = category
		data, _ := structured["data"].(map[string]interface{})
		linked, _ := data["linked_entities"].(map[string]interface{})
		delete(data, "linked_entities")

		recordID, err = o.store.InsertRecord(ctx, table, data)
		if err != nil {
			return Result{Success: false, Error: err.Error(), Stage: StageExecution, Intent: intent}
		}

		if linked != nil {
			o.resolveLinkedEntities(ctx, table, recordID, linked)
		}

		message = fmt.Sprintf("✅ Neuer Eintrag in %s: #%d", table, recordID)

	case IntentUpdate:
		table = getString(target, "table")
		recordID = getInt64(target, "id")
		changes, _ := structured["changes"].(map[string]interface{})

		if len(changes) > 0 {
			if err = o.store.UpdateRecord(ctx, table, recordID, changes); err != nil {
				return Result{Success: false, Error: err.Error(), Stage: StageExecution, Intent: intent}
			}
		}

		message = fmt.Sprintf("✅ %s #%d aktualisiert", capitalize(table), recordID)
	}

	changesJSON, _ := json.Marshal(structured)
	o.writeAudit(ctx, text, intentResult, table, &recordID, changesJSON)

	o.notify(ctx, channel, message)

	return Result{
		Success:  true,
		Intent:   intent,
		Category: category,
		RecordID: recordID,
		Message:  message,
	}
}

// resolveLinkedEntities looks up people by exact name (creating missing
// ones) and projects by partial name, then links them to the new record.
// Failures here are logged and swallowed; the record itself is committed.
func (o *Orchestrator) resolveLinkedEntities(ctx context.Context, table string, recordID int64, linked map[string]interface{}) {
	if table != "tasks" && table != "calendar_events" {
		return
	}

	if personName := getString(linked, "person_name"); personName != "" {
		personID, err := o.store.FindPersonIDByName(ctx, personName)
		if err == nil && personID == 0 {
			personID, err = o.store.CreatePersonStub(ctx, personName)
			if err == nil {
				o.log.Info("created person from linked entity", zap.String("name", personName), zap.Int64("id", personID))
			}
		}
		if err != nil {
			o.log.Warn("linked person resolution failed", zap.String("name", personName), zap.Error(err))
		} else if personID != 0 {
			if err := o.store.SetLink(ctx, table, recordID, "person_id", personID); err != nil {
				o.log.Warn("linking person failed", zap.Error(err))
			}
		}
	}

	if projectName := getString(linked, "project_name"); projectName != "" {
		projectID, err := o.store.FindProjectIDByPartialName(ctx, projectName)
		if err != nil {
			o.log.Warn("linked project resolution failed", zap.String("name", projectName), zap.Error(err))
		} else if projectID != 0 {
			if err := o.store.SetLink(ctx, table, recordID, "project_id", projectID); err != nil {
				o.log.Warn("linking project failed", zap.Error(err))
			}
		}
	}
}

// --- clarification ---

func (o *Orchestrator) handleUnclear(ctx context.Context, text string, channel notifymodel.ChannelContext, intentResult map[string]interface{}) Result {
	question := getString(intentResult, "question")
	if question == "" {
		question = "Was meinst du?"
	}

	rawOptions, _ := intentResult["options"].([]interface{})
	var optionMaps []map[string]interface{}
	var labels []string
	for _, raw := range rawOptions {
		if opt, ok := raw.(map[string]interface{}); ok {
			optionMaps = append(optionMaps, opt)
			label := getString(opt, "label")
			if label == "" {
				label = fmt.Sprintf("%s (%s)", getString(opt, "table"), getString(opt, "intent"))
			}
			labels = append(labels, label)
		}
	}

	contextJSON, err := json.Marshal(clarificationContext{
		Text:    text,
		Channel: channel,
		Options: optionMaps,
	})
	if err != nil {
		return Result{Success: false, Error: err.Error(), Stage: StageClarification}
	}

	requestID, err := o.hitl.CreateRequest(ctx, hitlmodel.TypeChoice, question, labels, contextJSON)
	if err != nil {
		return Result{Success: false, Error: err.Error(), Stage: StageClarification}
	}

	if len(labels) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "❓ %s\n", question)
		for i, label := range labels {
			fmt.Fprintf(&b, "\n%d. %s", i+1, label)
		}
		o.notify(ctx, channel, b.String())
	} else {
		o.notify(ctx, channel, "❓ "+question)
	}

	return Result{
		Success:            true,
		Intent:             IntentUnclear,
		NeedsClarification: true,
		Question:           question,
		Options:            labels,
		RequestID:          requestID,
	}
}

// RespondToClarification resolves a pending request with the chosen option
// and re-enters the create path at the execution step with confidence 1.0.
func (o *Orchestrator) RespondToClarification(ctx context.Context, requestID int64, choice string) Result {
	request, err := o.hitl.Get(ctx, requestID)
	if err != nil {
		return Result{Success: false, Error: err.Error(), Stage: StageClarification}
	}
	if request.IsTerminal() {
		return Result{Success: false, Error: hitlmodel.ErrTerminalRequest.Error(), Stage: StageClarification}
	}

	var reqContext clarificationContext
	if err := json.Unmarshal(request.Context, &reqContext); err != nil {
		return Result{Success: false, Error: "invalid request context", Stage: StageClarification}
	}

	selected := selectOption(request.Options, reqContext.Options, choice)
	if selected == nil {
		return Result{Success: false, Error: fmt.Sprintf("unknown choice: %s", choice), Stage: StageClarification}
	}

	if err := o.hitl.Respond(ctx, requestID, choice, nil); err != nil {
		return Result{Success: false, Error: err.Error(), Stage: StageClarification}
	}

	intentResult := map[string]interface{}{
		"intent":     getString(selected, "intent"),
		"category":   getString(selected, "category"),
		"confidence": 1.0,
	}
	if table := getString(selected, "table"); table != "" {
		intentResult["target"] = map[string]interface{}{
			"table": table,
			"id":    selected["id"],
		}
		if intentResult["category"] == "" {
			intentResult["category"] = table
		}
	}
	if intentResult["intent"] == "" {
		intentResult["intent"] = IntentCreate
	}

	return o.executeIntent(ctx, reqContext.Text, reqContext.Channel, intentResult)
}

// selectOption matches the user's choice against labels or a 1-based index
func selectOption(labels []string, options []map[string]interface{}, choice string) map[string]interface{} {
	choice = strings.TrimSpace(choice)

	if idx, err := strconv.Atoi(choice); err == nil {
		if idx >= 1 && idx <= len(options) {
			return options[idx-1]
		}
		return nil
	}

	for i, label := range labels {
		if strings.EqualFold(label, choice) && i < len(options) {
			return options[i]
		}
	}
	return nil
}

// --- shared helpers ---

func (o *Orchestrator) writeAudit(ctx context.Context, text string, intentResult map[string]interface{}, table string, targetID *int64, changes json.RawMessage) {
	confidence := getFloat(intentResult, "confidence")

	entry := repository.LogEntry{
		CapturedText: text,
		Intent:       getString(intentResult, "intent"),
		TargetTable:  table,
		TargetID:     targetID,
		Changes:      changes,
		Confidence:   confidence,
		NeedsReview:  confidence < o.confidenceThreshold,
	}

	if err := o.audit.Write(ctx, entry); err != nil {
		o.log.Warn("inbox log write failed", zap.Error(err))
	}
}

func (o *Orchestrator) notify(ctx context.Context, channel notifymodel.ChannelContext, message string) {
	result := o.notifier.NotifyChannel(ctx, channel, message)
	if !result.Success {
		o.log.Warn("channel notification failed",
			zap.String("channel", result.Channel),
			zap.String("error", result.Error),
		)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func getString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getFloat(m map[string]interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func getInt64(m map[string]interface{}, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return 0
}
