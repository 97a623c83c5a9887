package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/notify"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/retry"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// --- in-memory task store ---

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[uuid.UUID]*models.Task{}}
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.InternalID == uuid.Nil {
		task.InternalID = uuid.New()
	}
	task.CreatedAt = time.Now()
	cp := *task
	f.tasks[task.InternalID] = &cp
	return nil
}

func (f *fakeTaskStore) GetTask(ctx context.Context, internalID uuid.UUID) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[internalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) GetTaskByQueueID(ctx context.Context, taskID string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.TaskID == taskID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeTaskStore) ListTasks(ctx context.Context, limit, offset int, status models.TaskStatus) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Task
	for _, t := range f.tasks {
		if status != "" && t.Status != status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeTaskStore) SetTaskQueueID(ctx context.Context, internalID uuid.UUID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[internalID]
	if !ok {
		return store.ErrNotFound
	}
	if t.TaskID == "" {
		t.TaskID = taskID
	}
	return nil
}

func (f *fakeTaskStore) UpdateTaskStatus(ctx context.Context, internalID uuid.UUID, status models.TaskStatus, upd store.TaskStatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[internalID]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status.Terminal() {
		return store.ErrTerminal
	}
	now := time.Now()
	t.Status = status
	if status == models.TaskStatusRunning && t.StartedAt == nil {
		t.StartedAt = &now
	}
	if status.Terminal() {
		t.CompletedAt = &now
	}
	if status == models.TaskStatusCompleted {
		t.Result = upd.Result
	}
	if status == models.TaskStatusFailed && upd.ErrorMessage != "" {
		msg := upd.ErrorMessage
		t.ErrorMessage = &msg
	}
	t.UpdatedAt = now
	return nil
}

func (f *fakeTaskStore) IncrementTaskRetries(ctx context.Context, internalID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[internalID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if t.Retries >= t.MaxRetries {
		return 0, store.ErrRetriesExhausted
	}
	t.Retries++
	return t.Retries, nil
}

func (f *fakeTaskStore) RequestTaskCancel(ctx context.Context, internalID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[internalID]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status.Terminal() {
		return store.ErrTerminal
	}
	if t.Status == models.TaskStatusPending {
		t.Status = models.TaskStatusCanceled
		now := time.Now()
		t.CompletedAt = &now
		return nil
	}
	t.CancelRequested = true
	return nil
}

func (f *fakeTaskStore) Ping(ctx context.Context) error { return nil }

var _ store.TaskStore = (*fakeTaskStore)(nil)

// --- in-memory pipeline store ---

type fakePipelineStore struct {
	mu        sync.Mutex
	pipelines map[uuid.UUID]*models.Pipeline

	metadataCalls int
	// metadataErr is returned by UpdatePipelineMetadata from call number
	// metadataErrAt onward.
	metadataErr   error
	metadataErrAt int
}

func newFakePipelineStore() *fakePipelineStore {
	return &fakePipelineStore{pipelines: map[uuid.UUID]*models.Pipeline{}}
}

func (f *fakePipelineStore) CreatePipeline(ctx context.Context, p *models.Pipeline, docs []models.PipelineDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PipelineStatusPending
	}
	cp := *p
	cp.Documents = append([]models.PipelineDocument(nil), docs...)
	f.pipelines[p.ID] = &cp
	return nil
}

func (f *fakePipelineStore) GetPipeline(ctx context.Context, id uuid.UUID) (*models.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.Documents = append([]models.PipelineDocument(nil), p.Documents...)
	return &cp, nil
}

func (f *fakePipelineStore) UpdatePipelineStatus(ctx context.Context, id uuid.UUID, status models.PipelineStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	return nil
}

func (f *fakePipelineStore) UpdatePipelineMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadataCalls++
	if f.metadataErr != nil && f.metadataCalls >= f.metadataErrAt {
		return f.metadataErr
	}
	p, ok := f.pipelines[id]
	if !ok {
		return store.ErrNotFound
	}
	p.ProcessingMetadata = append(json.RawMessage(nil), metadata...)
	return nil
}

func (f *fakePipelineStore) CompletePipeline(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Result = append(json.RawMessage(nil), result...)
	p.Status = models.PipelineStatusCompleted
	return nil
}

func (f *fakePipelineStore) DeletePipeline(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pipelines, id)
	return nil
}

var _ store.PipelineStore = (*fakePipelineStore)(nil)

// --- in-memory document store ---

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[uuid.UUID]*models.Document{}}
}

func (f *fakeDocumentStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocumentStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

var _ store.DocumentStore = (*fakeDocumentStore)(nil)

// --- in-memory embedding store ---

type embeddingKey struct {
	pipelineID uuid.UUID
	documentID uuid.UUID
	chunkIndex int
}

type fakeEmbeddingStore struct {
	mu      sync.Mutex
	entries map[embeddingKey]*models.PipelineEmbedding
	upserts int
}

func newFakeEmbeddingStore() *fakeEmbeddingStore {
	return &fakeEmbeddingStore{entries: map[embeddingKey]*models.PipelineEmbedding{}}
}

func (f *fakeEmbeddingStore) UpsertEmbedding(ctx context.Context, entry *models.PipelineEmbedding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	key := embeddingKey{entry.PipelineID, entry.DocumentID, entry.ChunkIndex}
	cp := *entry
	if prev, ok := f.entries[key]; ok {
		cp.ID = prev.ID
	} else if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	f.entries[key] = &cp
	return nil
}

func (f *fakeEmbeddingStore) CountEmbeddings(ctx context.Context, pipelineID, documentID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for k := range f.entries {
		if k.pipelineID == pipelineID && k.documentID == documentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeEmbeddingStore) SimilaritySearch(ctx context.Context, pipelineID uuid.UUID, query pgvector.Vector, k int) ([]models.PipelineEmbedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PipelineEmbedding
	for key, e := range f.entries {
		if key.pipelineID != pipelineID {
			continue
		}
		out = append(out, *e)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (f *fakeEmbeddingStore) DeleteEmbeddingsByPipelineID(ctx context.Context, pipelineID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.entries {
		if k.pipelineID == pipelineID {
			delete(f.entries, k)
		}
	}
	return nil
}

func (f *fakeEmbeddingStore) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *fakeEmbeddingStore) Ping(ctx context.Context) error { return nil }
func (f *fakeEmbeddingStore) Close() error                   { return nil }

var _ store.EmbeddingStore = (*fakeEmbeddingStore)(nil)

// --- deterministic embedder ---

type fakeEmbedder struct {
	mu         sync.Mutex
	batchCalls int
	failNext   error
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	return pgvector.NewVector([]float32{1, 0, 0}), nil
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	out := make([]pgvector.Vector, len(texts))
	for i := range texts {
		out[i] = pgvector.NewVector([]float32{float32(i), 1, 0})
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int               { return 3 }
func (f *fakeEmbedder) ModelName() string            { return "fake-embedding" }
func (f *fakeEmbedder) Name() string                 { return "fake" }
func (f *fakeEmbedder) Status() store.ProviderStatus { return store.ProviderStatusActive }

var _ store.EmbeddingService = (*fakeEmbedder)(nil)

// --- scripted completion service ---

const validCriteriaJSON = `[{"name":"price","description":"total cost of ownership","weight":0.5},` +
	`{"name":"quality","description":"solution quality","weight":0.5}]`

// scriptedCompleter answers by system prompt and supports scripting failures
// for specific prompts.
type scriptedCompleter struct {
	mu       sync.Mutex
	calls    int
	failures map[string]error // system prompt -> error to return once
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{failures: map[string]error{}}
}

func (s *scriptedCompleter) failOnce(systemPrompt string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[systemPrompt] = err
}

func (s *scriptedCompleter) GenerateChatCompletion(ctx context.Context, messages []services.ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	system := messages[0].Content
	if err, ok := s.failures[system]; ok {
		delete(s.failures, system)
		return "", err
	}

	switch system {
	case criteriaExtractionPrompt:
		return validCriteriaJSON, nil
	case frameworkGenerationPrompt:
		return "Evaluation framework: score each criterion from 1 to 5.", nil
	case finalReportPrompt:
		return "Final report: the proposal is acceptable.", nil
	}
	for _, prompt := range evaluationPrompts {
		if system == prompt {
			return "Evaluation: no significant issues found.", nil
		}
	}
	return "ok", nil
}

func (s *scriptedCompleter) Status() store.ProviderStatus { return store.ProviderStatusActive }
func (s *scriptedCompleter) Name() string                 { return "scripted" }
func (s *scriptedCompleter) ModelName() string            { return "scripted-model" }

var _ services.CompletionService = (*scriptedCompleter)(nil)

// --- harness ---

type harness struct {
	tasks     *fakeTaskStore
	pipelines *fakePipelineStore
	documents *fakeDocumentStore
	vectors   *fakeEmbeddingStore
	embedder  *fakeEmbedder
	completer *scriptedCompleter
	notifier  *notify.Capture
	orch      *Orchestrator
}

func newHarness(policy *retry.Policy) *harness {
	h := &harness{
		tasks:     newFakeTaskStore(),
		pipelines: newFakePipelineStore(),
		documents: newFakeDocumentStore(),
		vectors:   newFakeEmbeddingStore(),
		embedder:  &fakeEmbedder{},
		completer: newScriptedCompleter(),
		notifier:  notify.NewCapture(),
	}
	deps := &Deps{
		Pipelines:      h.pipelines,
		Documents:      h.documents,
		Embeddings:     h.vectors,
		Embedder:       h.embedder,
		Completer:      h.completer,
		Notifier:       h.notifier,
		ChunkMaxTokens: 50,
		ChunkOverlap:   10,
		DocConcurrency: 2,
	}
	h.orch = &Orchestrator{
		Tasks:     h.tasks,
		Pipelines: h.pipelines,
		Executor:  NewExecutor(deps, time.Minute),
		Policy:    policy,
		Notifier:  h.notifier,
	}
	return h
}

func (h *harness) addDocument(content string) uuid.UUID {
	doc := &models.Document{Title: "doc", Content: content, ContentType: "text/plain"}
	h.documents.CreateDocument(context.Background(), doc)
	return doc.ID
}

// seedPipeline creates a pipeline over the given documents (first one primary)
// and its tracking task.
func (h *harness) seedPipeline(t models.PipelineType, ref *uuid.UUID, docIDs ...uuid.UUID) (uuid.UUID, uuid.UUID) {
	p := &models.Pipeline{
		Type:                t,
		PrincipalDocumentID: docIDs[0],
		ReferencePipelineID: ref,
	}
	var docs []models.PipelineDocument
	for i, id := range docIDs {
		role := models.DocumentRoleSecondary
		if i == 0 {
			role = models.DocumentRolePrimary
		}
		docs = append(docs, models.PipelineDocument{DocumentID: id, Role: role, ProcessingOrder: i})
	}
	h.pipelines.CreatePipeline(context.Background(), p, docs)

	task := &models.Task{
		InternalID: uuid.New(),
		Name:       string(t),
		Type:       t.TaskType(),
		Status:     models.TaskStatusPending,
		Priority:   models.TaskPriorityNormal,
		MaxRetries: h.orch.Policy.MaxRetries,
	}
	h.tasks.CreateTask(context.Background(), task)
	return p.ID, task.InternalID
}

// seedCompletedRFP stores a completed RFP pipeline usable as a proposal
// reference.
func (h *harness) seedCompletedRFP() uuid.UUID {
	docID := h.addDocument("The vendor must provide support and a clear price.")
	p := &models.Pipeline{
		Type:                models.PipelineTypeRFPAnalysis,
		Status:              models.PipelineStatusCompleted,
		PrincipalDocumentID: docID,
		Result: []byte(`{"extracted_criteria":` + validCriteriaJSON +
			`,"evaluation_framework":"score 1-5"}`),
	}
	h.pipelines.CreatePipeline(context.Background(), p, []models.PipelineDocument{
		{DocumentID: docID, Role: models.DocumentRolePrimary},
	})
	h.pipelines.UpdatePipelineStatus(context.Background(), p.ID, models.PipelineStatusCompleted)
	return p.ID
}
