package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previsit-labs/previsit-cli/internal/chunker"
	"github.com/previsit-labs/previsit-cli/internal/classifier"
	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	dims     int
	model    string
	embedFn  func(text string) []float32
	batchErr error
	batches  [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	return m.embedFn(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	m.batches = append(m.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.embedFn(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int   { return m.dims }
func (m *mockEmbedder) ModelName() string { return m.model }
func (m *mockEmbedder) Close() error      { return nil }

// mockPassageStore implements driven.PassageStore for testing.
type mockPassageStore struct {
	passages []domain.Passage
	listErr  error
}

func (m *mockPassageStore) Put(_ context.Context, p domain.Passage) error {
	m.passages = append(m.passages, p)
	return nil
}

func (m *mockPassageStore) List(_ context.Context) ([]domain.Passage, error) {
	return m.passages, m.listErr
}

func (m *mockPassageStore) Count(_ context.Context) (int, error) {
	return len(m.passages), nil
}

func (m *mockPassageStore) Close() error { return nil }

// mockIndex implements driven.ChunkIndex for testing.
type mockIndex struct {
	manifest domain.IndexManifest
	hits     []driven.ChunkHit
}

func (m *mockIndex) Manifest() domain.IndexManifest { return m.manifest }
func (m *mockIndex) Len() int                       { return len(m.hits) }

func (m *mockIndex) Search(_ context.Context, _ []float32, k int) ([]driven.ChunkHit, error) {
	if k <= 0 || k > len(m.hits) {
		k = len(m.hits)
	}
	return m.hits[:k], nil
}

// mockIndexStore implements driven.IndexStore for testing.
type mockIndexStore struct {
	savedManifest *domain.IndexManifest
	savedChunks   []domain.Chunk
	savedVectors  [][]float32
	loadIndex     driven.ChunkIndex
	loadErr       error
	loads         int
}

func (m *mockIndexStore) Save(_ context.Context, manifest domain.IndexManifest, chunks []domain.Chunk, vectors [][]float32) error {
	m.savedManifest = &manifest
	m.savedChunks = chunks
	m.savedVectors = vectors
	return nil
}

func (m *mockIndexStore) Load(_ context.Context, _ domain.IndexSpec) (driven.ChunkIndex, error) {
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loadIndex, nil
}

// mockLLM implements driven.LLMService for testing. Responses pop off a
// queue; an exhausted queue answers with the empty string.
type mockLLM struct {
	responses []string
	prompts   []string
	systems   []string
}

func (m *mockLLM) Generate(_ context.Context, system, prompt string, _ driven.GenerateOptions) (string, error) {
	m.systems = append(m.systems, system)
	m.prompts = append(m.prompts, prompt)
	if len(m.responses) == 0 {
		return "", nil
	}
	out := m.responses[0]
	m.responses = m.responses[1:]
	return out, nil
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (string, error) {
	return m.Generate(ctx, "", messages[len(messages)-1].Content, opts)
}

func (m *mockLLM) ModelName() string { return "mock-llm" }
func (m *mockLLM) Close() error      { return nil }

// mockPrompts implements driven.PromptStore for testing.
type mockPrompts struct {
	templates map[string]string
}

func newMockPrompts() *mockPrompts {
	return &mockPrompts{templates: map[string]string{
		driven.PromptFollowup:       "Symptoms: %s\nLast exchange: %s\nAsk clarifying question %d of %d.",
		driven.PromptTriageSystem:   "Produce the four note sections.",
		driven.PromptTriageReformat: "Reformat into the required sections.",
	}}
}

func (m *mockPrompts) Load(name string) (string, error) {
	tpl, ok := m.templates[name]
	if !ok {
		return "", fmt.Errorf("no prompt %q", name)
	}
	return tpl, nil
}

func (m *mockPrompts) Reload() {}

// mockClassifier implements driven.Classifier for testing.
type mockClassifier struct {
	matched bool
	err     error
}

func (m *mockClassifier) Classify(_ context.Context, _ string) (domain.Classification, error) {
	return domain.Classification{Matched: m.matched}, m.err
}

func (m *mockClassifier) Name() string { return "mock" }

// mockRetriever implements driving.RetrieverService for testing.
type mockRetriever struct {
	result domain.RetrievalResult
	err    error
	query  string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, _ int) (domain.RetrievalResult, error) {
	m.query = query
	if m.err != nil {
		return domain.RetrievalResult{}, m.err
	}
	m.result.Query = query
	return m.result, nil
}

// --- Fixtures ---

const wellFormedNote = `## Candidate Conditions
Possible tension-type headache.

## Urgency Level
Routine appointment within a week.

## Red Flags
Sudden worst-ever headache, confusion, or fever with stiff neck.

## Suggested Tests
Blood pressure measurement; review of medication history.`

func retrievedFixture() domain.RetrievalResult {
	return domain.RetrievalResult{Chunks: []domain.RetrievedChunk{
		{Chunk: domain.Chunk{SourceID: "mp-1", SourceType: domain.SourceMedlinePlus, Title: "Headache", Reference: "https://medlineplus.gov/headache.html"}, Score: 0.82},
		{Chunk: domain.Chunk{SourceID: "tb-4", SourceType: domain.SourceTextbook, Title: "Primary Headache Disorders", Reference: "ch. 12"}, Score: 0.74},
	}}
}

func flatEmbed(dims int) func(string) []float32 {
	return func(string) []float32 {
		v := make([]float32, dims)
		v[0] = 1
		return v
	}
}

// --- Transition ---

func TestTransition(t *testing.T) {
	tests := []struct {
		name  string
		phase domain.Phase
		sig   Signal
		want  domain.Phase
	}{
		{"start to followup", domain.PhaseStart, SignalNeedMore, domain.PhaseFollowup},
		{"start to out of scope", domain.PhaseStart, SignalOutOfScope, domain.PhaseOutOfScopeExit},
		{"start to emergency", domain.PhaseStart, SignalEmergency, domain.PhaseEmergencyExit},
		{"followup stays on need more", domain.PhaseFollowup, SignalNeedMore, domain.PhaseFollowup},
		{"followup to done", domain.PhaseFollowup, SignalReady, domain.PhaseDone},
		{"followup to emergency", domain.PhaseFollowup, SignalEmergency, domain.PhaseEmergencyExit},
		{"followup ignores out of scope", domain.PhaseFollowup, SignalOutOfScope, domain.PhaseFollowup},
		{"done absorbs everything", domain.PhaseDone, SignalEmergency, domain.PhaseDone},
		{"emergency exit absorbs everything", domain.PhaseEmergencyExit, SignalReady, domain.PhaseEmergencyExit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(tt.phase, tt.sig))
		})
	}
}

// --- Indexer ---

func newTestIndexer(store *mockPassageStore, embedder *mockEmbedder, ixStore *mockIndexStore) *IndexerService {
	ck := chunker.New(
		chunker.WithProfile(domain.SourceMedlinePlus, chunker.Profile{ChunkSize: 20, Overlap: 5}),
		chunker.WithProfile(domain.SourceTextbook, chunker.Profile{ChunkSize: 20, Overlap: 5}),
	)
	svc := NewIndexerService(store, ck, embedder, ixStore)
	svc.SetRateLimit(10000)
	return svc
}

func TestIndexerBuildsArtifact(t *testing.T) {
	store := &mockPassageStore{passages: []domain.Passage{
		{SourceID: "mp-1", SourceType: domain.SourceMedlinePlus, Title: "Fever", Text: strings.Repeat("a", 45)},
		{SourceID: "tb-1", SourceType: domain.SourceTextbook, Title: "Infections", Text: strings.Repeat("b", 30)},
	}}
	embedder := &mockEmbedder{dims: 3, model: "embed-v1", embedFn: flatEmbed(3)}
	ixStore := &mockIndexStore{}

	manifest, err := newTestIndexer(store, embedder, ixStore).BuildIndex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.IndexSchemaVersion, manifest.SchemaVersion)
	assert.Equal(t, "embed-v1", manifest.ModelName)
	assert.Equal(t, domain.MetricCosine, manifest.Metric)
	assert.Equal(t, 3, manifest.Dimensions)
	assert.WithinDuration(t, time.Now().UTC(), manifest.BuiltAt, time.Minute)

	require.NotNil(t, ixStore.savedManifest)
	require.Equal(t, len(ixStore.savedChunks), len(ixStore.savedVectors))
	assert.Equal(t, manifest.ChunkCount, len(ixStore.savedChunks))

	// Passage order then window order, with deterministic IDs.
	assert.Equal(t, domain.ChunkID("mp-1", 0), ixStore.savedChunks[0].ID)
	last := ixStore.savedChunks[len(ixStore.savedChunks)-1]
	assert.Equal(t, "tb-1", last.SourceID)
}

func TestIndexerEmptyStoreBuildsEmptyIndex(t *testing.T) {
	ixStore := &mockIndexStore{}
	embedder := &mockEmbedder{dims: 3, model: "embed-v1", embedFn: flatEmbed(3)}

	manifest, err := newTestIndexer(&mockPassageStore{}, embedder, ixStore).BuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, manifest.ChunkCount)
	require.NotNil(t, ixStore.savedManifest)
	assert.Empty(t, ixStore.savedChunks)
}

func TestIndexerDimensionMismatchAbortsBuild(t *testing.T) {
	store := &mockPassageStore{passages: []domain.Passage{
		{SourceID: "mp-1", SourceType: domain.SourceMedlinePlus, Title: "Fever", Text: "short passage"},
	}}
	// Model claims 3 dimensions but emits 2.
	embedder := &mockEmbedder{dims: 3, model: "embed-v1", embedFn: flatEmbed(2)}
	ixStore := &mockIndexStore{}

	_, err := newTestIndexer(store, embedder, ixStore).BuildIndex(context.Background())
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
	assert.Nil(t, ixStore.savedManifest)
}

func TestIndexerBatchesEmbeddingCalls(t *testing.T) {
	store := &mockPassageStore{passages: []domain.Passage{
		{SourceID: "mp-1", SourceType: domain.SourceMedlinePlus, Title: "Fever", Text: strings.Repeat("x", 80)},
	}}
	embedder := &mockEmbedder{dims: 3, model: "embed-v1", embedFn: flatEmbed(3)}
	ixStore := &mockIndexStore{}

	svc := newTestIndexer(store, embedder, ixStore)
	svc.SetBatchSize(2)

	_, err := svc.BuildIndex(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, embedder.batches)
	for _, batch := range embedder.batches[:len(embedder.batches)-1] {
		assert.Len(t, batch, 2)
	}
}

// --- Retriever ---

func rankedHits() []driven.ChunkHit {
	mk := func(source string, pos int, score float64) driven.ChunkHit {
		return driven.ChunkHit{
			Chunk:    domain.Chunk{ID: domain.ChunkID(source, pos), SourceID: source, SourceType: domain.SourceMedlinePlus, Title: source},
			Score:    score,
			Position: pos,
		}
	}
	return []driven.ChunkHit{
		mk("src-a", 0, 0.9),
		mk("src-a", 1, 0.8),
		mk("src-b", 2, 0.7),
		mk("src-c", 3, 0.6),
		mk("src-b", 4, 0.5),
		mk("src-d", 5, 0.4),
	}
}

func newTestRetriever(hits []driven.ChunkHit) (*RetrieverService, *mockIndexStore) {
	ixStore := &mockIndexStore{loadIndex: &mockIndex{hits: hits}}
	embedder := &mockEmbedder{dims: 3, model: "embed-v1", embedFn: flatEmbed(3)}
	return NewRetrieverService(embedder, ixStore), ixStore
}

func TestRetrieveDedupesBySourceKeepingBest(t *testing.T) {
	svc, _ := newTestRetriever(rankedHits())

	result, err := svc.Retrieve(context.Background(), "headache", 3)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)

	// One chunk per source; src-a's lower-scoring chunk is dropped and
	// the freed slot refills with src-c.
	assert.Equal(t, "src-a", result.Chunks[0].Chunk.SourceID)
	assert.Equal(t, 0.9, result.Chunks[0].Score)
	assert.Equal(t, "src-b", result.Chunks[1].Chunk.SourceID)
	assert.Equal(t, "src-c", result.Chunks[2].Chunk.SourceID)
}

func TestRetrieveDefaultK(t *testing.T) {
	svc, _ := newTestRetriever(rankedHits())

	result, err := svc.Retrieve(context.Background(), "headache", 0)
	require.NoError(t, err)
	// Four distinct sources exist; default k of 5 returns them all.
	assert.Len(t, result.Chunks, 4)
	assert.Equal(t, "headache", result.Query)
}

func TestRetrieveLoadsIndexOnce(t *testing.T) {
	svc, ixStore := newTestRetriever(rankedHits())

	_, err := svc.Retrieve(context.Background(), "first", 1)
	require.NoError(t, err)
	_, err = svc.Retrieve(context.Background(), "second", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, ixStore.loads)
}

func TestRetrieveMissingIndex(t *testing.T) {
	ixStore := &mockIndexStore{loadErr: domain.ErrNotFound}
	embedder := &mockEmbedder{dims: 3, model: "embed-v1", embedFn: flatEmbed(3)}
	svc := NewRetrieverService(embedder, ixStore)

	_, err := svc.Retrieve(context.Background(), "headache", 3)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// --- Composer ---

func sessionFixture() *domain.ConversationState {
	state := &domain.ConversationState{SessionID: "s-1", Phase: domain.PhaseFollowup}
	state.AddUser("I've had a headache for three days")
	state.AddAssistant("Question 1 of 3: How severe is it?")
	state.AddUser("Moderate")
	return state
}

func TestComposeParsesSectionsAndCites(t *testing.T) {
	llm := &mockLLM{responses: []string{wellFormedNote}}
	svc := NewComposerService(llm, newMockPrompts())

	note, err := svc.Compose(context.Background(), sessionFixture(), retrievedFixture())
	require.NoError(t, err)

	assert.Equal(t, "Possible tension-type headache.", note.CandidateConditions)
	assert.Equal(t, "Routine appointment within a week.", note.UrgencyLevel)
	assert.Contains(t, note.RedFlags, "worst-ever headache")
	assert.Contains(t, note.SuggestedTests, "Blood pressure")
	assert.True(t, note.Grounded)
	assert.False(t, note.Fallback)

	require.Len(t, note.Citations, 2)
	assert.Equal(t, "Headache", note.Citations[0].Title)
	assert.Equal(t, domain.SourceTextbook, note.Citations[1].SourceType)

	// The prompt carries provenance tags and the transcript.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "[Source: MedlinePlus - Headache]")
	assert.Contains(t, llm.prompts[0], "[Source: Textbook - Primary Headache Disorders]")
	assert.Contains(t, llm.prompts[0], "Patient: I've had a headache for three days")
}

func TestComposeReformatRetryRecovers(t *testing.T) {
	llm := &mockLLM{responses: []string{"Sorry, here is my answer in prose.", wellFormedNote}}
	svc := NewComposerService(llm, newMockPrompts())

	note, err := svc.Compose(context.Background(), sessionFixture(), retrievedFixture())
	require.NoError(t, err)

	assert.False(t, note.Fallback)
	assert.Equal(t, "Possible tension-type headache.", note.CandidateConditions)

	// The second call carries the reformat instruction plus the
	// malformed output.
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "Reformat into the required sections.")
	assert.Contains(t, llm.prompts[1], "Sorry, here is my answer in prose.")
}

func TestComposeFallsBackAfterSecondMalformed(t *testing.T) {
	llm := &mockLLM{responses: []string{"prose", "still prose"}}
	svc := NewComposerService(llm, newMockPrompts())

	note, err := svc.Compose(context.Background(), sessionFixture(), retrievedFixture())
	require.NoError(t, err)

	assert.True(t, note.Fallback)
	assert.False(t, note.Grounded)
	assert.Contains(t, note.CandidateConditions, "Unable to complete")
	assert.Len(t, llm.prompts, 2)
}

func TestComposeUngroundedBelowFloor(t *testing.T) {
	llm := &mockLLM{responses: []string{wellFormedNote}}
	svc := NewComposerService(llm, newMockPrompts())

	weak := domain.RetrievalResult{Chunks: []domain.RetrievedChunk{
		{Chunk: domain.Chunk{SourceID: "mp-9", SourceType: domain.SourceMedlinePlus, Title: "Unrelated"}, Score: 0.05},
	}}

	note, err := svc.Compose(context.Background(), sessionFixture(), weak)
	require.NoError(t, err)

	assert.False(t, note.Grounded)
	assert.Empty(t, note.Citations)
	assert.Contains(t, FormatNote(note), "general knowledge only")
}

func TestParseNoteToleratesHeaderCase(t *testing.T) {
	raw := strings.ReplaceAll(wellFormedNote, "## Candidate Conditions", "## candidate conditions")
	note, err := parseNote(raw)
	require.NoError(t, err)
	assert.Equal(t, "Possible tension-type headache.", note.CandidateConditions)
}

func TestParseNoteMissingSection(t *testing.T) {
	raw := strings.ReplaceAll(wellFormedNote, "## Red Flags", "## Something Else")
	_, err := parseNote(raw)
	assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
}

// --- Gate ---

func newTestGate(scope driven.Classifier, llm *mockLLM, retriever *mockRetriever) *ScreeningService {
	prompts := newMockPrompts()
	composer := NewComposerService(llm, prompts)
	return NewScreeningService(classifier.NewEmergency(), scope, retriever, composer, llm, prompts)
}

func TestGateFullSession(t *testing.T) {
	// Empty responses for the three follow-ups exercise the canned
	// fallback questions; the fourth response is the note.
	llm := &mockLLM{responses: []string{"", "", "", wellFormedNote}}
	retriever := &mockRetriever{result: retrievedFixture()}
	gate := newTestGate(&mockClassifier{matched: true}, llm, retriever)
	ctx := context.Background()

	state := gate.NewSession()
	require.NotEmpty(t, state.SessionID)
	assert.Equal(t, domain.PhaseStart, state.Phase)

	answers := []string{
		"I've had a headache for three days",
		"More than a week",
		"Moderate",
		"No",
	}

	for i := 0; i < 3; i++ {
		reply, err := gate.HandleTurn(ctx, state, answers[i])
		require.NoError(t, err)
		assert.Equal(t, domain.ReplyFollowup, reply.Kind)
		require.NotNil(t, reply.Followup)
		assert.Equal(t, i+1, reply.Followup.Number)
		assert.Equal(t, domain.MaxFollowups, reply.Followup.Total)
		assert.Equal(t, domain.PhaseFollowup, state.Phase)
	}

	reply, err := gate.HandleTurn(ctx, state, answers[3])
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyNote, reply.Kind)
	require.NotNil(t, reply.Note)
	assert.True(t, reply.Note.Grounded)
	assert.Equal(t, domain.PhaseDone, state.Phase)
	assert.Equal(t, 4, state.TurnCount)
	assert.Len(t, state.PendingFollowups, domain.MaxFollowups)

	// The retrieval query joins every utterance.
	assert.Equal(t, strings.Join(answers, " | "), retriever.query)

	// A fifth turn answers closed without error.
	reply, err = gate.HandleTurn(ctx, state, "one more thing")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyClosed, reply.Kind)
	assert.Equal(t, 4, state.TurnCount)
}

func TestGateEmergencyAcrossTurns(t *testing.T) {
	llm := &mockLLM{}
	gate := newTestGate(&mockClassifier{matched: true}, llm, &mockRetriever{})
	ctx := context.Background()

	state := gate.NewSession()

	reply, err := gate.HandleTurn(ctx, state, "I've been feeling pressure when I climb stairs")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyFollowup, reply.Kind)

	// The red flag completes only in the cumulative session text.
	reply, err = gate.HandleTurn(ctx, state, "now it's a crushing chest feeling and I can't breathe")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyEmergency, reply.Kind)
	assert.Contains(t, reply.Message, "CARDIAC EMERGENCY")
	assert.Contains(t, reply.Message, "RESPIRATORY EMERGENCY")
	assert.True(t, state.EmergencyFlag)
	assert.Equal(t, domain.PhaseEmergencyExit, state.Phase)

	reply, err = gate.HandleTurn(ctx, state, "what should I do")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyClosed, reply.Kind)
}

func TestGateEmergencySkipsScopeAndNetwork(t *testing.T) {
	// A scope classifier that errors if consulted proves the emergency
	// path never reaches it.
	llm := &mockLLM{}
	retriever := &mockRetriever{}
	gate := newTestGate(&mockClassifier{err: errors.New("must not be called")}, llm, retriever)

	state := gate.NewSession()
	reply, err := gate.HandleTurn(context.Background(), state, "crushing chest pain and I can't breathe")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyEmergency, reply.Kind)

	// No generation and no retrieval happened before the exit.
	assert.Empty(t, llm.prompts)
	assert.Empty(t, retriever.query)
}

func TestGateOutOfScope(t *testing.T) {
	gate := newTestGate(&mockClassifier{matched: false}, &mockLLM{}, &mockRetriever{})

	state := gate.NewSession()
	reply, err := gate.HandleTurn(context.Background(), state, "what's the weather tomorrow")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyOutOfScope, reply.Kind)
	assert.Equal(t, domain.PhaseOutOfScopeExit, state.Phase)
}

func TestGateEmptyInputDoesNotAdvance(t *testing.T) {
	gate := newTestGate(&mockClassifier{matched: true}, &mockLLM{}, &mockRetriever{})

	state := gate.NewSession()
	reply, err := gate.HandleTurn(context.Background(), state, "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyFollowup, reply.Kind)
	assert.Nil(t, reply.Followup)
	assert.Equal(t, 0, state.TurnCount)
	assert.Equal(t, domain.PhaseStart, state.Phase)
	assert.Empty(t, state.Transcript)
}

func TestGateRetrievalFailureStillProducesNote(t *testing.T) {
	llm := &mockLLM{responses: []string{"", "", "", wellFormedNote}}
	retriever := &mockRetriever{err: domain.ErrNotFound}
	gate := newTestGate(&mockClassifier{matched: true}, llm, retriever)
	ctx := context.Background()

	state := gate.NewSession()
	for _, u := range []string{"persistent cough", "A few days", "Mild", "No"} {
		_, err := gate.HandleTurn(ctx, state, u)
		require.NoError(t, err)
	}

	assert.Equal(t, domain.PhaseDone, state.Phase)
	last := state.Transcript[len(state.Transcript)-1]
	assert.Contains(t, last.Content, "general knowledge only")
}

func TestGateModelFollowupParsed(t *testing.T) {
	followup := "Question: Where is the pain located?\nA) Forehead\nB) Back of the head\nC) One side"
	llm := &mockLLM{responses: []string{followup}}
	gate := newTestGate(&mockClassifier{matched: true}, llm, &mockRetriever{})

	state := gate.NewSession()
	reply, err := gate.HandleTurn(context.Background(), state, "headache for two days")
	require.NoError(t, err)

	require.NotNil(t, reply.Followup)
	assert.Equal(t, "Where is the pain located?", reply.Followup.Question)
	assert.Equal(t, []string{"Forehead", "Back of the head", "One side"}, reply.Followup.Options)
	assert.Contains(t, reply.Message, "Question 1 of 3")
}

func TestParseFollowupRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no question line", "A) Yes\nB) No"},
		{"one option", "Question: Any fever?\nA) Yes"},
		{"no options", "Question: Any fever?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFollowup(tt.raw)
			assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
		})
	}
}
