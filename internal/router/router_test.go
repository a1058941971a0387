package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmarek/casebook/internal/classify"
	"github.com/dmarek/casebook/internal/provider"
	"github.com/dmarek/casebook/internal/retrieval"
)

type mockProvider struct {
	name      string
	available bool
	generate  func(ctx context.Context, messages []provider.Message, params provider.GenerateParams) (provider.Result, error)
	calls     int
}

func (m *mockProvider) Name() string      { return m.name }
func (m *mockProvider) IsAvailable() bool { return m.available }

func (m *mockProvider) Generate(ctx context.Context, messages []provider.Message, params provider.GenerateParams) (provider.Result, error) {
	m.calls++
	if m.generate == nil {
		return provider.Result{Text: "answer from " + m.name, Citations: []string{}}, nil
	}
	return m.generate(ctx, messages, params)
}

type mockKnowledge struct {
	context string
	calls   int
}

func (m *mockKnowledge) BuildLegalContext(_ context.Context, _ string) string {
	m.calls++
	return m.context
}

func bothProviders() (*mockProvider, *mockProvider) {
	fast := &mockProvider{name: provider.NameFastMultimodal, available: true}
	deep := &mockProvider{name: provider.NameDeepReasoning, available: true}
	return fast, deep
}

// A query that classifies as deep on its own: two doctrine signals.
const deepQuery = "Assess whether constructive dismissal or wrongful dismissal applies here"

func TestRoute_QuickEffortPrefersFastAndSkipsKnowledge(t *testing.T) {
	fast, deep := bothProviders()
	knowledge := &mockKnowledge{context: "RELEVANT CASE LAW: ..."}
	r := New(fast, deep, knowledge)

	answer, err := r.Route(context.Background(), Request{
		Query:  deepQuery,
		Effort: EffortQuick,
		Sources: []retrieval.SearchResult{
			{ChunkID: "c1", SourceFileName: "a.pdf", Content: "chunk"},
		},
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if answer.Provider != provider.NameFastMultimodal {
		t.Errorf("provider = %q, want fast despite deep complexity", answer.Provider)
	}
	if deep.calls != 0 {
		t.Errorf("deep provider called %d times", deep.calls)
	}
	if knowledge.calls != 0 {
		t.Errorf("knowledge built %d times, quick must skip it", knowledge.calls)
	}
	if answer.Citations == nil || len(answer.Citations) != 0 {
		t.Errorf("citations = %v, want empty non-nil", answer.Citations)
	}
}

func TestRoute_DeepEffortPrefersDeep(t *testing.T) {
	fast, deep := bothProviders()
	r := New(fast, deep, &mockKnowledge{})

	answer, err := r.Route(context.Background(), Request{Query: "What is a contract?", Effort: EffortDeep})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if answer.Provider != provider.NameDeepReasoning {
		t.Errorf("provider = %q, want deep despite simple query", answer.Provider)
	}
	if fast.calls != 0 {
		t.Errorf("fast provider called %d times", fast.calls)
	}
}

func TestRoute_DeepComplexityRoutesDeep(t *testing.T) {
	fast, deep := bothProviders()
	r := New(fast, deep, &mockKnowledge{})

	answer, err := r.Route(context.Background(), Request{Query: deepQuery})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if answer.Provider != provider.NameDeepReasoning {
		t.Errorf("provider = %q, want deep for deep complexity", answer.Provider)
	}
	if answer.Complexity != classify.Deep {
		t.Errorf("complexity = %q", answer.Complexity)
	}
	if answer.Effort != EffortStandard {
		t.Errorf("effort = %q, want default standard", answer.Effort)
	}
}

func TestRoute_FallsBackToAvailableProvider(t *testing.T) {
	fast := &mockProvider{name: provider.NameFastMultimodal, available: false}
	deep := &mockProvider{name: provider.NameDeepReasoning, available: true}
	r := New(fast, deep, &mockKnowledge{})

	answer, err := r.Route(context.Background(), Request{Query: "What is a tort?"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if answer.Provider != provider.NameDeepReasoning {
		t.Errorf("provider = %q, want deep when fast unavailable", answer.Provider)
	}
}

func TestRoute_NoProviderConfigured(t *testing.T) {
	fast := &mockProvider{name: provider.NameFastMultimodal, available: false}
	deep := &mockProvider{name: provider.NameDeepReasoning, available: false}
	r := New(fast, deep, &mockKnowledge{})

	_, err := r.Route(context.Background(), Request{Query: "anything"})
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Fatalf("err = %v, want ErrNoProviderConfigured", err)
	}
	if fast.calls != 0 || deep.calls != 0 {
		t.Errorf("provider calls made: fast=%d deep=%d", fast.calls, deep.calls)
	}

	// Nil providers behave the same as unavailable ones.
	_, err = New(nil, nil, nil).Route(context.Background(), Request{Query: "anything"})
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Fatalf("err = %v, want ErrNoProviderConfigured", err)
	}
}

func TestRoute_PayloadBlocksAndCitationInstruction(t *testing.T) {
	var captured []provider.Message
	fast := &mockProvider{name: provider.NameFastMultimodal, available: true,
		generate: func(_ context.Context, messages []provider.Message, _ provider.GenerateParams) (provider.Result, error) {
			captured = messages
			return provider.Result{Citations: []string{}}, nil
		}}
	r := New(fast, nil, &mockKnowledge{context: "RELEVANT CASE LAW:\nBardal"})

	_, err := r.Route(context.Background(), Request{
		Query:       "What notice applies?",
		CaseContext: "Matter: Smith v Acme, ON, employment",
		Sources: []retrieval.SearchResult{
			{ChunkID: "c1", SourceFileName: "agreement.pdf", Content: "four weeks notice"},
		},
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	last := captured[len(captured)-1].Content
	kcIdx := strings.Index(last, "RELEVANT CASE LAW")
	ccIdx := strings.Index(last, "Smith v Acme")
	srcIdx := strings.Index(last, "[Source 1: agreement.pdf]")
	citeIdx := strings.Index(last, "cite it inline as [Source N]")
	if kcIdx == -1 || ccIdx == -1 || srcIdx == -1 || citeIdx == -1 {
		t.Fatalf("payload missing a block:\n%s", last)
	}
	if !(kcIdx < ccIdx && ccIdx < srcIdx && srcIdx < citeIdx) {
		t.Errorf("blocks out of order: kc=%d cc=%d src=%d cite=%d", kcIdx, ccIdx, srcIdx, citeIdx)
	}
	if !strings.HasSuffix(last, "What notice applies?") {
		t.Errorf("query not last:\n%s", last)
	}
	if captured[0].Role != "system" {
		t.Errorf("first message role = %q", captured[0].Role)
	}
}

func TestRoute_NoCitationInstructionWithoutSources(t *testing.T) {
	var captured []provider.Message
	fast := &mockProvider{name: provider.NameFastMultimodal, available: true,
		generate: func(_ context.Context, messages []provider.Message, _ provider.GenerateParams) (provider.Result, error) {
			captured = messages
			return provider.Result{}, nil
		}}
	r := New(fast, nil, &mockKnowledge{})

	if _, err := r.Route(context.Background(), Request{Query: "What is consideration?"}); err != nil {
		t.Fatalf("Route: %v", err)
	}
	for _, m := range captured {
		if strings.Contains(m.Content, "[Source N]") {
			t.Errorf("citation instruction present without sources: %q", m.Content)
		}
	}
}

func TestRoute_HistoryWindowPerProvider(t *testing.T) {
	history := make([]provider.Message, 0, 10)
	for i := 0; i < 5; i++ {
		history = append(history,
			provider.Message{Role: "user", Content: "u"},
			provider.Message{Role: "assistant", Content: "a"})
	}

	var deepCount, fastCount int
	deep := &mockProvider{name: provider.NameDeepReasoning, available: true,
		generate: func(_ context.Context, messages []provider.Message, _ provider.GenerateParams) (provider.Result, error) {
			deepCount = len(messages)
			return provider.Result{}, nil
		}}
	fast := &mockProvider{name: provider.NameFastMultimodal, available: true,
		generate: func(_ context.Context, messages []provider.Message, _ provider.GenerateParams) (provider.Result, error) {
			fastCount = len(messages)
			return provider.Result{}, nil
		}}

	r := New(fast, deep, &mockKnowledge{})
	if _, err := r.Route(context.Background(), Request{Query: "q", Effort: EffortDeep, History: history}); err != nil {
		t.Fatalf("Route deep: %v", err)
	}
	if _, err := r.Route(context.Background(), Request{Query: "q", Effort: EffortQuick, History: history}); err != nil {
		t.Fatalf("Route quick: %v", err)
	}

	// Deep: system + 6 windowed turns + user. Fast: system + all 10 + user.
	if deepCount != 8 {
		t.Errorf("deep message count = %d, want 8", deepCount)
	}
	if fastCount != 12 {
		t.Errorf("fast message count = %d, want 12", fastCount)
	}
}

func TestRoute_EffortProfileReachesProvider(t *testing.T) {
	var got provider.GenerateParams
	deep := &mockProvider{name: provider.NameDeepReasoning, available: true,
		generate: func(_ context.Context, _ []provider.Message, params provider.GenerateParams) (provider.Result, error) {
			got = params
			return provider.Result{}, nil
		}}
	r := New(nil, deep, &mockKnowledge{})

	if _, err := r.Route(context.Background(), Request{Query: "q", Effort: EffortDeep}); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got.ReasoningDepth != provider.ReasoningHigh || got.MaxOutputTokens != 8192 {
		t.Errorf("params = %+v", got)
	}
}

func TestRoute_GenerateErrorPropagates(t *testing.T) {
	fast := &mockProvider{name: provider.NameFastMultimodal, available: true,
		generate: func(_ context.Context, _ []provider.Message, _ provider.GenerateParams) (provider.Result, error) {
			return provider.Result{}, errors.New("upstream 500")
		}}
	r := New(fast, nil, &mockKnowledge{})

	if _, err := r.Route(context.Background(), Request{Query: "q"}); err == nil {
		t.Fatal("expected generation error")
	}
}

func TestProfileFor(t *testing.T) {
	tests := []struct {
		effort EffortLevel
		depth  provider.ReasoningDepth
		tokens int
		chunks int
	}{
		{EffortQuick, provider.ReasoningNone, 1024, 4},
		{EffortStandard, provider.ReasoningLow, 2048, 8},
		{EffortThorough, provider.ReasoningMedium, 4096, 12},
		{EffortDeep, provider.ReasoningHigh, 8192, 16},
		{"bogus", provider.ReasoningLow, 2048, 8},
	}
	for _, tt := range tests {
		p := ProfileFor(tt.effort)
		if p.ReasoningDepth != tt.depth || p.MaxOutputTokens != tt.tokens || p.RetrievalChunkLimit != tt.chunks {
			t.Errorf("ProfileFor(%q) = %+v", tt.effort, p)
		}
	}
}

func TestParseEffort(t *testing.T) {
	if got, err := ParseEffort(""); err != nil || got != EffortStandard {
		t.Errorf("ParseEffort(\"\") = %v, %v", got, err)
	}
	if got, err := ParseEffort("thorough"); err != nil || got != EffortThorough {
		t.Errorf("ParseEffort(thorough) = %v, %v", got, err)
	}
	if _, err := ParseEffort("max"); err == nil {
		t.Error("ParseEffort(max) should fail")
	}
}
