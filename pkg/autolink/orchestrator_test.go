package autolink

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/models"
)

type fakeMatcher struct {
	candidates []models.MatchCandidate
	err        error
	calls      int
}

func (f *fakeMatcher) SuggestMatches(_ context.Context, _ string, _ models.MatchSignals, _ int) ([]models.MatchCandidate, error) {
	f.calls++
	return f.candidates, f.err
}

type fakeSearcher struct {
	results map[string][]models.SearchResult
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, _, query, kind string, _ int) ([]models.SearchResult, error) {
	f.queries = append(f.queries, kind+":"+query)
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return f.results[kind], nil
}

type createdLink struct {
	source models.EntityRef
	target models.EntityRef
	label  string
	auto   bool
}

type fakeLinker struct {
	created []createdLink
	fail    bool
	panics  bool
}

func (f *fakeLinker) CreateLink(_ context.Context, _ string, source, target models.EntityRef, label string, autoLinked bool) bool {
	if f.panics {
		panic("linker exploded")
	}
	if f.fail {
		return false
	}
	f.created = append(f.created, createdLink{source: source, target: target, label: label, auto: autoLinked})
	return true
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func knownSender() *fakeMatcher {
	return &fakeMatcher{candidates: []models.MatchCandidate{
		{ContactID: "contact-42", DisplayName: "Alice Nguyen", Confidence: 0.95},
	}}
}

func testMessage() models.InboundMessage {
	return models.InboundMessage{
		ThreadRef:   "thread-9",
		SenderPhone: "+61400123456",
		SenderName:  "Alice Nguyen",
		Content:     "Can you update the Q3 roadmap and close out the launch checklist?",
	}
}

func TestRunBlocksUnknownSender(t *testing.T) {
	searcher := &fakeSearcher{}
	linker := &fakeLinker{}
	o := NewOrchestrator(noopLogger(), &fakeMatcher{}, searcher, linker, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	assert.Equal(t, 0, result.LinksCreated)
	assert.Empty(t, result.Matches.Contacts)
	// message content must never reach the search backend
	assert.Empty(t, searcher.queries)
	assert.Empty(t, linker.created)
}

func TestRunBlocksWeakSenderMatch(t *testing.T) {
	matcher := &fakeMatcher{candidates: []models.MatchCandidate{
		{ContactID: "contact-42", Confidence: 0.6},
	}}
	searcher := &fakeSearcher{}
	o := NewOrchestrator(noopLogger(), matcher, searcher, &fakeLinker{}, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	assert.Equal(t, 0, result.LinksCreated)
	assert.Empty(t, searcher.queries)
}

func TestRunBlocksOnMatcherError(t *testing.T) {
	matcher := &fakeMatcher{err: errors.New("store down")}
	searcher := &fakeSearcher{}
	o := NewOrchestrator(noopLogger(), matcher, searcher, &fakeLinker{}, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	assert.Equal(t, 0, result.LinksCreated)
	assert.Empty(t, searcher.queries)
}

func TestRunSkipsMatcherWhenNoSenderSignals(t *testing.T) {
	matcher := &fakeMatcher{}
	o := NewOrchestrator(noopLogger(), matcher, &fakeSearcher{}, &fakeLinker{}, DefaultConfig())

	msg := testMessage()
	msg.SenderPhone = ""
	msg.SenderEmail = ""
	msg.SenderName = ""

	result := o.Run(context.Background(), "tenant-1", msg, 0)

	assert.Equal(t, 0, result.LinksCreated)
	assert.Equal(t, 0, matcher.calls)
}

func TestRunLinksSenderAndContent(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.SearchResult{
		"project": {
			{ID: "proj-1", Title: "Q3 Roadmap", Score: 0.9, Kind: "project"},
			{ID: "proj-2", Title: "Old Plan", Score: 0.5, Kind: "project"},
		},
		"todo": {
			{ID: "todo-7", Title: "Launch checklist", Score: 0.8, Kind: "task"},
		},
	}}
	linker := &fakeLinker{}
	o := NewOrchestrator(noopLogger(), knownSender(), searcher, linker, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	assert.Equal(t, 3, result.LinksCreated)
	assert.Equal(t, []string{"contact-42"}, result.Matches.Contacts)
	assert.Equal(t, []string{"proj-1"}, result.Matches.Projects)
	assert.Equal(t, []string{"todo-7"}, result.Matches.Todos)

	require.Len(t, linker.created, 3)
	sender := linker.created[0]
	assert.Equal(t, models.EntityTypeThread, sender.source.Type)
	assert.Equal(t, "thread-9", sender.source.ID)
	assert.Equal(t, models.EntityTypeContact, sender.target.Type)
	assert.Equal(t, SenderLinkLabel, sender.label)
	assert.True(t, sender.auto)
}

func TestRunLinksEveryStrongSenderCandidate(t *testing.T) {
	matcher := &fakeMatcher{candidates: []models.MatchCandidate{
		{ContactID: "contact-42", Confidence: 0.98},
		{ContactID: "contact-43", Confidence: 0.92},
		{ContactID: "contact-44", Confidence: 0.6},
	}}
	linker := &fakeLinker{}
	o := NewOrchestrator(noopLogger(), matcher, &fakeSearcher{}, linker, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	// both exact-tier contacts linked, the weak one ignored
	assert.Equal(t, 2, result.LinksCreated)
	assert.Equal(t, []string{"contact-42", "contact-43"}, result.Matches.Contacts)
}

func TestRunGatesOnWrittenSenderLink(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.SearchResult{
		"project": {{ID: "proj-1", Score: 0.9, Kind: "project"}},
	}}
	linker := &fakeLinker{fail: true}
	o := NewOrchestrator(noopLogger(), knownSender(), searcher, linker, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	// the sender was identified but no link landed, so content never leaves
	assert.Equal(t, 0, result.LinksCreated)
	assert.Empty(t, searcher.queries)
}

func TestRunThresholdOverride(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.SearchResult{
		"project": {{ID: "proj-1", Score: 0.9, Kind: "project"}},
		"todo":    {{ID: "todo-7", Score: 0.8, Kind: "todo"}},
	}}
	linker := &fakeLinker{}
	o := NewOrchestrator(noopLogger(), knownSender(), searcher, linker, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0.85)

	// sender link plus the one hit clearing the raised bar
	assert.Equal(t, 2, result.LinksCreated)
	assert.Equal(t, []string{"proj-1"}, result.Matches.Projects)
	assert.Empty(t, result.Matches.Todos)
}

func TestRunSkipsUnknownResultKinds(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.SearchResult{
		"project": {{ID: "note-1", Score: 0.95, Kind: "note"}},
	}}
	linker := &fakeLinker{}
	o := NewOrchestrator(noopLogger(), knownSender(), searcher, linker, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	// only the sender link
	assert.Equal(t, 1, result.LinksCreated)
	assert.Empty(t, result.Matches.Projects)
	assert.Empty(t, result.Matches.Todos)
}

func TestRunDegradesOnSearchFailure(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]models.SearchResult{
			"todo": {{ID: "todo-7", Score: 0.8, Kind: "todo"}},
		},
		errs: map[string]error{"project": errors.New("search backend down")},
	}
	linker := &fakeLinker{}
	o := NewOrchestrator(noopLogger(), knownSender(), searcher, linker, DefaultConfig())

	result := o.Run(context.Background(), "tenant-1", testMessage(), 0)

	assert.Equal(t, 2, result.LinksCreated)
	assert.Empty(t, result.Matches.Projects)
	assert.Equal(t, []string{"todo-7"}, result.Matches.Todos)
}

func TestRunSkipsContentWhenEmpty(t *testing.T) {
	searcher := &fakeSearcher{}
	linker := &fakeLinker{}
	o := NewOrchestrator(noopLogger(), knownSender(), searcher, linker, DefaultConfig())

	msg := testMessage()
	msg.Content = "   \t\n "

	result := o.Run(context.Background(), "tenant-1", msg, 0)

	assert.Equal(t, 1, result.LinksCreated)
	assert.Empty(t, searcher.queries)
}

func TestRunNeverPanics(t *testing.T) {
	linker := &fakeLinker{panics: true}
	o := NewOrchestrator(noopLogger(), knownSender(), &fakeSearcher{}, linker, DefaultConfig())

	var result models.AutoLinkResult
	require.NotPanics(t, func() {
		result = o.Run(context.Background(), "tenant-1", testMessage(), 0)
	})
	assert.Equal(t, 0, result.LinksCreated)
}

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{name: "collapses whitespace", input: "hello \t world", maxLen: 100, expected: "hello world"},
		{name: "control characters become separators", input: "a\x00b\x07c", maxLen: 100, expected: "a b c"},
		{name: "trims edges", input: "  trimmed  ", maxLen: 100, expected: "trimmed"},
		{name: "truncates at word boundary", input: "alpha beta gamma", maxLen: 12, expected: "alpha beta"},
		{name: "truncates on a rune boundary", input: strings.Repeat("日", 5), maxLen: 10, expected: strings.Repeat("日", 3)},
		{name: "rune boundary then word boundary", input: "report 日本語のメモ", maxLen: 16, expected: "report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeContent(tt.input, tt.maxLen)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
