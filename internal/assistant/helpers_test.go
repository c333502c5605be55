package assistant

import (
	"context"
	"errors"
	"sync"

	"github.com/anisalabs/anisa-platform/internal/account"
	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/internal/history"
)

// fakeProvider scripts the AI collaborator.
type fakeProvider struct {
	decision    ai.Decision
	decideErr   error
	decideCalls int
	lastWindow  []ai.Message
	lastTools   []ai.Tool

	generated   ai.ImageResult
	generateErr error

	edited  ai.ImageResult
	editErr error
	editGot []string

	analysis   ai.TextResult
	analyzeErr error

	searchRes ai.TextResult
	searchErr error
	searchGot string

	transcript    string
	transcribeErr error
}

func (f *fakeProvider) Decide(_ context.Context, _ string, window []ai.Message, tools []ai.Tool) (ai.Decision, error) {
	f.decideCalls++
	f.lastWindow = window
	f.lastTools = tools
	return f.decision, f.decideErr
}

func (f *fakeProvider) GenerateImage(_ context.Context, _ string) (ai.ImageResult, error) {
	return f.generated, f.generateErr
}

func (f *fakeProvider) EditImage(_ context.Context, _ string, images []string) (ai.ImageResult, error) {
	f.editGot = images
	return f.edited, f.editErr
}

func (f *fakeProvider) Analyze(_ context.Context, _ string, _ []string) (ai.TextResult, error) {
	return f.analysis, f.analyzeErr
}

func (f *fakeProvider) WebSearch(_ context.Context, query string) (ai.TextResult, error) {
	f.searchGot = query
	return f.searchRes, f.searchErr
}

func (f *fakeProvider) Transcribe(_ context.Context, _ string, _ []byte) (string, error) {
	return f.transcript, f.transcribeErr
}

// fakeMedia scripts the media collaborator.
type fakeMedia struct {
	uploadedURL string
	uploadErr   error
	uploads     int

	fetched  map[string]string
	fetchErr error

	audio    []byte
	audioErr error
}

func (f *fakeMedia) UploadImage(_ context.Context, _ string) (string, error) {
	f.uploads++
	return f.uploadedURL, f.uploadErr
}

func (f *fakeMedia) Fetch(_ context.Context, url string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	if f.fetched != nil {
		if uri, ok := f.fetched[url]; ok {
			return uri, nil
		}
	}
	return "data:image/jpeg;base64,ZmFrZQ==", nil
}

func (f *fakeMedia) FetchBytes(_ context.Context, _ string) ([]byte, string, error) {
	return f.audio, "audio/ogg", f.audioErr
}

// fakeHistory is an in-memory History.
type fakeHistory struct {
	mu        sync.Mutex
	turns     map[string][]history.Turn
	appendErr error
	recentErr error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{turns: make(map[string][]history.Turn)}
}

func (f *fakeHistory) Append(_ context.Context, userID string, turn history.Turn) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns[userID] = append(f.turns[userID], turn)
	return nil
}

func (f *fakeHistory) Recent(_ context.Context, userID string, limit int) ([]history.Turn, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	turns := f.turns[userID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]history.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (f *fakeHistory) all(userID string) []history.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]history.Turn, len(f.turns[userID]))
	copy(out, f.turns[userID])
	return out
}

// fakeAccounts is an in-memory Accounts with floor-at-zero and
// payment idempotency.
type fakeAccounts struct {
	mu       sync.Mutex
	balances map[string]int
	payments map[string]bool
	defaults int
	err      error
}

func newFakeAccounts(defaults int) *fakeAccounts {
	return &fakeAccounts{
		balances: make(map[string]int),
		payments: make(map[string]bool),
		defaults: defaults,
	}
}

func (f *fakeAccounts) GetOrCreate(_ context.Context, userID, language string) (account.User, error) {
	if f.err != nil {
		return account.User{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[userID]; !ok {
		f.balances[userID] = f.defaults
	}
	return account.User{ID: userID, Credits: f.balances[userID], Language: language}, nil
}

func (f *fakeAccounts) Decrement(_ context.Context, userID string, amount int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	balance := f.balances[userID] - amount
	if balance < 0 {
		balance = 0
	}
	f.balances[userID] = balance
	return balance, nil
}

func (f *fakeAccounts) AddCredits(_ context.Context, userID string, amount int, paymentID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payments[paymentID] {
		return f.balances[userID], nil
	}
	f.payments[paymentID] = true
	f.balances[userID] += amount
	return f.balances[userID], nil
}

func (f *fakeAccounts) balance(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

// fakeSink records deliveries.
type fakeSink struct {
	mu      sync.Mutex
	sent    []Result
	sendErr error
	topUps  []string
}

func (f *fakeSink) Send(_ context.Context, _ string, result Result) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, result)
	return nil
}

func (f *fakeSink) PromptTopUp(_ context.Context, userID, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topUps = append(f.topUps, userID+":"+language)
	return nil
}

func (f *fakeSink) results() []Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Result, len(f.sent))
	copy(out, f.sent)
	return out
}

var errBoom = errors.New("boom")
