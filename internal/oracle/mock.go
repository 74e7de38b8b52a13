package oracle

import (
	"context"
	"regexp"
	"sync"
)

// MockClient is a deterministic, offline implementation of Client. It finds
// spans with regular expressions over the request text and answers Verify
// from a fixed per-type confidence table, so pipelines can be exercised
// without a running model.
type MockClient struct {
	detectErr    error
	verifyErr    error
	confidences  map[string]float64
	mu           sync.Mutex
	detectCalls  int
	verifyCalls  int
	failDetectAt int
	failVerifyAt int
}

var mockPatterns = []struct {
	re  *regexp.Regexp
	typ string
}{
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "ssn"},
	{regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`), "account_number"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "email"},
	{regexp.MustCompile(`\(\d{3}\)\s?\d{3}-\d{4}|\b\d{3}-\d{3}-\d{4}\b`), "phone_number"},
	{regexp.MustCompile(`\b(?:Mr\.|Mrs\.|Ms\.|Dr\.)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`), "person_name"},
}

// NewMockClient creates a mock oracle with a full-confidence verify table.
func NewMockClient() *MockClient {
	return &MockClient{
		confidences: map[string]float64{
			"ssn":            0.99,
			"account_number": 0.95,
			"email":          0.97,
			"phone_number":   0.93,
			"person_name":    0.90,
		},
		failDetectAt: -1,
		failVerifyAt: -1,
	}
}

// SetConfidence overrides the verify confidence returned for one type.
func (m *MockClient) SetConfidence(typ string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences[typ] = confidence
}

// FailDetectAt makes the nth Detect call (1-based) return err.
func (m *MockClient) FailDetectAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDetectAt = n
	m.detectErr = err
}

// FailVerifyAt makes the nth Verify call (1-based) return err.
func (m *MockClient) FailVerifyAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failVerifyAt = n
	m.verifyErr = err
}

// DetectCalls reports how many Detect calls have been made.
func (m *MockClient) DetectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectCalls
}

// VerifyCalls reports how many Verify calls have been made.
func (m *MockClient) VerifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyCalls
}

// Detect scans the request text with the fixed pattern table.
func (m *MockClient) Detect(_ context.Context, req Request) ([]Span, error) {
	m.mu.Lock()
	m.detectCalls++
	if m.detectCalls == m.failDetectAt {
		err := m.detectErr
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	var spans []Span
	for _, p := range mockPatterns {
		for _, loc := range p.re.FindAllStringIndex(req.Text, -1) {
			if covered(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, Span{
				Text:  req.Text[loc[0]:loc[1]],
				Type:  p.typ,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	return spans, nil
}

// Verify answers from the confidence table. Types absent from the table are
// rejected with zero confidence.
func (m *MockClient) Verify(_ context.Context, req Request) (Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.verifyCalls++
	if m.verifyCalls == m.failVerifyAt {
		return Verdict{}, m.verifyErr
	}

	for _, p := range mockPatterns {
		if p.re.MatchString(req.Text) {
			c := m.confidences[p.typ]
			return Verdict{Accept: c > 0, Confidence: c, HasConfidence: true}, nil
		}
	}
	return Verdict{Accept: false, Confidence: 0, HasConfidence: true}, nil
}

func covered(spans []Span, start, end int) bool {
	for _, s := range spans {
		if start < s.End && s.Start < end {
			return true
		}
	}
	return false
}
