package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/model"
	"github.com/veilhq/veil/internal/oracle"
	"github.com/veilhq/veil/internal/validate"
)

func acceptVerdict(confidence float64) []oracle.Verdict {
	return []oracle.Verdict{{Accept: true, Confidence: confidence, HasConfidence: true}}
}

func rejectVerdict() []oracle.Verdict {
	return []oracle.Verdict{{Accept: false, HasConfidence: true}}
}

type fakeResolver struct {
	bundle model.ContextBundle
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, _ model.CandidateEntity, _ model.DocumentChunk) (model.ContextBundle, error) {
	f.calls++
	return f.bundle, f.err
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Retry = fastRetry()
	return cfg
}

func ssnChunk() (model.CandidateEntity, model.DocumentChunk) {
	chunk := model.DocumentChunk{
		Text:        "SSN: 123-45-6789 on file",
		StartOffset: 0,
		EndOffset:   24,
	}
	cand := model.CandidateEntity{
		RawText:   "123-45-6789",
		TypeGuess: model.TypeSSN,
		Start:     5,
		End:       16,
	}
	return cand, chunk
}

func TestClassifyAcceptsConfidentCandidate(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: acceptVerdict(0.95)}

	c := NewClassifier(client, validate.New(), nil, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	require.NotNil(t, entity)

	assert.Equal(t, model.TypeSSN, entity.Type)
	assert.Equal(t, "123-45-6789", entity.Text)
	assert.Equal(t, "123456789", entity.Canonical,
		"the validator's canonical form rides along for grouping")
	assert.Equal(t, 5, entity.Start)
	assert.Equal(t, 16, entity.End)
	assert.InDelta(t, 0.95, entity.Confidence, 1e-9)
}

func TestClassifyRejectsMonetaryAmountsWithoutOracleCall(t *testing.T) {
	chunk := model.DocumentChunk{Text: "Payment of $1,234.56 received", EndOffset: 29}
	cand := model.CandidateEntity{
		RawText:   "$1,234.56",
		TypeGuess: model.TypeAccountNumber,
		Start:     11,
		End:       20,
	}
	client := &fakeClient{}

	c := NewClassifier(client, validate.New(), nil, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	assert.Nil(t, entity)
	assert.Zero(t, client.verifyCalls, "amounts are excluded before any oracle query")
}

func TestClassifyRejectsOnOracleNo(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: rejectVerdict()}

	c := NewClassifier(client, validate.New(), nil, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestClassifyRejectsOnValidatorFailure(t *testing.T) {
	// Oracle says yes, but the text cannot be an SSN.
	chunk := model.DocumentChunk{Text: "SSN: 666-45-6789 on file", EndOffset: 24}
	cand := model.CandidateEntity{
		RawText:   "666-45-6789",
		TypeGuess: model.TypeSSN,
		Start:     5,
		End:       16,
	}
	client := &fakeClient{verdicts: acceptVerdict(0.99)}

	c := NewClassifier(client, validate.New(), nil, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestClassifyDropsBelowFloor(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: acceptVerdict(0.6)}

	c := NewClassifier(client, validate.New(), nil, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestClassifyAmbiguousSecondPassSupersedes(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: append(acceptVerdict(0.7), acceptVerdict(0.92)...)}
	resolver := &fakeResolver{bundle: model.ContextBundle{
		Query: "q",
		Patterns: []model.ScoredPattern{
			{RAGPattern: model.RAGPattern{PatternText: `\d{3}-\d{2}-\d{4}`, Type: model.TypeSSN}, Score: 0.8},
		},
	}}

	c := NewClassifier(client, validate.New(), resolver, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	require.NotNil(t, entity)

	assert.InDelta(t, 0.92, entity.Confidence, 1e-9)
	assert.Equal(t, 1, resolver.calls, "disambiguation is bounded to a single retrieval")
	assert.Equal(t, 2, client.verifyCalls)
}

func TestClassifyAmbiguousSecondPassRejects(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: append(acceptVerdict(0.7), rejectVerdict()...)}
	resolver := &fakeResolver{bundle: model.ContextBundle{
		Query: "q",
		Patterns: []model.ScoredPattern{
			{RAGPattern: model.RAGPattern{PatternText: "p", Type: model.TypeSSN}, Score: 0.5},
		},
	}}

	c := NewClassifier(client, validate.New(), resolver, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestClassifyAmbiguousEmptyBundleKeepsConfidence(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: acceptVerdict(0.7)}
	resolver := &fakeResolver{}

	c := NewClassifier(client, validate.New(), resolver, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	assert.Nil(t, entity, "0.7 stays below the floor when retrieval finds nothing")
	assert.Equal(t, 1, client.verifyCalls, "no second oracle pass without context")
}

func TestClassifyResolverFailureIsNonFatal(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: acceptVerdict(0.7)}
	resolver := &fakeResolver{err: errors.New("store offline")}

	c := NewClassifier(client, validate.New(), resolver, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err, "retrieval failure degrades, it does not abort")
	assert.Nil(t, entity)
}

func TestClassifySkipsDisambiguationAboveBand(t *testing.T) {
	cand, chunk := ssnChunk()
	client := &fakeClient{verdicts: acceptVerdict(0.95)}
	resolver := &fakeResolver{}

	c := NewClassifier(client, validate.New(), resolver, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Zero(t, resolver.calls)
}

func TestHeuristicConfidenceMonotonic(t *testing.T) {
	base := heuristicConfidence(false, 0)
	assert.InDelta(t, 0.5, base, 1e-9)

	withValidator := heuristicConfidence(true, 0)
	assert.Greater(t, withValidator, base)

	prev := withValidator
	for signals := 1; signals <= 3; signals++ {
		got := heuristicConfidence(true, signals)
		assert.Greater(t, got, prev)
		prev = got
	}

	assert.Equal(t, heuristicConfidence(true, 3), heuristicConfidence(true, 10),
		"keyword contribution saturates")
	assert.LessOrEqual(t, heuristicConfidence(true, 10), 0.95)
}

func TestClassifyUsesHeuristicWhenOracleOmitsConfidence(t *testing.T) {
	chunk := model.DocumentChunk{
		Text:        "Account No. 1234-5678-9012 statement",
		StartOffset: 0,
		EndOffset:   36,
	}
	cand := model.CandidateEntity{
		RawText:   "1234-5678-9012",
		TypeGuess: model.TypeAccountNumber,
		Start:     12,
		End:       26,
	}
	client := &fakeClient{verdicts: []oracle.Verdict{{Accept: true}}}

	c := NewClassifier(client, validate.New(), nil, nil, testConfig(), nil)
	entity, err := c.Classify(context.Background(), cand, chunk)
	require.NoError(t, err)
	require.NotNil(t, entity)
	// Validator acceptance plus the "account" and "no." cues nearby.
	assert.InDelta(t, 0.86, entity.Confidence, 1e-9)
}
