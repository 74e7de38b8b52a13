package detect

import (
	"strings"

	"github.com/veilhq/veil/internal/model"
)

// contextKeywords are corroborating terms whose presence near a candidate
// raises heuristic confidence for that type.
var contextKeywords = map[model.PIIType][]string{
	model.TypePersonName:    {"name", "holder", "customer", "mr", "mrs", "ms", "dear"},
	model.TypeAddress:       {"address", "street", "city", "state", "zip", "mailing"},
	model.TypeAccountNumber: {"account", "acct", "no.", "number", "iban"},
	model.TypeRoutingNumber: {"routing", "aba", "transit"},
	model.TypePhoneNumber:   {"phone", "tel", "call", "fax", "mobile"},
	model.TypeEmail:         {"email", "e-mail", "contact"},
	model.TypeOrganization:  {"bank", "inc", "llc", "corp", "company"},
	model.TypeCardNumber:    {"card", "credit", "debit", "visa", "mastercard"},
	model.TypeSSN:           {"ssn", "social security", "tax"},
	model.TypeDateOfBirth:   {"birth", "dob", "born"},
	model.TypeIPAddress:     {"ip", "login", "device"},
	model.TypeURL:           {"www", "http", "visit", "online"},
}

const (
	baseConfidence    = 0.5
	validatorWeight   = 0.2
	keywordWeight     = 0.08
	maxKeywordSignals = 3
	heuristicCap      = 0.95
)

// heuristicConfidence derives a confidence when the oracle supplies none.
// It is monotonic in the number of corroborating signals: validator
// acceptance and each nearby context keyword only ever raise the score.
func heuristicConfidence(validatorAccepted bool, keywordSignals int) float64 {
	score := baseConfidence
	if validatorAccepted {
		score += validatorWeight
	}
	if keywordSignals > maxKeywordSignals {
		keywordSignals = maxKeywordSignals
	}
	score += float64(keywordSignals) * keywordWeight
	if score > heuristicCap {
		score = heuristicCap
	}
	return score
}

// corroboratingSignals counts distinct context keywords for the candidate's
// type within its neighborhood.
func corroboratingSignals(cand model.CandidateEntity, chunk model.DocumentChunk) int {
	keywords := contextKeywords[cand.TypeGuess]
	if len(keywords) == 0 {
		return 0
	}
	hood := strings.ToLower(neighborhood(cand, chunk, 60))
	count := 0
	for _, kw := range keywords {
		if strings.Contains(hood, kw) {
			count++
		}
	}
	return count
}
