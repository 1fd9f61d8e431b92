package retriever

import (
	"encoding/json"
	"strings"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// nameBoostExact and nameBoostSubset are the Stage 4's fixed bonuses.
const (
	nameBoostExact  = 0.25
	nameBoostSubset = 0.15
)

// boost applies the Stage 4: final = base * (1 + type_boost +
// name_boost) * score_weight. base is hit.Score as carried out of Stage 3.
func (r *Retriever) boost(hit Hit, queryTokens map[string]struct{}) float64 {
	base := hit.Score

	typeBoost := 0.0
	if objType, ok := payloadObjectType(hit.Payload); ok {
		typeBoost = r.Opts.TypeBoosts[strings.ToLower(objType)]
	}

	name, _ := hit.Payload["name"].(string)
	nameTokens := tokenSet(r.Tokens.Tokenize(name))
	nameBoost := nameBoostFor(queryTokens, nameTokens)

	scoreWeight, ok := hit.Payload["score_weight"].(float64)
	if !ok {
		scoreWeight = 1.0
	}

	return base * (1 + typeBoost + nameBoost) * scoreWeight
}

// nameBoostFor implements the Stage 4's name_boost rule exactly:
// 0.25 for an exact token-set match, 0.15 if the name's token set is a
// non-empty subset of the query's, else 0.
func nameBoostFor(queryTokens, nameTokens map[string]struct{}) float64 {
	if len(nameTokens) == 0 {
		return 0
	}
	if setsEqual(queryTokens, nameTokens) {
		return nameBoostExact
	}
	if isSubset(nameTokens, queryTokens) {
		return nameBoostSubset
	}
	return 0
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	return isSubset(a, b)
}

func isSubset(sub, super map[string]struct{}) bool {
	for k := range sub {
		if _, ok := super[k]; !ok {
			return false
		}
	}
	return true
}

// decodeRelationshipList recovers []codemodel.Relationship from a payload
// value that round-tripped through the store's JSON encoding (so it
// arrives back as []interface{} of map[string]interface{}, not the
// original typed slice).
func decodeRelationshipList(v interface{}) []codemodel.Relationship {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var rels []codemodel.Relationship
	if err := json.Unmarshal(raw, &rels); err != nil {
		return nil
	}
	return rels
}
