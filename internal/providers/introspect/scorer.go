package introspect

import "strings"

// DefaultEndpointName is invoked when no declared endpoint scores above zero.
const DefaultEndpointName = "/predict"

// Candidate is a scored endpoint. Candidates are ephemeral: computed per
// dispatch attempt and ordered by descending score with declaration-order
// tie break.
type Candidate struct {
	Endpoint Endpoint
	Score    int
}

// SelectEndpoint ranks every declared endpoint by how well its parameters
// match an image-to-video call and returns the best one. Endpoints with
// zero, one or many parameters are all tolerated. When nothing scores, the
// conventional default endpoint is returned.
func SelectEndpoint(api API) Candidate {
	best := Candidate{Endpoint: Endpoint{Name: DefaultEndpointName, Named: true}}
	for _, ep := range api.Endpoints {
		score := scoreEndpoint(ep)
		if score > best.Score {
			best = Candidate{Endpoint: ep, Score: score}
		}
	}
	return best
}

func scoreEndpoint(ep Endpoint) int {
	score := 0
	if hasParam(ep, suggestsImage) {
		score += 5
	}
	if hasParam(ep, suggestsPrompt) {
		score += 5
	}
	if hasParam(ep, suggestsDuration) {
		score += 2
	}
	if hasParam(ep, suggestsSteps) {
		score += 1
	}
	// Named endpoints edge out positionally-indexed twins.
	if score > 0 && ep.Named {
		score += 1
	}
	return score
}

func hasParam(ep Endpoint, pred func(Parameter) bool) bool {
	for _, p := range ep.Parameters {
		if pred(p) {
			return true
		}
	}
	return false
}

func suggestsImage(p Parameter) bool {
	label := strings.ToLower(p.Label)
	component := strings.ToLower(p.Component)
	return strings.Contains(label, "image") || strings.Contains(label, "img") ||
		component == "image" || component == "gallery"
}

func suggestsPrompt(p Parameter) bool {
	label := strings.ToLower(p.Label)
	if strings.Contains(label, "negative") {
		return false
	}
	if strings.Contains(label, "prompt") {
		return true
	}
	return strings.ToLower(p.Component) == "textbox"
}

func suggestsDuration(p Parameter) bool {
	label := strings.ToLower(p.Label)
	return strings.Contains(label, "duration") || strings.Contains(label, "seconds") ||
		strings.Contains(label, "length")
}

func suggestsSteps(p Parameter) bool {
	return strings.Contains(strings.ToLower(p.Label), "step")
}
