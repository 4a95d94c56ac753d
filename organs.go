package kairos

import (
	"math"
	"strings"
)

// DefaultAtoms is the shared semantic atom set scored by the reference
// organs. Engines with domain-specific atoms supply their own organs.
func DefaultAtoms() []string {
	return []string{"inquiry", "novelty", "safety", "urgency", "warmth"}
}

// priorBias is how strongly an organ lets the coupling prior tilt its
// activations. Kept weak so live evidence dominates.
const priorBias = 0.1

// applyPrior nudges each activation by the persisted coupling between the
// organ and the atom, then re-clamps.
func applyPrior(organ string, activations map[string]float64, prior CouplingSnapshot) {
	for atom, v := range activations {
		activations[atom] = clamp01(v + priorBias*prior.Prior(organ, atom))
	}
}

// evidenceResult converts per-atom evidence counts into an OrganResult.
// Coherence reflects how concentrated the evidence is: one dominant atom
// reads as high agreement, evidence smeared across all atoms reads low.
func evidenceResult(organ string, atoms []string, evidence map[string]float64, tokens int) OrganResult {
	total := 0.0
	peak := 0.0
	for _, v := range evidence {
		total += v
		if v > peak {
			peak = v
		}
	}
	if total == 0 || tokens == 0 {
		return BalancedResult(organ, atoms)
	}

	activations := make(map[string]float64, len(evidence))
	for atom, v := range evidence {
		if v == 0 {
			continue
		}
		activations[atom] = clamp01(v / float64(tokens) * 3.0)
	}

	concentration := peak / total
	coverage := clamp01(total / float64(tokens))
	lure := 0.0
	for _, v := range activations {
		if v > lure {
			lure = v
		}
	}

	return OrganResult{
		Organ:       organ,
		Coherence:   clamp01(0.4 + 0.4*concentration + 0.2*coverage),
		Lure:        lure,
		Activations: activations,
	}
}

// LexiconOrgan activates atoms from keyword affinity: each atom carries a
// small lexicon and scores by matched-token count.
type LexiconOrgan struct {
	name    string
	atoms   []string
	lexicon map[string][]string
}

// NewLexiconOrgan builds a keyword organ from an atom -> keywords map.
func NewLexiconOrgan(name string, lexicon map[string][]string) *LexiconOrgan {
	atoms := make([]string, 0, len(lexicon))
	for atom := range lexicon {
		atoms = append(atoms, atom)
	}
	return &LexiconOrgan{name: name, atoms: atoms, lexicon: lexicon}
}

// DefaultLexiconOrgan covers the default atom set with a conversational
// keyword lexicon.
func DefaultLexiconOrgan() *LexiconOrgan {
	return NewLexiconOrgan("lexicon", map[string][]string{
		"safety":  {"safe", "secure", "protect", "careful", "risk", "danger", "harm"},
		"urgency": {"now", "urgent", "immediately", "quick", "hurry", "deadline", "asap"},
		"warmth":  {"thanks", "thank", "please", "glad", "happy", "love", "appreciate"},
		"inquiry": {"what", "why", "how", "when", "where", "who", "wonder"},
		"novelty": {"new", "never", "first", "strange", "surprise", "unusual", "different"},
	})
}

func (o *LexiconOrgan) Name() string    { return o.name }
func (o *LexiconOrgan) Atoms() []string { return o.atoms }

func (o *LexiconOrgan) Evaluate(w Window, prior CouplingSnapshot) OrganResult {
	evidence := make(map[string]float64, len(o.atoms))
	tokens := 0
	for i := 0; i < w.Len(); i++ {
		tok := normalizeToken(w.At(i).Content)
		if tok == "" {
			continue
		}
		tokens++
		for atom, words := range o.lexicon {
			for _, word := range words {
				if tok == word {
					evidence[atom]++
					break
				}
			}
		}
	}

	result := evidenceResult(o.name, o.atoms, evidence, tokens)
	applyPrior(o.name, result.Activations, prior)
	return result
}

// CadenceOrgan reads rhythm: token lengths, punctuation, and sentence
// shape. Short clipped windows pull toward urgency, long even ones
// toward inquiry and safety.
type CadenceOrgan struct{}

func (CadenceOrgan) Name() string    { return "cadence" }
func (CadenceOrgan) Atoms() []string { return DefaultAtoms() }

func (c CadenceOrgan) Evaluate(w Window, prior CouplingSnapshot) OrganResult {
	n := w.Len()
	totalLen := 0
	exclaims := 0
	questions := 0
	for i := 0; i < n; i++ {
		content := w.At(i).Content
		totalLen += len(content)
		if strings.ContainsRune(content, '!') {
			exclaims++
		}
		if strings.ContainsRune(content, '?') {
			questions++
		}
	}
	meanLen := float64(totalLen) / float64(n)

	variance := 0.0
	for i := 0; i < n; i++ {
		d := float64(len(w.At(i).Content)) - meanLen
		variance += d * d
	}
	variance /= float64(n)
	evenness := clamp01(1.0 - math.Sqrt(variance)/(meanLen+1))

	activations := map[string]float64{
		"urgency": clamp01(float64(exclaims)/float64(n)*2.0 + clamp01((4.0-meanLen)/4.0)*0.5),
		"inquiry": clamp01(float64(questions) / float64(n) * 2.0),
		"safety":  clamp01(evenness * 0.6),
	}
	lure := 0.0
	for _, v := range activations {
		if v > lure {
			lure = v
		}
	}

	result := OrganResult{
		Organ:       "cadence",
		Coherence:   clamp01(0.3 + 0.5*evenness),
		Lure:        lure,
		Activations: activations,
	}
	applyPrior("cadence", result.Activations, prior)
	return result
}

// AffectOrgan reads valence from small positive/negative lexicons and
// maps it onto warmth and safety.
type AffectOrgan struct{}

var affectPositive = []string{"good", "great", "glad", "happy", "love", "thanks", "thank", "wonderful", "fine", "yes"}

var affectNegative = []string{"bad", "angry", "afraid", "hate", "worried", "scared", "wrong", "danger", "no", "never"}

func (AffectOrgan) Name() string    { return "affect" }
func (AffectOrgan) Atoms() []string { return DefaultAtoms() }

func (a AffectOrgan) Evaluate(w Window, prior CouplingSnapshot) OrganResult {
	pos, neg := 0, 0
	tokens := 0
	for i := 0; i < w.Len(); i++ {
		tok := normalizeToken(w.At(i).Content)
		if tok == "" {
			continue
		}
		tokens++
		for _, word := range affectPositive {
			if tok == word {
				pos++
				break
			}
		}
		for _, word := range affectNegative {
			if tok == word {
				neg++
				break
			}
		}
	}
	if pos+neg == 0 || tokens == 0 {
		return BalancedResult("affect", DefaultAtoms())
	}

	valence := float64(pos-neg) / float64(pos+neg) // [-1,1]
	intensity := clamp01(float64(pos+neg) / float64(tokens) * 2.0)

	activations := map[string]float64{
		"warmth":  clamp01((valence + 1) / 2 * intensity),
		"safety":  clamp01((1 - valence) / 2 * intensity * 0.8),
		"urgency": clamp01((1 - valence) / 2 * intensity * 0.6),
	}

	result := OrganResult{
		Organ:       "affect",
		Coherence:   clamp01(0.4 + 0.4*math.Abs(valence) + 0.2*intensity),
		Lure:        intensity,
		Activations: activations,
	}
	applyPrior("affect", result.Activations, prior)
	return result
}

// RecurrenceOrgan activates novelty inversely to repetition: windows
// dominated by repeated tokens read as low novelty, high safety; windows
// of mostly fresh tokens pull toward novelty.
type RecurrenceOrgan struct{}

func (RecurrenceOrgan) Name() string    { return "recurrence" }
func (RecurrenceOrgan) Atoms() []string { return DefaultAtoms() }

func (r RecurrenceOrgan) Evaluate(w Window, prior CouplingSnapshot) OrganResult {
	seen := make(map[string]int)
	tokens := 0
	for i := 0; i < w.Len(); i++ {
		tok := normalizeToken(w.At(i).Content)
		if tok == "" {
			continue
		}
		tokens++
		seen[tok]++
	}
	if tokens == 0 {
		return BalancedResult("recurrence", DefaultAtoms())
	}

	distinct := float64(len(seen)) / float64(tokens)

	activations := map[string]float64{
		"novelty": clamp01(distinct*distinct - 0.1),
		"safety":  clamp01((1 - distinct) * 1.5),
	}

	result := OrganResult{
		Organ:       "recurrence",
		Coherence:   clamp01(0.5 + 0.3*math.Abs(distinct-0.5)*2),
		Lure:        clamp01(math.Max(activations["novelty"], activations["safety"])),
		Activations: activations,
	}
	applyPrior("recurrence", result.Activations, prior)
	return result
}

// DefaultRegistry wires the four reference organs over the default atoms.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(
		DefaultLexiconOrgan(),
		CadenceOrgan{},
		AffectOrgan{},
		RecurrenceOrgan{},
	)
	return r
}

// normalizeToken lowercases and strips surrounding punctuation.
func normalizeToken(tok string) string {
	return strings.Trim(strings.ToLower(tok), ".,;:!?\"'()[]{}")
}
