package kairos

import (
	"strings"

	"github.com/google/uuid"
)

// Occasion is one atomic unit of an utterance: a token with mutable
// per-cycle felt state. Occasions live inside the Utterance arena that
// created them and reference neighbors by index, never by pointer.
type Occasion struct {
	ID      string
	Index   int
	Content string

	// felt holds one slot per registered organ, written at most once per
	// cycle by the owning organ's goroutine.
	felt []float64

	Energy       float64
	Satisfaction float64
	Converged    bool
}

// Felt returns a copy of the occasion's felt vector.
func (o *Occasion) Felt() []float64 {
	out := make([]float64, len(o.felt))
	copy(out, o.felt)
	return out
}

// Utterance owns the occasions produced from one input. It is created
// per utterance, never shared across utterances, and discarded when the
// utterance finishes.
type Utterance struct {
	ID        string
	occasions []Occasion
}

// NewUtterance tokenizes content on whitespace into occasions with the
// given felt width (one slot per organ).
func NewUtterance(content string, organCount int) *Utterance {
	return NewUtteranceFromTokens(strings.Fields(content), organCount)
}

// NewUtteranceFromTokens builds an utterance from pre-tokenized input.
// Callers with their own tokenizer (extractors, sentence splitters) use
// this form.
func NewUtteranceFromTokens(tokens []string, organCount int) *Utterance {
	u := &Utterance{
		ID:        uuid.New().String(),
		occasions: make([]Occasion, len(tokens)),
	}
	for i, tok := range tokens {
		u.occasions[i] = Occasion{
			ID:      uuid.New().String(),
			Index:   i,
			Content: tok,
			felt:    make([]float64, organCount),
			Energy:  1.0,
		}
	}
	return u
}

// Len returns the occasion count.
func (u *Utterance) Len() int {
	return len(u.occasions)
}

// At returns the occasion at index i, or nil when out of range.
func (u *Utterance) At(i int) *Occasion {
	if i < 0 || i >= len(u.occasions) {
		return nil
	}
	return &u.occasions[i]
}

// Full returns a window spanning every occasion.
func (u *Utterance) Full() Window {
	return Window{u: u, lo: 0, hi: len(u.occasions)}
}

// Around returns a window of up to k occasions on each side of center,
// clamped at the utterance bounds.
func (u *Utterance) Around(center, k int) Window {
	lo := center - k
	if lo < 0 {
		lo = 0
	}
	hi := center + k + 1
	if hi > len(u.occasions) {
		hi = len(u.occasions)
	}
	if lo >= hi {
		return Window{u: u}
	}
	return Window{u: u, lo: lo, hi: hi}
}

// Window is a read-only view over a contiguous span of an utterance's
// occasions. Organs receive windows; they never hold the arena itself.
type Window struct {
	u      *Utterance
	lo, hi int
}

// Len returns the number of occasions in the window.
func (w Window) Len() int {
	if w.u == nil {
		return 0
	}
	return w.hi - w.lo
}

// Empty reports whether the window spans no occasions.
func (w Window) Empty() bool {
	return w.Len() == 0
}

// At returns the i-th occasion of the window, or nil when out of range.
func (w Window) At(i int) *Occasion {
	if i < 0 || i >= w.Len() {
		return nil
	}
	return &w.u.occasions[w.lo+i]
}

// Tokens returns the window's token contents in order.
func (w Window) Tokens() []string {
	out := make([]string, 0, w.Len())
	for i := 0; i < w.Len(); i++ {
		out = append(out, w.u.occasions[w.lo+i].Content)
	}
	return out
}

// setFelt writes one organ's slot for the i-th occasion in the window.
// Slots are disjoint per organ, so concurrent writers never collide.
func (w Window) setFelt(i, slot int, v float64) {
	occ := w.At(i)
	if occ == nil || slot < 0 || slot >= len(occ.felt) {
		return
	}
	occ.felt[slot] = v
}

// MatureRecord is the post-convergence snapshot of one occasion. Only
// mature records are safe to score against; intermediate per-cycle felt
// values are provisional.
type MatureRecord struct {
	OccasionID   string
	Index        int
	Content      string
	Felt         []float64
	Energy       float64
	Satisfaction float64
	Cycles       int
	State        State
}

// mature finalizes every occasion with the terminal run state and
// returns the per-occasion records consumed downstream.
func (u *Utterance) mature(energy, satisfaction float64, cycles int, state State) []MatureRecord {
	records := make([]MatureRecord, len(u.occasions))
	for i := range u.occasions {
		occ := &u.occasions[i]
		occ.Energy = energy
		occ.Satisfaction = satisfaction
		occ.Converged = state == StateKairos || state == StateHighSatisfaction
		records[i] = MatureRecord{
			OccasionID:   occ.ID,
			Index:        occ.Index,
			Content:      occ.Content,
			Felt:         occ.Felt(),
			Energy:       energy,
			Satisfaction: satisfaction,
			Cycles:       cycles,
			State:        state,
		}
	}
	return records
}
