package kairos

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Signature is a pgvector-backed organ-coherence profile.
// Implements sql.Scanner and driver.Valuer for database compatibility.
type Signature []float32

// Scan implements sql.Scanner for reading signatures from the database.
func (s *Signature) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}

	var text string
	switch val := src.(type) {
	case []byte:
		text = string(val)
	case string:
		text = val
	default:
		return fmt.Errorf("cannot scan %T into Signature", src)
	}

	// pgvector format: [0.1,0.2,0.3]
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")

	if text == "" {
		*s = nil
		return nil
	}

	parts := strings.Split(text, ",")
	result := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("failed to parse signature element %d: %w", i, err)
		}
		result[i] = float32(f)
	}

	*s = result
	return nil
}

// Value implements driver.Valuer for writing signatures to the database.
func (s Signature) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}

	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

// NewSignature converts a float64 profile to a Signature.
func NewSignature(profile []float64) Signature {
	sig := make(Signature, len(profile))
	for i, v := range profile {
		sig[i] = float32(v)
	}
	return sig
}

// Floats returns the signature as float64s.
func (s Signature) Floats() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// Padded returns the signature padded or truncated to dim slots, for the
// fixed-width persistence column.
func (s Signature) Padded(dim int) Signature {
	if len(s) == dim {
		return s
	}
	out := make(Signature, dim)
	copy(out, s)
	return out
}
