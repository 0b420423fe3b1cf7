// Package accumulator implements the wrapping signed 32-bit arithmetic the
// masked-value sum runs on: an explicit int32 with wraparound operations,
// never widened by the host language's default integer promotion.
package accumulator

// Value is a signed 32-bit quantity with explicit wraparound semantics. It is
// the type both a client's masked value m_i and the aggregator's running sum
// S are held in.
type Value int32

// Add returns v + other, wrapping modulo 2^32 exactly like the Go int32 type
// already does on overflow; the named type exists so every addition site in
// the protocol is visibly using wrapping arithmetic rather than an
// accidental wider type.
func (v Value) Add(other Value) Value {
	return v + other
}

// Sub returns v - other, wrapping modulo 2^32.
func (v Value) Sub(other Value) Value {
	return v - other
}

// Negate returns -v, wrapping modulo 2^32 (the case v == math.MinInt32 wraps
// to itself, which is correct two's-complement behavior and is exercised
// only for pathological inputs far outside the fixed-point range secrets are
// bounded to).
func (v Value) Negate() Value {
	return -v
}

// FromUint32 reinterprets a raw 32-bit unsigned PRNG output as the signed
// accumulator type, using the two's-complement bit pattern rather than a
// range-checked conversion.
func FromUint32(u uint32) Value {
	return Value(int32(u))
}

// FromFixedPoint converts a real-valued secret to the fixed-point
// accumulator representation by multiplying by the 10^4 scale and rounding
// to the nearest integer.
func FromFixedPoint(secret float64) Value {
	const scale = 1e4
	scaled := secret * scale
	if scaled >= 0 {
		return Value(int32(scaled + 0.5))
	}
	return Value(int32(scaled - 0.5))
}

// ToFloat converts the accumulator back to a real value by dividing by the
// 10^4 fixed-point scale.
func (v Value) ToFloat() float64 {
	const scale = 1e4
	return float64(v) / scale
}
