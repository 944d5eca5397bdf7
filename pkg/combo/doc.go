// Package combo maps enumeration indices to trait combinations.
//
// # Mixed-Radix Decoding
//
// Each layer is one digit of a mixed-radix number whose base is the layer's
// variant count (the absent sentinel included). The first layer in priority
// order is the most significant digit:
//
//	divisor[last] = 1
//	divisor[i]    = divisor[i+1] * counts[i+1]
//	digit[i]      = floor(index / divisor[i]) mod counts[i]
//
// For layers hat {A, B, absent} and eyes {X, absent} the sequence is
//
//	0→(A,X) 1→(A,absent) 2→(B,X) 3→(B,absent) 4→(absent,X) 5→(absent,absent)
//
// The mapping is pure and injective on [0, Total). Requesting fewer than Total
// combinations yields the deterministic prefix, not a random sample.
//
// # Overflow
//
// What happens when more combinations are requested than exist is an explicit
// [OverflowPolicy]: fail ([OverflowError], the default), cap the count at the
// total ([OverflowCap]), or keep decoding past the end so combinations repeat
// with period Total ([OverflowWrap]).
package combo
