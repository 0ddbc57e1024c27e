// Package f16 implements the half-precision embedding blob codec.
//
// The knowledge base ships precomputed question embeddings as a compact
// binary artifact:
//
//	[count:u32 LE][dim:u32 LE][count*dim x f16 LE]
//
// Decode expands the payload into single-precision vectors; Encode is the
// inverse, used by the corpus builder. PeekCount and PeekDim read only the
// 8-byte header, which lets the engine report the entry count before full
// initialization.
//
// Decoding never rejects NaN, infinite, or subnormal payload values - they
// decode to the corresponding single-precision values.
package f16
