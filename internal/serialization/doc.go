// Package serialization implements the .vae tensor container used for
// checkpoints.
//
//	Format Structure:
//	  [0x00 4 bytes: Magic "VAEC"]
//	  [0x04 4 bytes: Version (uint32 LE)]
//	  [0x08 4 bytes: Flags (uint32 LE)]
//	  [0x0C 4 bytes: reserved]
//	  [0x10 8 bytes: Header Size (uint64 LE)]
//	  [0x18 8 bytes: Data Size (uint64 LE)]
//	  [0x20 32 bytes: SHA-256 of the data section]
//	  [0x40 Header: JSON]
//	  [Tensor data: little-endian float32, 64-byte aligned]
//
// Tensors are written in sorted name order, so equal inputs produce
// byte-identical data sections.
//
// Example usage:
//
//	err := serialization.WriteFile("run.vae", tensors, serialization.Header{Metadata: meta}, 0)
//	file, err := serialization.ReadFile("run.vae")
package serialization
