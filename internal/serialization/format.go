package serialization

import (
	"encoding/json"
	"time"
)

// Format constants.
const (
	MagicBytes      = "VAEC"
	FormatVersion   = 1
	HeaderAlignment = 64 // tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64
	ChecksumSize    = 32
	ChecksumOffset  = 0x20
	DTypeFloat32    = "float32"
)

// Flags.
const (
	FlagHasOptimizer uint32 = 1 << 0 // optimizer state included
	FlagHasMetadata  uint32 = 1 << 1 // custom metadata included
)

// Header is the JSON header of a .vae file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	// Payload carries caller-defined structured data (e.g. checkpoint state).
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "param/encoder.0.weight"
	DType  string `json:"dtype"`  // always "float32"
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

func alignedDataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
