package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// File is a decoded .vae file.
type File struct {
	Header  Header
	Flags   uint32
	Tensors map[string]*tensor.RawTensor
}

// Read decodes a .vae file from r, verifying magic bytes, version,
// header bounds and the data checksum.
func Read(r io.Reader) (*File, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if !bytes.Equal(fixed[0:4], []byte(MagicBytes)) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, fixed[0:4])
	}
	version := binary.LittleEndian.Uint32(fixed[0x04:])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	flags := binary.LittleEndian.Uint32(fixed[0x08:])
	headerSize := binary.LittleEndian.Uint64(fixed[0x10:])
	dataSize := binary.LittleEndian.Uint64(fixed[0x18:])
	var stored [32]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	padding := alignedDataOffset(int64(headerSize)) - int64(FixedHeaderSize) - int64(headerSize)
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(dataSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if uint64(len(data)) != dataSize {
		return nil, fmt.Errorf("truncated data section: got %d of %d bytes", len(data), dataSize)
	}
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, err
	}
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), tensor.CPU)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		out := raw.AsFloat32()
		chunk := data[meta.Offset : meta.Offset+meta.Size]
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(chunk[i*4:]))
		}
		tensors[meta.Name] = raw
	}

	return &File{Header: header, Flags: flags, Tensors: tensors}, nil
}

// ReadFile opens and decodes the .vae file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller-provided
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return Read(f)
}
