package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/internal/tensor"
)

// Write encodes tensors and header into w.
//
// header.Tensors and header.FormatVersion are filled in by Write; a zero
// CreatedAt is set to the current time. flags is stored verbatim.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, header Header, flags uint32) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var data bytes.Buffer
	header.Tensors = make([]TensorMeta, 0, len(names))
	for _, name := range names {
		raw := tensors[name]
		if raw == nil {
			return fmt.Errorf("tensor %q is nil", name)
		}
		offset := int64(data.Len())
		buf := make([]byte, 4*raw.NumElements())
		for i, v := range raw.AsFloat32() {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		data.Write(buf)
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  DTypeFloat32,
			Shape:  append([]int(nil), raw.Shape()...),
			Offset: offset,
			Size:   int64(len(buf)),
		})
	}

	header.FormatVersion = FormatVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[0x04:], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[0x08:], flags)
	binary.LittleEndian.PutUint64(fixed[0x10:], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[0x18:], uint64(data.Len()))
	checksum := ComputeChecksum(data.Bytes())
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	padding := alignedDataOffset(int64(len(headerJSON))) - int64(FixedHeaderSize+len(headerJSON))

	for _, chunk := range [][]byte{fixed, headerJSON, make([]byte, padding), data.Bytes()} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	return nil
}

// WriteFile writes a .vae file atomically: the content goes to a
// temporary file in the same directory which is then renamed over path.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, header Header, flags uint32) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.vae")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if err := Write(tmp, tensors, header, flags); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}
