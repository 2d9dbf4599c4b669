package arrays

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
)

const (
	npyMagic = "\x93NUMPY"
	// npyAlign is the header alignment NumPy itself writes.
	npyAlign = 64
)

// WriteNPY writes a as a version 1.0 .npy stream of little-endian float32
// in C order, the layout the training service loads.
func WriteNPY(w io.Writer, a *tensor.Array) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': %s, }", tensor.ShapeString(a.Shape))
	// magic(6) + version(2) + header length(2) + header + '\n'
	pad := npyAlign - (10+len(header)+1)%npyAlign
	if pad == npyAlign {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"
	if len(header) > math.MaxUint16 {
		return fmt.Errorf("npy header too long for shape %v", a.Shape)
	}

	bw := bufio.NewWriterSize(w, 1<<16)
	bw.WriteString(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)

	var buf [4]byte
	for _, v := range a.Data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("writing npy data: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing npy data: %w", err)
	}
	return nil
}
