package images

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/transform"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodeResizesToTarget(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(40, 30, color.Gray{Y: 200})); err != nil {
		t.Fatal(err)
	}
	d := Decoder{Target: transform.Shape{H: 28, W: 28, C: 1}, MaxPixels: 40 * 30}
	got, err := d.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 28*28 {
		t.Fatalf("len = %d", len(got))
	}
	for _, v := range got {
		if math.Abs(v-200) > 1 {
			t.Fatalf("value %v, want ~200", v)
		}
	}
}

func TestDecodeColour(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, solid(4, 4, color.RGBA{R: 255, G: 10, B: 20, A: 255})); err != nil {
		t.Fatal(err)
	}
	got, err := Decoder{Target: transform.Shape{H: 4, W: 4, C: 3}}.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 255 || got[1] != 10 || got[2] != 20 {
		t.Errorf("first pixel = %v", got[:3])
	}
}

func TestDecodeFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.png")
	os.WriteFile(bad, []byte("not an image"), 0o644)

	d := Decoder{Target: transform.Shape{H: 2, W: 2, C: 1}}
	if _, err := d.DecodeFile(bad); err == nil {
		t.Error("expected decode error")
	}
	if _, err := d.DecodeFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected open error")
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h RGBA
// pixels, with no image data behind it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6 // 8-bit RGBA
	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeRefusesOversizedImages(t *testing.T) {
	d := Decoder{Target: transform.Shape{H: 28, W: 28, C: 1}, MaxPixels: 1 << 24}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := d.Decode(bytes.NewReader(pngHeader(50000, 50000)))
	runtime.ReadMemStats(&after)

	if err == nil || !strings.Contains(err.Error(), "50000x50000") {
		t.Fatalf("err = %v, want pixel limit error", err)
	}
	if grown := after.TotalAlloc - before.TotalAlloc; grown > 16<<20 {
		t.Errorf("allocated %d MiB before refusing", grown>>20)
	}

	path := filepath.Join(t.TempDir(), "huge.png")
	if err := os.WriteFile(path, pngHeader(1<<13, 1<<12), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.DecodeFile(path); err == nil || !strings.Contains(err.Error(), "pixel limit") {
		t.Errorf("file over the limit: err = %v", err)
	}
}
