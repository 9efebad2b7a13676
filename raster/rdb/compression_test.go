package rdb

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompression(t *testing.T) {
	dataCases := []struct {
		Name string
		Data []byte
	}{
		{Name: "Repeat", Data: bytes.Repeat([]byte{42}, 100500)},
		{Name: "Foobar", Data: []byte("foobar")},
	}
	compressionCases := []struct {
		Name        string
		Compression Compression
	}{
		{Name: "None", Compression: CompressionNone},
		{Name: "Gzip", Compression: CompressionGzip},
		{Name: "Zstd", Compression: CompressionZstd},
	}
	for _, dc := range dataCases {
		for _, cc := range compressionCases {
			t.Run(dc.Name+cc.Name, func(t *testing.T) {
				c, err := newCodec(cc.Compression)
				if err != nil {
					t.Fatalf("newCodec failed: %v", err)
				}
				defer c.Close()

				compressed, err := c.Compress(dc.Data)
				if err != nil {
					t.Fatalf("Compress failed: %v", err)
				}
				decompressed, err := c.Decompress(compressed)
				if err != nil {
					t.Fatalf("Decompress failed: %v", err)
				}
				if !cmp.Equal(dc.Data, decompressed) {
					t.Errorf("Decompress(Compress(input)) != input")
				}
			})
		}
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		got, err := ParseCompression(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCompression(%q) = %v, %v, want %v", c.String(), got, err, c)
		}
	}
	if _, err := ParseCompression("brotli"); err == nil {
		t.Errorf("ParseCompression(brotli) expected error")
	}
	if _, err := newCodec(CompressionUnknown); err == nil {
		t.Errorf("newCodec(unknown) expected error")
	}
}

func TestVisitBlocks(t *testing.T) {
	l := layout{rows: 10, cols: 7, blockSize: 4}

	type visit struct{ BR, BC, X0, Y0, X1, Y1 int }
	var got []visit
	err := l.visitBlocks(3, 2, 4, 5, func(br, bc, x0, y0, x1, y1 int) error {
		got = append(got, visit{br, bc, x0, y0, x1, y1})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []visit{
		{0, 0, 3, 2, 4, 4},
		{0, 1, 4, 2, 7, 4},
		{1, 0, 3, 4, 4, 7},
		{1, 1, 4, 4, 7, 7},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("visitBlocks mismatch (-want+got):\n%v", diff)
	}

	rows, cols := l.blockShape(2, 1)
	if rows != 2 || cols != 3 {
		t.Errorf("blockShape(2, 1) = %d, %d, want 2, 3", rows, cols)
	}
}
