package kernel

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// RunZip compresses or decompresses ctx.In into ctx.Out using compress/flate
// — the standard library's DEFLATE implementation stands in for the
// reference runtime's zlib call; no example repo in this corpus vendors a
// zlib binding, so this is the one kernel where stdlib is the idiomatic
// choice rather than a gap.
func RunZip(ctx *ZipContext) bool {
	if len(ctx.In) == 0 || ctx.Out == nil {
		ctx.OK = false
		ctx.Message = "zip: buffers missing"
		return false
	}

	var out []byte
	var err error
	if ctx.Params.Mode == Compress {
		out, err = deflate(ctx.In, ctx.Params.Level)
	} else {
		out, err = inflate(ctx.In)
	}
	if err != nil {
		ctx.OK = false
		ctx.Message = fmt.Sprintf("zip: flate error %v", err)
		return false
	}
	if len(out) > len(ctx.Out) {
		ctx.OK = false
		ctx.Message = "zip: output buffer too small"
		return false
	}

	n := copy(ctx.Out, out)
	ctx.OutActual = n
	ctx.OK = true
	verb := "compressed"
	if ctx.Params.Mode == Decompress {
		verb = "decompressed"
	}
	ctx.Message = fmt.Sprintf("zip: %s (%d -> %d)", verb, len(ctx.In), n)
	return true
}

func deflate(in []byte, level int) ([]byte, error) {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(in []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(in))
	defer r.Close()
	return io.ReadAll(r)
}
