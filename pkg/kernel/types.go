// Package kernel holds the pure compute functions the runtime treats as
// opaque (input_buffer, params) -> (output_buffer, ok) kernels, plus the
// execution contexts that carry their buffers and parameters through a
// task. Real FFT/zip/compression implementations are out of scope for the
// core scheduler; these are faithful-enough stand-ins that exercise the
// same contract a hardware overlay or a real codec would.
package kernel

// Buffer is a plain byte-backed view a kernel reads from or writes into —
// the Go-native replacement for the source's (pointer, size) BufferView.
type Buffer []byte

// ZipMode selects compression direction.
type ZipMode int

const (
	Compress ZipMode = iota
	Decompress
)

// ZipParams configures a zip kernel invocation.
type ZipParams struct {
	Level int
	Mode  ZipMode
}

// ZipContext carries a zip invocation's buffers and result.
type ZipContext struct {
	Params    ZipParams
	In        Buffer
	Out       Buffer
	OutActual int
	OK        bool
	Message   string
}

// FftPlan configures an FFT kernel invocation.
type FftPlan struct {
	N       int
	Inverse bool
}

// FftContext carries an FFT invocation's buffers and result. In and Out
// hold little-endian float32 samples, matching the source's raw float
// buffers.
type FftContext struct {
	Plan    FftPlan
	In      Buffer
	Out     Buffer
	OK      bool
	Message string
}
