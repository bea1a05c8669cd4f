package kernel

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/cmplx"
)

const float32Size = 4

func encodeFloat32(buf Buffer, i int, v float32) {
	binary.LittleEndian.PutUint32(buf[i*float32Size:], math.Float32bits(v))
}

func decodeFloat32(buf Buffer, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*float32Size:]))
}

// RunFFT computes a naive O(n^2) DFT (or inverse DFT) over ctx.In into
// ctx.Out, mirroring the reference runtime's placeholder kernel: it is not
// an FFT in the algorithmic sense, but the same (in, plan) -> (out, ok)
// contract a real overlay or vDSP-style call would satisfy.
func RunFFT(ctx *FftContext) bool {
	if len(ctx.In) == 0 || len(ctx.Out) == 0 {
		ctx.OK = false
		ctx.Message = "fft: missing buffers"
		return false
	}

	maxIn := len(ctx.In) / float32Size
	maxOut := len(ctx.Out) / float32Size
	n := ctx.Plan.N
	if n == 0 {
		n = maxIn
		if maxOut < n {
			n = maxOut
		}
	}
	if n == 0 || maxIn < n || maxOut < n {
		ctx.OK = false
		ctx.Message = "fft: buffer sizes insufficient"
		return false
	}

	sign := -1.0
	if ctx.Plan.Inverse {
		sign = 1.0
	}

	for k := 0; k < n; k++ {
		var sum complex128
		for j := 0; j < n; j++ {
			angle := 2 * math.Pi * float64(k) * float64(j) / float64(n) * sign
			sum += complex(float64(decodeFloat32(ctx.In, j)), 0) * cmplx.Rect(1, angle)
		}
		if ctx.Plan.Inverse {
			sum /= complex(float64(n), 0)
		}
		encodeFloat32(ctx.Out, k, float32(real(sum)))
	}

	ctx.OK = true
	ctx.Message = fmt.Sprintf("fft: computed n=%d", n)
	return true
}
