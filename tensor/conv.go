package tensor

import (
	"strings"

	"github.com/pkg/errors"
)

// Padding selects how the borders of a convolution input are handled.
type Padding int8

const (
	// Valid uses no padding; the filter only visits positions where it fits entirely.
	Valid Padding = iota
	// Same pads with zeros so that the output has ceil(in/stride) positions per dimension.
	Same
)

func (p Padding) String() string {
	if p == Same {
		return "same"
	}
	return "valid"
}

// ParsePadding accepts "valid" or "same" (case-insensitive). The empty string is Valid.
func ParsePadding(s string) (Padding, error) {
	switch strings.ToLower(s) {
	case "", "valid":
		return Valid, nil
	case "same":
		return Same, nil
	}
	return Valid, errors.Errorf("unknown padding %q", s)
}

// ConvOpts configures Conv2D. A zero Stride is treated as 1.
type ConvOpts struct {
	Stride  int
	Padding Padding
}

func (o ConvOpts) stride() int {
	if o.Stride < 1 {
		return 1
	}
	return o.Stride
}

// ConvGeometry returns the output size and leading padding of one spatial dimension.
func ConvGeometry(in, filter int, o ConvOpts) (out, pad int, err error) {
	s := o.stride()
	switch o.Padding {
	case Same:
		out = (in + s - 1) / s
		total := (out-1)*s + filter - in
		if total > 0 {
			pad = total / 2
		}
	default:
		if filter > in {
			return 0, 0, errors.Errorf("filter (%d) is larger than input (%d) with valid padding", filter, in)
		}
		out = (in-filter)/s + 1
	}
	return out, pad, nil
}

// ConvOutputShape returns the shape produced by Conv2D for the given input and kernel shapes.
func ConvOutputShape(in, kernel []int, o ConvOpts) ([]int, error) {
	if len(in) != 4 || len(kernel) != 4 || in[1] != kernel[1] {
		return nil, mismatch("conv2d", in, kernel)
	}

	oh, _, err := ConvGeometry(in[2], kernel[2], o)
	if err != nil {
		return nil, &ShapeMismatchError{Op: "conv2d", A: append([]int(nil), in...), B: append([]int(nil), kernel...)}
	}
	ow, _, err := ConvGeometry(in[3], kernel[3], o)
	if err != nil {
		return nil, &ShapeMismatchError{Op: "conv2d", A: append([]int(nil), in...), B: append([]int(nil), kernel...)}
	}

	return []int{in[0], kernel[0], oh, ow}, nil
}

type convDims struct {
	n, c, h, w     int
	o, kh, kw      int
	oh, ow         int
	padH, padW, st int
}

func convSetup(in, kernel *Tensor, o ConvOpts) (convDims, error) {
	outShape, err := ConvOutputShape(in.shape, kernel.shape, o)
	if err != nil {
		return convDims{}, err
	}

	_, padH, _ := ConvGeometry(in.shape[2], kernel.shape[2], o)
	_, padW, _ := ConvGeometry(in.shape[3], kernel.shape[3], o)

	return convDims{
		n: in.shape[0], c: in.shape[1], h: in.shape[2], w: in.shape[3],
		o: kernel.shape[0], kh: kernel.shape[2], kw: kernel.shape[3],
		oh: outShape[2], ow: outShape[3],
		padH: padH, padW: padW, st: o.stride(),
	}, nil
}

// Conv2D computes the 2-dimensional cross-correlation of in [N×C×H×W] with kernel [O×C×kh×kw],
// producing [N×O×oh×ow]. Positions outside the input read as zero.
func Conv2D(in, kernel *Tensor, o ConvOpts) (*Tensor, error) {
	d, err := convSetup(in, kernel, o)
	if err != nil {
		return nil, err
	}

	out := New(d.n, d.o, d.oh, d.ow)
	for n := 0; n < d.n; n++ {
		for oc := 0; oc < d.o; oc++ {
			for oy := 0; oy < d.oh; oy++ {
				for ox := 0; ox < d.ow; ox++ {
					var sum float64
					for c := 0; c < d.c; c++ {
						for ky := 0; ky < d.kh; ky++ {
							iy := oy*d.st - d.padH + ky
							if iy < 0 || iy >= d.h {
								continue
							}
							for kx := 0; kx < d.kw; kx++ {
								ix := ox*d.st - d.padW + kx
								if ix < 0 || ix >= d.w {
									continue
								}
								sum += in.data[((n*d.c+c)*d.h+iy)*d.w+ix] *
									kernel.data[((oc*d.c+c)*d.kh+ky)*d.kw+kx]
							}
						}
					}
					out.data[((n*d.o+oc)*d.oh+oy)*d.ow+ox] = sum
				}
			}
		}
	}
	return out, nil
}

// Conv2DBackward returns the gradients of a loss with respect to the input and kernel of Conv2D,
// given the gradient with respect to its output.
func Conv2DBackward(in, kernel, gradOut *Tensor, o ConvOpts) (gradIn, gradKernel *Tensor, err error) {
	d, err := convSetup(in, kernel, o)
	if err != nil {
		return nil, nil, err
	}

	if want := []int{d.n, d.o, d.oh, d.ow}; !sameShape(gradOut.shape, want) {
		return nil, nil, mismatch("conv2d-backward", gradOut.shape, want)
	}

	gradIn = New(in.shape...)
	gradKernel = New(kernel.shape...)

	for n := 0; n < d.n; n++ {
		for oc := 0; oc < d.o; oc++ {
			for oy := 0; oy < d.oh; oy++ {
				for ox := 0; ox < d.ow; ox++ {
					g := gradOut.data[((n*d.o+oc)*d.oh+oy)*d.ow+ox]
					if g == 0 {
						continue
					}
					for c := 0; c < d.c; c++ {
						for ky := 0; ky < d.kh; ky++ {
							iy := oy*d.st - d.padH + ky
							if iy < 0 || iy >= d.h {
								continue
							}
							for kx := 0; kx < d.kw; kx++ {
								ix := ox*d.st - d.padW + kx
								if ix < 0 || ix >= d.w {
									continue
								}
								inIdx := ((n*d.c+c)*d.h+iy)*d.w + ix
								kIdx := ((oc*d.c+c)*d.kh+ky)*d.kw + kx
								gradIn.data[inIdx] += g * kernel.data[kIdx]
								gradKernel.data[kIdx] += g * in.data[inIdx]
							}
						}
					}
				}
			}
		}
	}
	return gradIn, gradKernel, nil
}
