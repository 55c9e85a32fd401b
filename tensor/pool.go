package tensor

// PoolOpts configures pooling. Stride defaults to Window in any dimension where it is < 1, so
// that windows tile the input without overlap.
type PoolOpts struct {
	Window [2]int
	Stride [2]int
}

func (o PoolOpts) strides() (int, int) {
	sy, sx := o.Stride[0], o.Stride[1]
	if sy < 1 {
		sy = o.Window[0]
	}
	if sx < 1 {
		sx = o.Window[1]
	}
	return sy, sx
}

// PoolOutputShape returns the shape produced by pooling an input of the given shape. Windows that
// would extend past the edge of the input are dropped.
func PoolOutputShape(in []int, o PoolOpts) ([]int, error) {
	if len(in) != 4 || o.Window[0] < 1 || o.Window[1] < 1 || o.Window[0] > in[2] || o.Window[1] > in[3] {
		return nil, mismatch("pool2d", in, []int{-1, -1, o.Window[0], o.Window[1]})
	}

	sy, sx := o.strides()
	return []int{in[0], in[1], (in[2]-o.Window[0])/sy + 1, (in[3]-o.Window[1])/sx + 1}, nil
}

// MaxPool2D returns the maximum of each window of in [N×C×H×W], along with the index in
// in.Data() that each output value came from. The indices are what MaxPool2DBackward routes
// gradients through.
func MaxPool2D(in *Tensor, o PoolOpts) (*Tensor, []int, error) {
	shape, err := PoolOutputShape(in.shape, o)
	if err != nil {
		return nil, nil, err
	}

	sy, sx := o.strides()
	h, w := in.shape[2], in.shape[3]
	out := New(shape...)
	argmax := make([]int, out.Len())

	oi := 0
	for nc := 0; nc < shape[0]*shape[1]; nc++ {
		base := nc * h * w
		for oy := 0; oy < shape[2]; oy++ {
			for ox := 0; ox < shape[3]; ox++ {
				best := base + oy*sy*w + ox*sx
				for ky := 0; ky < o.Window[0]; ky++ {
					for kx := 0; kx < o.Window[1]; kx++ {
						idx := base + (oy*sy+ky)*w + ox*sx + kx
						if in.data[idx] > in.data[best] {
							best = idx
						}
					}
				}
				out.data[oi] = in.data[best]
				argmax[oi] = best
				oi++
			}
		}
	}
	return out, argmax, nil
}

// MaxPool2DBackward scatters gradOut back to the positions recorded by MaxPool2D.
func MaxPool2DBackward(inShape []int, argmax []int, gradOut *Tensor) (*Tensor, error) {
	if len(argmax) != gradOut.Len() {
		return nil, mismatch("maxpool2d-backward", gradOut.shape, []int{len(argmax)})
	}

	gradIn := New(inShape...)
	for i, idx := range argmax {
		gradIn.data[idx] += gradOut.data[i]
	}
	return gradIn, nil
}

// AvgPool2D returns the mean of each window of in [N×C×H×W].
func AvgPool2D(in *Tensor, o PoolOpts) (*Tensor, error) {
	shape, err := PoolOutputShape(in.shape, o)
	if err != nil {
		return nil, err
	}

	sy, sx := o.strides()
	h, w := in.shape[2], in.shape[3]
	size := float64(o.Window[0] * o.Window[1])
	out := New(shape...)

	oi := 0
	for nc := 0; nc < shape[0]*shape[1]; nc++ {
		base := nc * h * w
		for oy := 0; oy < shape[2]; oy++ {
			for ox := 0; ox < shape[3]; ox++ {
				var sum float64
				for ky := 0; ky < o.Window[0]; ky++ {
					for kx := 0; kx < o.Window[1]; kx++ {
						sum += in.data[base+(oy*sy+ky)*w+ox*sx+kx]
					}
				}
				out.data[oi] = sum / size
				oi++
			}
		}
	}
	return out, nil
}

// AvgPool2DBackward spreads each output gradient evenly across its window.
func AvgPool2DBackward(inShape []int, gradOut *Tensor, o PoolOpts) (*Tensor, error) {
	shape, err := PoolOutputShape(inShape, o)
	if err != nil {
		return nil, err
	} else if !sameShape(shape, gradOut.shape) {
		return nil, mismatch("avgpool2d-backward", gradOut.shape, shape)
	}

	sy, sx := o.strides()
	h, w := inShape[2], inShape[3]
	size := float64(o.Window[0] * o.Window[1])
	gradIn := New(inShape...)

	oi := 0
	for nc := 0; nc < shape[0]*shape[1]; nc++ {
		base := nc * h * w
		for oy := 0; oy < shape[2]; oy++ {
			for ox := 0; ox < shape[3]; ox++ {
				g := gradOut.data[oi] / size
				for ky := 0; ky < o.Window[0]; ky++ {
					for kx := 0; kx < o.Window[1]; kx++ {
						gradIn.data[base+(oy*sy+ky)*w+ox*sx+kx] += g
					}
				}
				oi++
			}
		}
	}
	return gradIn, nil
}
