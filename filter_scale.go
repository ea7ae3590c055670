package videocapture

import "sync"

// ScaleMode defines how scaling should handle aspect ratio mismatches.
type ScaleMode int

const (
	// ScaleModeFit scales to fit within target dimensions, preserving aspect ratio (letterboxed).
	ScaleModeFit ScaleMode = iota
	// ScaleModeFill scales to fill target dimensions, preserving aspect ratio (may crop).
	ScaleModeFill
	// ScaleModeStretch scales to exactly match target dimensions (may distort).
	ScaleModeStretch
)

func (m ScaleMode) String() string {
	switch m {
	case ScaleModeFit:
		return "fit"
	case ScaleModeFill:
		return "fill"
	case ScaleModeStretch:
		return "stretch"
	default:
		return "unknown"
	}
}

// VideoScaler scales I420 video frames.
// The returned frame aliases the scaler's output buffers and is overwritten
// by the next Scale call.
type VideoScaler struct {
	srcWidth, srcHeight int
	dstWidth, dstHeight int
	mode                ScaleMode

	outY, outU, outV []byte
}

// NewVideoScaler creates a new scaler for the given dimensions.
func NewVideoScaler(srcWidth, srcHeight, dstWidth, dstHeight int, mode ScaleMode) *VideoScaler {
	ySize := dstWidth * dstHeight
	uvSize := (dstWidth / 2) * (dstHeight / 2)

	return &VideoScaler{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		mode:      mode,
		outY:      make([]byte, ySize),
		outU:      make([]byte, uvSize),
		outV:      make([]byte, uvSize),
	}
}

// Scale scales an I420 frame to the target dimensions.
func (s *VideoScaler) Scale(frame *VideoFrame) *VideoFrame {
	if frame.Width == s.dstWidth && frame.Height == s.dstHeight {
		return frame
	}

	srcX, srcY, srcW, srcH := s.calculateSourceRegion(frame.Width, frame.Height)
	dstX, dstY, dstW, dstH := s.calculateDestRegion(frame.Width, frame.Height)

	if dstW != s.dstWidth || dstH != s.dstHeight {
		// letterbox borders
		fill(s.outY, 16)
		fill(s.outU, 128)
		fill(s.outV, 128)
	}

	s.scalePlane(frame.Data[0], frame.Stride[0], srcX, srcY, srcW, srcH,
		s.outY[dstY*s.dstWidth+dstX:], s.dstWidth, dstW, dstH)

	uvStride := s.dstWidth / 2
	uvOffset := (dstY/2)*uvStride + dstX/2
	s.scalePlane(frame.Data[1], frame.Stride[1], srcX/2, srcY/2, srcW/2, srcH/2,
		s.outU[uvOffset:], uvStride, dstW/2, dstH/2)
	s.scalePlane(frame.Data[2], frame.Stride[2], srcX/2, srcY/2, srcW/2, srcH/2,
		s.outV[uvOffset:], uvStride, dstW/2, dstH/2)

	return &VideoFrame{
		Data:      [][]byte{s.outY, s.outU, s.outV},
		Stride:    []int{s.dstWidth, uvStride, uvStride},
		Width:     s.dstWidth,
		Height:    s.dstHeight,
		Format:    PixelFormatI420,
		Timestamp: frame.Timestamp,
		Duration:  frame.Duration,
		Position:  frame.Position,
	}
}

// calculateSourceRegion determines what region of the source to use based on scale mode.
func (s *VideoScaler) calculateSourceRegion(srcW, srcH int) (x, y, w, h int) {
	if s.mode != ScaleModeFill {
		return 0, 0, srcW, srcH
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(s.dstWidth) / float64(s.dstHeight)

	if srcAspect > dstAspect {
		// Source is wider, crop horizontally
		newW := int(float64(srcH)*dstAspect) &^ 1
		return ((srcW - newW) / 2) &^ 1, 0, newW, srcH
	} else if srcAspect < dstAspect {
		// Source is taller, crop vertically
		newH := int(float64(srcW)/dstAspect) &^ 1
		return 0, ((srcH - newH) / 2) &^ 1, srcW, newH
	}
	return 0, 0, srcW, srcH
}

// calculateDestRegion determines where the scaled image lands in the output.
func (s *VideoScaler) calculateDestRegion(srcW, srcH int) (x, y, w, h int) {
	if s.mode != ScaleModeFit {
		return 0, 0, s.dstWidth, s.dstHeight
	}
	w, h = CalculateScaledSize(srcW, srcH, s.dstWidth, s.dstHeight, ScaleModeFit)
	w = min(w, s.dstWidth)
	h = min(h, s.dstHeight)
	return ((s.dstWidth - w) / 2) &^ 1, ((s.dstHeight - h) / 2) &^ 1, w, h
}

// scalePlane scales a single plane using bilinear interpolation.
func (s *VideoScaler) scalePlane(src []byte, srcStride, srcX, srcY, srcW, srcH int,
	dst []byte, dstStride, dstW, dstH int) {

	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return
	}

	// Fixed-point scaling factors (16.16)
	xRatio := (srcW << 16) / dstW
	yRatio := (srcH << 16) / dstH

	for y := 0; y < dstH; y++ {
		srcYFP := y * yRatio
		y0 := srcYFP>>16 + srcY
		y1 := y0 + 1
		if y1 >= srcY+srcH {
			y1 = y0
		}
		yWeight := srcYFP & 0xFFFF

		for x := 0; x < dstW; x++ {
			srcXFP := x * xRatio
			x0 := srcXFP>>16 + srcX
			x1 := x0 + 1
			if x1 >= srcX+srcW {
				x1 = x0
			}
			xWeight := srcXFP & 0xFFFF

			p00 := int(src[y0*srcStride+x0])
			p10 := int(src[y0*srcStride+x1])
			p01 := int(src[y1*srcStride+x0])
			p11 := int(src[y1*srcStride+x1])

			top := (p00*(0x10000-xWeight) + p10*xWeight) >> 16
			bottom := (p01*(0x10000-xWeight) + p11*xWeight) >> 16

			dst[y*dstStride+x] = byte((top*(0x10000-yWeight) + bottom*yWeight) >> 16)
		}
	}
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// CalculateScaledSize returns the output dimensions when scaling with a given mode.
// This is useful for determining letterbox dimensions in ScaleModeFit.
func CalculateScaledSize(srcW, srcH, maxW, maxH int, mode ScaleMode) (w, h int) {
	if mode != ScaleModeFit {
		return maxW, maxH
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(maxW) / float64(maxH)

	if srcAspect > dstAspect {
		// Source is wider, fit to width
		w = maxW
		h = int(float64(maxW) / srcAspect)
	} else {
		// Source is taller, fit to height
		h = maxH
		w = int(float64(maxH) * srcAspect)
	}
	// Ensure even dimensions for YUV
	w = (w + 1) &^ 1
	h = (h + 1) &^ 1
	return w, h
}

// ScaleFilter is a VideoFilter that scales every I420 frame to a fixed size.
// Frames in other pixel formats pass through unchanged.
type ScaleFilter struct {
	width, height int
	mode          ScaleMode

	mu     sync.Mutex
	scaler *VideoScaler
}

// NewScaleFilter creates a filter scaling to width x height. Odd dimensions
// are rounded up to even for YUV.
func NewScaleFilter(width, height int, mode ScaleMode) *ScaleFilter {
	return &ScaleFilter{
		width:  (width + 1) &^ 1,
		height: (height + 1) &^ 1,
		mode:   mode,
	}
}

// Filter implements VideoFilter.
func (f *ScaleFilter) Filter(frame *VideoFrame) *VideoFrame {
	if frame == nil || frame.Format != PixelFormatI420 || len(frame.Data) < 3 {
		return frame
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Create or update scaler if source dimensions changed
	if f.scaler == nil || f.scaler.srcWidth != frame.Width || f.scaler.srcHeight != frame.Height {
		f.scaler = NewVideoScaler(frame.Width, frame.Height, f.width, f.height, f.mode)
	}
	return f.scaler.Scale(frame)
}
