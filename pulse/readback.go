package pulse

import (
	"image"
)

// ReadFramebuffer copies a region of the color attachment of fb back to the
// cpu. Framebuffer zero is the default framebuffer. The image origin is the
// top left corner of the region.
func ReadFramebuffer(dev Device, fb FramebufferHandle, rect Rectangle2u) *image.RGBA {
	state := dev.State()
	defer state.Restore(dev)

	width, height := int(rect.Width()), int(rect.Height())
	pixels := make([]byte, width*height*4)

	dev.BindFramebuffer(fb)
	dev.ReadPixels(rect, pixels)

	// rows arrive bottom up
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	stride := width * 4
	for y := range height {
		src := pixels[(height-1-y)*stride : (height-y)*stride]
		copy(img.Pix[y*img.Stride:], src)
	}

	return img
}
