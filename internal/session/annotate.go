package session

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/mpatra/handrange/internal/ranging"
)

var (
	boxColor  = color.RGBA{0, 255, 0, 0}
	textColor = color.RGBA{255, 255, 255, 0}
)

// annotate draws the hand bounding box and feedback lines onto the frame.
// It runs in the loop, not in the display, so the annotated frame reaches
// every consumer: the preview window, the stream buffer, and headless
// runs with no display at all.
func annotate(frame *gocv.Mat, box *ranging.BoundingBox, lines []string) {
	if frame == nil || frame.Empty() {
		return
	}

	if box != nil {
		rect := image.Rect(box.MinX, box.MinY, box.MaxX, box.MaxY)
		gocv.Rectangle(frame, rect, boxColor, 2)
	}

	for i, line := range lines {
		gocv.PutText(frame, line, image.Pt(10, 30+30*i), gocv.FontHersheyPlain, 1.6, textColor, 2)
	}
}
