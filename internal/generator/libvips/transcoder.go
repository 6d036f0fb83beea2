// Package libvips implements the generator's Transcoder on libvips
// through govips.
package libvips

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/photovariant/photovariant/internal/generator"
	"github.com/photovariant/photovariant/internal/naming"
)

// Transcoder encodes with libvips. Startup must be called first.
type Transcoder struct{}

var _ generator.Transcoder = (*Transcoder)(nil)

var startOnce sync.Once

// Startup initialises libvips. concurrency 0 lets libvips decide.
func Startup(concurrency int) {
	startOnce.Do(func() {
		vips.LoggingSettings(nil, vips.LogLevelWarning)
		vips.Startup(&vips.Config{
			ConcurrencyLevel: concurrency,
			MaxCacheSize:     100,
			MaxCacheMem:      50 * 1024 * 1024,
		})
		slog.Default().With("component", "libvips").Info("libvips started", "version", vips.Version)
	})
}

// Shutdown releases libvips resources.
func Shutdown() {
	vips.Shutdown()
}

// New returns a libvips backed transcoder.
func New() *Transcoder {
	return &Transcoder{}
}

// Decode loads data once; the result is reused for every variant.
func (t *Transcoder) Decode(data []byte) (generator.Image, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, err
	}
	return &vipsImage{ref: ref}, nil
}

type vipsImage struct {
	ref *vips.ImageRef
}

func (i *vipsImage) Width() int  { return i.ref.Width() }
func (i *vipsImage) Height() int { return i.ref.Height() }
func (i *vipsImage) Close()      { i.ref.Close() }

// Encode fits the image inside a width x width box without upscaling and
// exports it in format.
func (i *vipsImage) Encode(width int, format naming.Format, quality int) ([]byte, error) {
	img, err := i.ref.Copy()
	if err != nil {
		return nil, fmt.Errorf("copy: %w", err)
	}
	defer img.Close()

	if err := img.ThumbnailWithSize(width, width, vips.InterestingNone, vips.SizeDown); err != nil {
		return nil, fmt.Errorf("thumbnail %dpx: %w", width, err)
	}

	var buf []byte
	switch format {
	case naming.FormatJPEG:
		params := vips.NewJpegExportParams()
		params.Quality = quality
		params.Interlace = true
		params.StripMetadata = true
		buf, _, err = img.ExportJpeg(params)
	case naming.FormatWEBP:
		params := vips.NewWebpExportParams()
		params.Quality = quality
		params.Lossless = false
		params.ReductionEffort = 6
		params.StripMetadata = true
		buf, _, err = img.ExportWebp(params)
	case naming.FormatAVIF:
		params := vips.NewAvifExportParams()
		params.Quality = quality
		params.StripMetadata = true
		buf, _, err = img.ExportAvif(params)
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	return buf, nil
}
