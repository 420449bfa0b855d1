package toolset

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chai2010/webp"

	"github.com/jsscheller/pdfr/internal/raster"
)

// Buffer pool for encoding buffers to reduce allocations
var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// getBuffer gets a buffer from the pool
func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// putBuffer returns a buffer to the pool
func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}

// ImageEncoder encodes images in one output format
type ImageEncoder interface {
	Encode(w io.Writer, img image.Image) error
	Extension() string
}

// PNGEncoder writes lossless PNG with transparency
type PNGEncoder struct{}

func (e PNGEncoder) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

func (e PNGEncoder) Extension() string { return ".png" }

// WebPEncoder writes WebP. Quality 100 is encoded losslessly.
type WebPEncoder struct {
	Quality int
}

func (e WebPEncoder) Encode(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{
		Lossless: e.Quality >= 100,
		Quality:  float32(e.Quality),
	})
}

func (e WebPEncoder) Extension() string { return ".webp" }

// Encoder registry; constructors take the requested quality
var encoderRegistry = map[string]func(quality int) ImageEncoder{
	"png":  func(int) ImageEncoder { return PNGEncoder{} },
	"webp": func(q int) ImageEncoder { return WebPEncoder{Quality: q} },
}

// GetEncoder returns encoder for the given format
func GetEncoder(format string, quality int) (ImageEncoder, error) {
	format = strings.ToLower(format)
	newEncoder, ok := encoderRegistry[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return newEncoder(quality), nil
}

// Job is one image waiting to be encoded to Path
type Job struct {
	Path   string
	Raster *raster.Raster
}

// Pool encodes and writes images on a fixed set of workers. Rasters
// handed to Submit must not alias memory owned by the PDF engine.
type Pool struct {
	encoder ImageEncoder
	tasks   chan Job
	wg      sync.WaitGroup
	failed  atomic.Bool
	errOnce sync.Once
	err     error
	written atomic.Int64
}

// NewPool starts workers goroutines encoding with encoder
func NewPool(encoder ImageEncoder, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		encoder: encoder,
		tasks:   make(chan Job, workers),
	}

	// Start worker goroutines
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.tasks {
				// Skip processing if already failed
				if p.failed.Load() {
					continue
				}
				if err := writeImageFile(job, p.encoder); err != nil {
					p.fail(err)
					continue
				}
				p.written.Add(1)
			}
		}()
	}
	return p
}

func (p *Pool) fail(err error) {
	p.errOnce.Do(func() {
		p.err = err
		p.failed.Store(true)
	})
}

// Submit queues job. It returns false once a job has failed; the error
// is reported by Wait.
func (p *Pool) Submit(job Job) bool {
	if p.failed.Load() {
		return false
	}
	p.tasks <- job
	return true
}

// Wait stops accepting jobs, waits for the queued ones and returns the
// first error
func (p *Pool) Wait() error {
	close(p.tasks)
	p.wg.Wait()
	return p.err
}

// Written reports how many images were written so far
func (p *Pool) Written() int {
	return int(p.written.Load())
}

// WorkerCount returns the number of workers from environment variable or default
func WorkerCount() int {
	if val := os.Getenv("PDFR_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return 4 // default worker count
}

// Deduper remembers content hashes to skip repeated images
type Deduper struct {
	seen    map[string]bool
	Skipped int
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]bool)}
}

// Seen reports whether data was offered before and records it otherwise
func (d *Deduper) Seen(data []byte) bool {
	hash := hashBytes(data)
	if d.seen[hash] {
		d.Skipped++
		return true
	}
	d.seen[hash] = true
	return false
}

// SeenRaster hashes the visible pixels of r, ignoring row padding
func (d *Deduper) SeenRaster(r *raster.Raster) bool {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%d:%d:", r.Width, r.Height, r.Format)
	for y := 0; y < r.Height; y++ {
		h.Write(r.Row(y))
	}
	return d.Seen(h.Sum(nil))
}

// isImageFile checks if a filename has an image extension
func isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".png" || ext == ".jpg" || ext == ".jpeg" || ext == ".gif" || ext == ".bmp" || ext == ".tiff" || ext == ".tif" || ext == ".webp" || ext == ".jp2" || ext == ".jpx"
}

// hashBytes computes SHA-256 hash of byte slice
func hashBytes(data []byte) string {
	h := sha256.New()
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// writeImageFile writes an encoded image to disk using buffer pooling
func writeImageFile(job Job, encoder ImageEncoder) error {
	img, err := job.Raster.Image()
	if err != nil {
		return fmt.Errorf("convert %s: %w", job.Path, err)
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if err := encoder.Encode(buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", job.Path, err)
	}

	return os.WriteFile(job.Path, buf.Bytes(), 0644)
}
