// Package media stages attachments for the dispatch engine. Capture sources
// (camera, gallery, file picker) all converge on the same encode-and-preview
// step; the staged list is bounded and cleared once handed off.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
)

// Kind is the attachment kind.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Preview thumbnails are square and small enough to inline in a chat log.
const previewSize = 128

// Attachment is one staged piece of media. Data is the base64-encoded
// payload as transferred on the wire; Preview is a JPEG thumbnail for
// images (nil for video).
type Attachment struct {
	ID       string
	Kind     Kind
	Data     string
	MimeType string
	Preview  []byte
}

// Pipeline holds the staged attachments for one dialogue view.
type Pipeline struct {
	mu     sync.Mutex
	max    int
	staged []Attachment
}

// NewPipeline creates a pipeline bounded to max staged attachments.
func NewPipeline(max int) *Pipeline {
	if max <= 0 {
		max = 5
	}
	return &Pipeline{max: max}
}

// AddImage decodes, thumbnails and stages an image attachment.
func (p *Pipeline) AddImage(r io.Reader, mimeType string) (Attachment, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Attachment{}, errors.Wrap(err, "read image")
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return Attachment{}, errors.Wrap(err, "decode image")
	}
	thumb := imaging.Thumbnail(img, previewSize, previewSize, imaging.Lanczos)

	var preview bytes.Buffer
	if err := imaging.Encode(&preview, thumb, imaging.JPEG); err != nil {
		return Attachment{}, errors.Wrap(err, "encode preview")
	}

	att := Attachment{
		ID:       uuid.New().String(),
		Kind:     KindImage,
		Data:     base64.StdEncoding.EncodeToString(raw),
		MimeType: mimeType,
		Preview:  preview.Bytes(),
	}
	return att, p.stage(att)
}

// AddVideo stages a video attachment. Videos are carried opaque; no
// preview frame is extracted on the client.
func (p *Pipeline) AddVideo(r io.Reader, mimeType string) (Attachment, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Attachment{}, errors.Wrap(err, "read video")
	}
	att := Attachment{
		ID:       uuid.New().String(),
		Kind:     KindVideo,
		Data:     base64.StdEncoding.EncodeToString(raw),
		MimeType: mimeType,
	}
	return att, p.stage(att)
}

// CaptureJPEG stages a camera capture. The camera always produces JPEG.
func (p *Pipeline) CaptureJPEG(frame []byte) (Attachment, error) {
	return p.AddImage(bytes.NewReader(frame), "image/jpeg")
}

func (p *Pipeline) stage(att Attachment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.staged) >= p.max {
		return clienterrors.InvalidArgument(fmt.Sprintf("maximum %d attachments allowed", p.max))
	}
	p.staged = append(p.staged, att)
	return nil
}

// Restage puts an already-encoded attachment back on the staged list, e.g.
// media handed over from another view before this one activated.
func (p *Pipeline) Restage(att Attachment) error {
	return p.stage(att)
}

// Remove unstages the attachment with the given id before send.
func (p *Pipeline) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.staged[:0]
	for _, att := range p.staged {
		if att.ID != id {
			kept = append(kept, att)
		}
	}
	p.staged = kept
}

// Staged returns a copy of the currently staged attachments.
func (p *Pipeline) Staged() []Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Attachment, len(p.staged))
	copy(out, p.staged)
	return out
}

// Len returns the number of staged attachments.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.staged)
}

// Drain returns the staged attachments and clears the pipeline. The caller
// owns the result; the staged set stays empty regardless of what happens
// to the send afterwards.
func (p *Pipeline) Drain() []Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.staged
	p.staged = nil
	return out
}
