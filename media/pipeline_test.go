package media

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func TestPipeline_AddImage(t *testing.T) {
	p := NewPipeline(5)
	raw := testJPEG(t, 640, 480)

	att, err := p.AddImage(bytes.NewReader(raw), "image/jpeg")
	require.NoError(t, err)

	assert.NotEmpty(t, att.ID)
	assert.Equal(t, KindImage, att.Kind)
	assert.Equal(t, "image/jpeg", att.MimeType)
	assert.Equal(t, 1, p.Len())

	// Payload round-trips to the original bytes.
	decoded, err := base64.StdEncoding.DecodeString(att.Data)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	// Preview is a decodable thumbnail no larger than the preview box.
	thumb, err := imaging.Decode(bytes.NewReader(att.Preview))
	require.NoError(t, err)
	bounds := thumb.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), previewSize)
	assert.LessOrEqual(t, bounds.Dy(), previewSize)
}

func TestPipeline_AddImageRejectsGarbage(t *testing.T) {
	p := NewPipeline(5)
	_, err := p.AddImage(strings.NewReader("not an image"), "image/png")
	require.Error(t, err)
	assert.Equal(t, 0, p.Len())
}

func TestPipeline_AddVideoHasNoPreview(t *testing.T) {
	p := NewPipeline(5)
	att, err := p.AddVideo(strings.NewReader("fake-video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, KindVideo, att.Kind)
	assert.Nil(t, att.Preview)
}

func TestPipeline_Bound(t *testing.T) {
	p := NewPipeline(2)
	raw := testJPEG(t, 32, 32)

	_, err := p.AddImage(bytes.NewReader(raw), "image/jpeg")
	require.NoError(t, err)
	_, err = p.AddImage(bytes.NewReader(raw), "image/jpeg")
	require.NoError(t, err)

	_, err = p.AddImage(bytes.NewReader(raw), "image/jpeg")
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.ErrCodeInvalidArgument))
	assert.Contains(t, err.Error(), "maximum 2 attachments")
	assert.Equal(t, 2, p.Len())
}

func TestPipeline_RemoveBeforeSend(t *testing.T) {
	p := NewPipeline(5)
	raw := testJPEG(t, 32, 32)

	first, err := p.AddImage(bytes.NewReader(raw), "image/jpeg")
	require.NoError(t, err)
	second, err := p.AddImage(bytes.NewReader(raw), "image/jpeg")
	require.NoError(t, err)

	p.Remove(first.ID)
	staged := p.Staged()
	require.Len(t, staged, 1)
	assert.Equal(t, second.ID, staged[0].ID)
}

func TestPipeline_DrainClearsStagedSet(t *testing.T) {
	p := NewPipeline(5)
	raw := testJPEG(t, 32, 32)
	_, err := p.AddImage(bytes.NewReader(raw), "image/jpeg")
	require.NoError(t, err)

	drained := p.Drain()
	assert.Len(t, drained, 1)
	assert.Equal(t, 0, p.Len())

	// Draining an empty pipeline is harmless.
	assert.Empty(t, p.Drain())
}

func TestPipeline_CaptureJPEGConvergesOnEncodeStep(t *testing.T) {
	p := NewPipeline(5)
	att, err := p.CaptureJPEG(testJPEG(t, 64, 64))
	require.NoError(t, err)
	assert.Equal(t, KindImage, att.Kind)
	assert.Equal(t, "image/jpeg", att.MimeType)
	assert.NotEmpty(t, att.Preview)

	_, err = imaging.Decode(bytes.NewReader(att.Preview))
	require.NoError(t, err)
}
