package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.klb.dev/sharecast/internal/share"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want share.Kind
	}{
		{"/dcim/a.jpg", share.KindImage},
		{"/dcim/B.PNG", share.KindImage},
		{"/movies/clip.mp4", share.KindVideo},
		{"/movies/clip.MOV", share.KindVideo},
		{"/docs/notes.txt", share.KindText},
		{"/docs/page.html", share.KindText},
		{"/docs/report.pdf", share.KindAny},
		{"/music/song.mp3", share.KindAny},
		{"/no/extension", share.KindAny},
		{"/weird/file.zzzunknown", share.KindAny},
		{"", share.KindAny},
		{"/dir.jpg/file", share.KindAny},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestContentTypeUnknownIsEmpty(t *testing.T) {
	assert.Empty(t, ContentType("/tmp/noext"))
	assert.Equal(t, "image/jpeg", ContentType("/tmp/x.JPEG"))
}
