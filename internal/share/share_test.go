package share

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOrdinalsAreStable(t *testing.T) {
	assert.Equal(t, 0, int(KindImage))
	assert.Equal(t, 1, int(KindVideo))
	assert.Equal(t, 2, int(KindText))
	assert.Equal(t, 3, int(KindAny))
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{in: "media", want: Media},
		{in: "text", want: Text},
		{in: " TEXT ", want: Text},
		{in: "video", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChannel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownChannel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeUsesChannelKeys(t *testing.T) {
	media := Batch{{Name: "a.jpg", Payload: "/dcim/a.jpg", Kind: KindImage}}
	b, err := Encode(Media, media)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"a.jpg","path":"/dcim/a.jpg","type":0}]`, string(b))

	text := Batch{{Name: "text", Payload: "", Kind: KindText}}
	b, err = Encode(Text, text)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"text","text":"","type":2}]`, string(b))
}

func TestEncodeEmptyBatch(t *testing.T) {
	b, err := Encode(Media, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestListRoundTripKeepsOrder(t *testing.T) {
	in := Batch{
		{Name: "a.jpg", Payload: "/dcim/a.jpg", Kind: KindImage},
		{Name: "clip.mp4", Payload: "/dcim/clip.mp4", Kind: KindVideo},
		{Name: "blob", Payload: "/dcim/blob", Kind: KindAny},
	}
	lv, err := AsList(Media, in)
	require.NoError(t, err)
	require.Len(t, lv.Values, 3)
	assert.Equal(t, "/dcim/a.jpg", lv.Values[0].GetStructValue().Fields["path"].GetStringValue())

	out, err := FromList(lv)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCloneDoesNotAlias(t *testing.T) {
	b := Batch{{Name: "a", Payload: "/a", Kind: KindAny}}
	c := b.Clone()
	c[0].Name = "changed"
	assert.Equal(t, "a", b[0].Name)
	assert.Nil(t, Batch(nil).Clone())
}

func TestChannelText(t *testing.T) {
	b, err := json.Marshal(map[string]Channel{"ch": Text})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ch":"text"}`, string(b))

	var got struct{ Ch Channel }
	require.NoError(t, json.Unmarshal([]byte(`{"Ch":"media"}`), &got))
	assert.Equal(t, Media, got.Ch)

	assert.Error(t, json.Unmarshal([]byte(`{"Ch":"audio"}`), &got))
	_, err = Channel(7).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownChannel)
}
