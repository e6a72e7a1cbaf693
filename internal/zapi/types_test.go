package zapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString_NumberAndStringAgree(t *testing.T) {
	cases := map[string]string{
		`12345`:     "12345",
		`"12345"`:   "12345",
		`12345.0`:   "12345",
		`" 12345 "`: "12345",
		`"abc-1"`:   "abc-1",
		`null`:      "",
	}
	for in, want := range cases {
		var s FlexString
		require.NoError(t, json.Unmarshal([]byte(in), &s), in)
		assert.Equal(t, want, s.String(), in)
	}
}

func TestFlexInt(t *testing.T) {
	cases := map[string]int64{
		`3`:     3,
		`"3"`:   3,
		`""`:    0,
		`null`:  0,
		`4.0`:   4,
		`"  7"`: 7,
	}
	for in, want := range cases {
		var v FlexInt
		require.NoError(t, json.Unmarshal([]byte(in), &v), in)
		assert.Equal(t, want, int64(v), in)
	}

	var v FlexInt
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &v))
}

func TestCanonicalID(t *testing.T) {
	assert.Equal(t, "42", CanonicalID("42"))
	assert.Equal(t, "42", CanonicalID(" 42.0 "))
	assert.Equal(t, "p-42", CanonicalID("p-42"))
	assert.Equal(t, "", CanonicalID("  "))
}

func TestGuideChannel_ChannelIDFallback(t *testing.T) {
	assert.Equal(t, "ard", GuideChannel{CID: "ard", ID: "x"}.ChannelID())
	assert.Equal(t, "x", GuideChannel{ID: "x"}.ChannelID())
}

func TestDecodeDetails_ObjectAndArray(t *testing.T) {
	obj := json.RawMessage(`{"101": {"d": "desc", "s_no": "2"}, "102": "broken", "103.0": {"t": "T"}}`)
	got := decodeDetails(obj)
	require.Len(t, got, 2)
	assert.Equal(t, "desc", got["101"].Description)
	assert.Equal(t, FlexInt(2), got["101"].Season)
	assert.Equal(t, FlexString("101"), got["101"].ID)
	assert.Equal(t, "T", got["103"].Title)

	arr := json.RawMessage(`[{"id": 201, "d": "a"}, {"id": "202", "d": "b"}, {"d": "no id"}, 5]`)
	got = decodeDetails(arr)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got["201"].Description)
	assert.Equal(t, "b", got["202"].Description)

	assert.Empty(t, decodeDetails(nil))
	assert.Empty(t, decodeDetails(json.RawMessage(`null`)))
	assert.Empty(t, decodeDetails(json.RawMessage(`"text"`)))
}
