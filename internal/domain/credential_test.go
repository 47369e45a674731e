package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString_Unmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want FlexString
	}{
		{`"abc"`, "abc"},
		{`17`, "17"},
		{`1.5`, "1.5"},
		{`null`, ""},
		{`true`, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var f FlexString
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &f))
			assert.Equal(t, tt.want, f)
		})
	}

	var f FlexString
	assert.Error(t, json.Unmarshal([]byte(`{"nested":1}`), &f))
}

func TestParseAuthRecord(t *testing.T) {
	t.Run("numeric_id", func(t *testing.T) {
		rec, err := ParseAuthRecord(`{"username":"ani","id":17,"token":null,"role":"admin"}`)
		require.NoError(t, err)
		assert.Equal(t, FlexString("17"), rec.ID)
		assert.Equal(t, FlexString(""), rec.Token)
		assert.Equal(t, FlexString("admin"), rec.Role)
	})

	for _, raw := range []string{"", "   ", "null", "[]", `"string"`, "{broken", "42"} {
		t.Run("rejects_"+raw, func(t *testing.T) {
			_, err := ParseAuthRecord(raw)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestAuthRecord_EncodeRoundTrip(t *testing.T) {
	id := Identity{Username: "ani", SubjectID: "17", DisplayName: "Ani", Token: "t", Role: RoleAdmin}

	raw, err := NewAuthRecord(id).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"ani","id":"17","name":"Ani","token":"t","role":"admin"}`, raw)

	rec, err := ParseAuthRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, NewAuthRecord(id), rec)
}
