package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"admin", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUser},
		{"Admin", RoleUser},
		{"ADMIN", RoleUser},
		{" admin", RoleUser},
		{"enumerator", RoleUser},
		{"superadmin", RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.raw))
		})
	}
}

func TestIdentityPayload_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		payload IdentityPayload
		want    Identity
	}{
		{
			name:    "full_payload",
			payload: IdentityPayload{ID: "17", Username: "ani", Name: "Ani Lestari", Token: "t", Role: "admin"},
			want:    Identity{Username: "ani", SubjectID: "17", DisplayName: "Ani Lestari", Token: "t", Role: RoleAdmin},
		},
		{
			name:    "username_only",
			payload: IdentityPayload{Username: "ani"},
			want:    Identity{Username: "ani", SubjectID: "ani", DisplayName: "ani", Role: RoleUser},
		},
		{
			name:    "id_and_name_without_username",
			payload: IdentityPayload{ID: "5", Name: "Budi"},
			want:    Identity{Username: "Budi", SubjectID: "5", DisplayName: "Budi", Role: RoleUser},
		},
		{
			name:    "unknown_role",
			payload: IdentityPayload{ID: "5", Role: "supervisor"},
			want:    Identity{Username: "", SubjectID: "5", DisplayName: "", Role: RoleUser},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.payload.Normalize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentityPayload_NormalizeRejectsMissingSubject(t *testing.T) {
	_, err := IdentityPayload{Name: "nobody", Token: "t"}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = IdentityPayload{ID: "   "}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestIdentityPayload_DecodesNumericID(t *testing.T) {
	var p IdentityPayload
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"name":"Citra","token":"t"}`), &p))

	id, err := p.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "5", id.SubjectID)
	assert.Equal(t, "Citra", id.DisplayName)
}

func TestAuthResponse_Payload(t *testing.T) {
	t.Run("nested_identity_wins", func(t *testing.T) {
		r := &AuthResponse{
			AccessToken: "jwt",
			Token:       "other",
			User:        &AuthUserInfo{ID: "17", Username: "ani", Name: "ani-name", FullName: "Ani Lestari", Role: "admin"},
			ID:          "99",
			Username:    "top",
			Name:        "Top",
			Role:        "user",
		}
		assert.Equal(t, IdentityPayload{
			ID: "17", Username: "ani", Name: "Ani Lestari", Token: "jwt", Role: "admin",
		}, r.Payload("submitted"))
	})

	t.Run("nested_name_when_no_full_name", func(t *testing.T) {
		r := &AuthResponse{User: &AuthUserInfo{ID: "1", Name: "Short"}}
		assert.Equal(t, "Short", r.Payload("s").Name)
	})

	t.Run("top_level_fallback", func(t *testing.T) {
		r := &AuthResponse{Token: "opaque", ID: "u-1", Username: "budi", Name: "Budi", Role: "admin"}
		assert.Equal(t, IdentityPayload{
			ID: "u-1", Username: "budi", Name: "Budi", Token: "opaque", Role: "admin",
		}, r.Payload("submitted"))
	})

	t.Run("submitted_username_last_resort", func(t *testing.T) {
		r := &AuthResponse{}
		assert.Equal(t, IdentityPayload{
			ID: "citra", Username: "citra", Name: "citra", Role: "user",
		}, r.Payload("citra"))
	})
}
