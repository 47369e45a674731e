package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Credential store keys. The names are shared with existing persisted
// data and must not change.
const (
	KeyLegacyUserID    = "userId"
	KeyLegacyUserName  = "userName"
	KeyLegacyUserToken = "userToken"
	KeyAuthUser        = "auth_user"
	KeyAuthToken       = "auth_token"
)

// AllCredentialKeys lists every key a session may occupy.
var AllCredentialKeys = []string{
	KeyLegacyUserID,
	KeyLegacyUserName,
	KeyLegacyUserToken,
	KeyAuthUser,
	KeyAuthToken,
}

// CredentialStore is a scoped string key-value area that survives
// process restarts. Get reports absence with ok=false and a nil error.
type CredentialStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// AuthRecord is the structured value stored under KeyAuthUser.
type AuthRecord struct {
	Username FlexString `json:"username"`
	ID       FlexString `json:"id"`
	Name     FlexString `json:"name"`
	Token    FlexString `json:"token"`
	Role     FlexString `json:"role"`
}

// NewAuthRecord builds the record written for an identity.
func NewAuthRecord(id Identity) AuthRecord {
	return AuthRecord{
		Username: FlexString(id.Username),
		ID:       FlexString(id.SubjectID),
		Name:     FlexString(id.DisplayName),
		Token:    FlexString(id.Token),
		Role:     FlexString(id.Role),
	}
}

// ParseAuthRecord decodes a stored record. Anything other than a JSON
// object is rejected with ErrMalformedRecord.
func ParseAuthRecord(raw string) (AuthRecord, error) {
	var rec AuthRecord
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return rec, ErrMalformedRecord
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return rec, nil
}

// Encode renders the record as stored JSON.
func (r AuthRecord) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FlexString decodes a JSON string, number, or bool into a string and
// null into the empty string. Backend ids are numeric while ids written
// by older clients are strings.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = FlexString(data)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: unsupported value %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
