package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseRole_NormalizesCasing(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"Customer", RoleCustomer},
		{"pharmacy", RolePharmacy},
		{"PHARMACY", RolePharmacy},
		{" delivery ", RoleDelivery},
		{"Delivery", RoleDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRole_Unknown(t *testing.T) {
	_, err := ParseRole("admin")
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RolePharmacy.Valid())
	assert.False(t, Role("pharmacy").Valid())
	assert.False(t, Role("").Valid())
}

func TestRole_JSONUnmarshalNormalizes(t *testing.T) {
	var acc Account
	err := json.Unmarshal([]byte(`{"uid":"u1","role":"delivery"}`), &acc)

	require.NoError(t, err)
	assert.Equal(t, RoleDelivery, acc.Role)
}

func TestRole_BSONDecodeNormalizesLegacyValues(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": "u1", "role": "pharmacy"})
	require.NoError(t, err)

	var acc Account
	require.NoError(t, bson.Unmarshal(raw, &acc))
	assert.Equal(t, RolePharmacy, acc.Role)
}

func TestRole_BSONDecodeRejectsUnknown(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": "u1", "role": "admin"})
	require.NoError(t, err)

	var acc Account
	assert.Error(t, bson.Unmarshal(raw, &acc))
}
