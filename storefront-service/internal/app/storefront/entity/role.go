package entity

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

var ErrUnknownRole = errors.New("unknown role")

// Role - закрытый набор ролей аккаунта
type Role string

const (
	RoleCustomer Role = "Customer"
	RolePharmacy Role = "Pharmacy"
	RoleDelivery Role = "Delivery"
)

var Roles = []Role{RoleCustomer, RolePharmacy, RoleDelivery}

// ParseRole приводит строку роли в любом регистре к каноничному значению
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) Valid() bool {
	parsed, err := ParseRole(string(r))
	return err == nil && parsed == r
}

// Spellings - написания роли, которые встречаются в хранилище
func (r Role) Spellings() []string {
	s := string(r)
	return []string{s, strings.ToLower(s), strings.ToUpper(s)}
}

func (r Role) String() string {
	return string(r)
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalBSONValue нормализует роль при чтении из хранилища:
// в старых документах встречается "pharmacy" и "delivery" в нижнем регистре.
func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*r = ""
		return nil
	}
	s, ok := bsoncore.Value{Type: t, Data: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("%w: bson type %s", ErrUnknownRole, t)
	}
	return r.UnmarshalText([]byte(s))
}
