// Package gate решает, пускать ли навигацию на назначение или перенаправить.
// Evaluate - чистая функция состояния аккаунта и требований назначения.
package gate

import (
	"pharmacart/storefront-service/internal/app/storefront/entity"
)

type Outcome string

const (
	OutcomeAdmit    Outcome = "admit"
	OutcomeSuspend  Outcome = "suspend"
	OutcomeRedirect Outcome = "redirect"
)

type Reason string

const (
	ReasonPublic               Reason = "public"
	ReasonLoading              Reason = "loading"
	ReasonUnauthenticated      Reason = "unauthenticated"
	ReasonRoleMismatch         Reason = "role_mismatch"
	ReasonVerificationMismatch Reason = "verification_mismatch"
	ReasonAlreadyVerified      Reason = "already_verified"
	ReasonAdmitted             Reason = "admitted"
)

// AccountState - то, что гейт знает об аккаунте
type AccountState struct {
	Loading              bool        `json:"loading"`
	Authenticated        bool        `json:"authenticated"`
	Role                 entity.Role `json:"role,omitempty"`
	PharmacyVerified     bool        `json:"pharmacy_verified"`
	DeliveryInfoComplete bool        `json:"delivery_info_complete"`
}

// StateOf строит состояние из профиля; nil означает отсутствие входа
func StateOf(account *entity.Account) AccountState {
	if account == nil {
		return AccountState{}
	}
	return AccountState{
		Authenticated:        true,
		Role:                 account.Role,
		PharmacyVerified:     account.IsPharmacyVerified,
		DeliveryInfoComplete: account.IsDeliveryInfoComplete,
	}
}

// Destination - требования назначения навигации
type Destination struct {
	Path   string `json:"path"`
	Public bool   `json:"public"`
	// RequiredRole пустая - подходит любая роль
	RequiredRole entity.Role `json:"required_role,omitempty"`
	// VerificationFor непустая - это страница верификации для роли
	VerificationFor entity.Role `json:"verification_for,omitempty"`
}

type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Reason   Reason  `json:"reason"`
	Location string  `json:"location,omitempty"`
}

func admit(reason Reason) Decision {
	return Decision{Outcome: OutcomeAdmit, Reason: reason}
}

func redirect(reason Reason, location string) Decision {
	return Decision{Outcome: OutcomeRedirect, Reason: reason, Location: location}
}

// Evaluate проверяет состояния по порядку, первое совпадение побеждает
func (t *Table) Evaluate(state AccountState, dest Destination) Decision {
	if dest.Public {
		return admit(ReasonPublic)
	}
	if state.Loading {
		return Decision{Outcome: OutcomeSuspend, Reason: ReasonLoading}
	}
	if !state.Authenticated {
		return redirect(ReasonUnauthenticated, t.Login)
	}
	if dest.RequiredRole != "" && state.Role != dest.RequiredRole {
		return redirect(ReasonRoleMismatch, t.AccountLanding)
	}
	if dest.VerificationFor != "" {
		if state.Role != dest.VerificationFor {
			return redirect(ReasonVerificationMismatch, t.AccountLanding)
		}
		if verified(state, dest.VerificationFor) {
			return redirect(ReasonAlreadyVerified, t.Dashboard(state.Role))
		}
	}
	return admit(ReasonAdmitted)
}

func verified(state AccountState, role entity.Role) bool {
	switch role {
	case entity.RolePharmacy:
		return state.PharmacyVerified
	case entity.RoleDelivery:
		return state.DeliveryInfoComplete
	}
	return false
}
