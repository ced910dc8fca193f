package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pharmacart/pkg/logger"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/session"
)

// AccountService - профиль аккаунта и потоки верификации ролей
type AccountService struct {
	accounts  repository.AccountRepository
	directory DirectoryInvalidator
}

func NewAccountService(accounts repository.AccountRepository, directory DirectoryInvalidator) *AccountService {
	return &AccountService{
		accounts:  accounts,
		directory: directory,
	}
}

// LoadOrCreate возвращает аккаунт, создавая его при первом входе.
// Роль берется из подсказки токена, по умолчанию Customer.
func (s *AccountService) LoadOrCreate(ctx context.Context, identity session.Identity) (*entity.Account, error) {
	account, err := s.accounts.GetByID(ctx, identity.UID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	role := entity.RoleCustomer
	if identity.RoleHint != "" {
		if parsed, err := entity.ParseRole(identity.RoleHint); err == nil {
			role = parsed
		} else {
			logger.Warn().Str("user_id", identity.UID).Str("role_hint", identity.RoleHint).Msg("Ignoring unknown role hint")
		}
	}

	account = &entity.Account{
		UID:      identity.UID,
		Role:     role,
		FullName: identity.Name,
		Email:    identity.Email,
		Username: usernameFromEmail(identity.Email),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// параллельный первый вход того же пользователя
		if errors.Is(err, repository.ErrAccountExists) {
			return s.accounts.GetByID(ctx, identity.UID)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	logger.Info().Str("user_id", account.UID).Str("role", string(account.Role)).Msg("Account created on first sign-in")
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, uid string) (*entity.Account, error) {
	account, err := s.accounts.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// SelectRole - выбор роли при онбординге. Сбрасывает оба флага верификации.
func (s *AccountService) SelectRole(ctx context.Context, uid, roleName string) (*entity.Account, error) {
	role, err := entity.ParseRole(roleName)
	if err != nil {
		return nil, err
	}

	account, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if account.IsPharmacyVerified || account.IsDeliveryInfoComplete {
		if account.Role == role {
			return account, nil
		}
		return nil, ErrRoleLocked
	}

	wasPharmacy := account.Role == entity.RolePharmacy
	account.Role = role
	account.IsPharmacyVerified = false
	account.IsDeliveryInfoComplete = false
	account.PharmacyInfo = nil
	account.DeliveryInfo = nil

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	if wasPharmacy || role == entity.RolePharmacy {
		s.invalidateDirectory(ctx)
	}

	logger.Info().Str("user_id", uid).Str("role", string(role)).Msg("Account role selected")
	return account, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, uid string, req *entity.UpdateProfileRequest) (*entity.Account, error) {
	account, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	if req.FullName != "" {
		account.FullName = req.FullName
	}
	if req.PhoneNumber != "" {
		account.PhoneNumber = req.PhoneNumber
	}
	if req.Username != "" {
		account.Username = req.Username
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if account.Role == entity.RolePharmacy && account.PharmacyInfo == nil {
		// имя аптеки без pharmacyInfo берется из fullName
		s.invalidateDirectory(ctx)
	}
	return account, nil
}

// SubmitPharmacyVerification доступна только роли Pharmacy
func (s *AccountService) SubmitPharmacyVerification(ctx context.Context, uid string, info entity.PharmacyInfo) (*entity.Account, error) {
	account, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if account.Role != entity.RolePharmacy {
		return nil, ErrRoleMismatch
	}

	info.Name = strings.TrimSpace(info.Name)
	account.PharmacyInfo = &info
	account.IsPharmacyVerified = true

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save pharmacy verification: %w", err)
	}
	s.invalidateDirectory(ctx)

	logger.Info().Str("user_id", uid).Str("pharmacy_name", info.Name).Msg("Pharmacy verified")
	return account, nil
}

// SubmitDeliveryInfo доступна только роли Delivery
func (s *AccountService) SubmitDeliveryInfo(ctx context.Context, uid string, info entity.DeliveryInfo) (*entity.Account, error) {
	account, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if account.Role != entity.RoleDelivery {
		return nil, ErrRoleMismatch
	}

	account.DeliveryInfo = &info
	account.IsDeliveryInfoComplete = true

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save delivery info: %w", err)
	}

	logger.Info().Str("user_id", uid).Str("service_area", info.ServiceArea).Msg("Delivery info completed")
	return account, nil
}

func (s *AccountService) invalidateDirectory(ctx context.Context) {
	if s.directory == nil {
		return
	}
	if err := s.directory.Invalidate(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate pharmacy directory")
	}
}

func usernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return ""
}
