package service

import (
	"context"
	"testing"

	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func verifiedPharmacy() *entity.Account {
	return &entity.Account{
		UID:                "ph1",
		Role:               entity.RolePharmacy,
		IsPharmacyVerified: true,
		PharmacyInfo:       &entity.PharmacyInfo{Name: "Nile Pharmacy"},
	}
}

func productRequest() *entity.UpsertProductRequest {
	return &entity.UpsertProductRequest{
		Name:     "Panadol Extra",
		Brand:    "GSK",
		Price:    45,
		Category: "Pain Relief",
		InStock:  true,
	}
}

// ===================== Product Tests =====================

func TestCatalogService_Upsert_CreatesProduct(t *testing.T) {
	// Arrange
	ctx := context.Background()
	products := new(mocks.MockProductRepository)
	products.On("Save", ctx, mock.MatchedBy(func(p *entity.Product) bool {
		return p.ID != "" && p.PharmacyName == "Nile Pharmacy" && p.Rating == 0
	})).Return(nil)
	products.On("GetByID", ctx, mock.AnythingOfType("string")).Return(&entity.Product{ID: "new", PharmacyName: "Nile Pharmacy"}, nil)
	svc := NewCatalogService(products)

	// Act
	product, err := svc.Upsert(ctx, verifiedPharmacy(), productRequest())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Nile Pharmacy", product.PharmacyName)
	products.AssertExpectations(t)
}

func TestCatalogService_Upsert_RequiresVerifiedPharmacy(t *testing.T) {
	tests := []struct {
		name     string
		account  *entity.Account
		expected error
	}{
		{
			name:     "customer",
			account:  &entity.Account{UID: "c1", Role: entity.RoleCustomer},
			expected: ErrRoleMismatch,
		},
		{
			name:     "unverified pharmacy",
			account:  &entity.Account{UID: "ph1", Role: entity.RolePharmacy},
			expected: ErrNotVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(mocks.MockProductRepository)
			svc := NewCatalogService(products)

			_, err := svc.Upsert(context.Background(), tt.account, productRequest())

			assert.ErrorIs(t, err, tt.expected)
			products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestCatalogService_Upsert_ForeignProduct(t *testing.T) {
	ctx := context.Background()
	products := new(mocks.MockProductRepository)
	products.On("GetByID", ctx, "p1").Return(&entity.Product{ID: "p1", PharmacyName: "Delta Pharmacy"}, nil)
	svc := NewCatalogService(products)

	req := productRequest()
	req.ID = "p1"
	_, err := svc.Upsert(ctx, verifiedPharmacy(), req)

	assert.ErrorIs(t, err, ErrForbidden)
	products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCatalogService_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	products := new(mocks.MockProductRepository)
	products.On("GetByID", ctx, "ghost").Return(nil, repository.ErrProductNotFound)
	svc := NewCatalogService(products)

	_, err := svc.Get(ctx, "ghost")

	assert.ErrorIs(t, err, ErrProductNotFound)
}
