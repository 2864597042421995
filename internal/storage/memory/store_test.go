package memory

import (
	"testing"

	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/storage/storagetest"
)

func TestCompanyStore(t *testing.T) {
	storagetest.RunCompanyStoreTests(t, func(t *testing.T) interfaces.CompanyStore {
		return NewCompanyStore()
	})
}

func TestPriceStore(t *testing.T) {
	storagetest.RunPriceStoreTests(t, func(t *testing.T) interfaces.PriceStore {
		return NewPriceStore()
	})
}
