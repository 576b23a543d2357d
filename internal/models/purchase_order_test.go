package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAccount(t *testing.T) {
	cases := []struct {
		account AccountingAccount
		want    BudgetClass
	}{
		{AccountWaterSewage, ClassOpex},
		{AccountEnergy, ClassOpex},
		{AccountMedicalGases, ClassOpex},
		{AccountEquipRental, ClassOpex},
		{AccountBuildingMnt, ClassOpex},
		{AccountEquipMnt, ClassOpex},
		{AccountFurnitureMnt, ClassOpex},
		{AccountInvestment, ClassCapex},
	}

	for _, tc := range cases {
		t.Run(string(tc.account), func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyAccount(tc.account))
		})
	}
}

func TestReclassifyOverridesCallerValue(t *testing.T) {
	o := PurchaseOrder{
		AccountingAccount: AccountEnergy,
		Classification:    ClassCapex, // valor adulterado pelo chamador
	}
	o.Reclassify()
	assert.Equal(t, ClassOpex, o.Classification)

	o.AccountingAccount = AccountInvestment
	o.Classification = ClassOpex
	o.Reclassify()
	assert.Equal(t, ClassCapex, o.Classification)
}

func TestAccountingAccountValid(t *testing.T) {
	assert.True(t, AccountEnergy.Valid())
	assert.True(t, AccountInvestment.Valid())
	assert.False(t, AccountingAccount("CONTA_INEXISTENTE").Valid())
	assert.False(t, AccountingAccount("").Valid())
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusCompleted} {
		assert.True(t, s.Valid())
	}
	assert.False(t, OrderStatus("PENDENTE").Valid())
}
