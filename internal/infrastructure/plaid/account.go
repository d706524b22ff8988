package plaid

import (
	plaidsdk "github.com/plaid/plaid-go/v29/plaid"
	"github.com/shopspring/decimal"

	"banklink/internal/domain/linking"
)

func toDomain(a plaidsdk.AccountBase) linking.Account {
	b := a.GetBalances()
	return linking.Account{
		AccountID:    a.GetAccountId(),
		Name:         a.GetName(),
		OfficialName: a.GetOfficialName(),
		Mask:         a.GetMask(),
		Type:         string(a.GetType()),
		Subtype:      string(a.GetSubtype()),
		Balances: linking.Balances{
			Available:       nullDecimal(b.GetAvailableOk()),
			Current:         nullDecimal(b.GetCurrentOk()),
			Limit:           nullDecimal(b.GetLimitOk()),
			ISOCurrencyCode: b.GetIsoCurrencyCode(),
		},
	}
}

// nullDecimal keeps an absent balance distinct from a zero one.
func nullDecimal(v *float64, ok bool) decimal.NullDecimal {
	if !ok || v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}
