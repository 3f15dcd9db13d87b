package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150 000 FCFA", FormatAmount(decimal.NewFromInt(150000), "FCFA"))
	assert.Equal(t, "1 234 567", FormatAmount(decimal.NewFromInt(1234567), ""))
	assert.Equal(t, "500 EUR", FormatAmount(decimal.NewFromInt(500), "EUR"))
	assert.Equal(t, "1 234,50 EUR", FormatAmount(decimal.RequireFromString("1234.5"), "EUR"))
}

func TestRender(t *testing.T) {
	for _, kind := range []Kind{KindRent, KindDeposit} {
		var buf bytes.Buffer
		err := Render(&buf, Data{
			BusinessName: "Gestion Locative",
			Currency:     "FCFA",
			Number:       "REC-202403-ABC234",
			Kind:         kind,
			Date:         time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			ClientName:   "Awa Diop",
			ClientPhone:  "771234567",
			PropertyName: "Sacré-Coeur 3, appartement B",
			PeriodStart:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:    time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			Amount:       decimal.NewFromInt(50000),
			Owed:         decimal.NewFromInt(150000),
			PaidToDate:   decimal.NewFromInt(50000),
		})
		require.NoError(t, err, kind)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), kind)
	}
}
