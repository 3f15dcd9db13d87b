package domain

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Identifier prefixes.
const (
	PrefixClient  = "client"
	PrefixRental  = "rental"
	PrefixPeriod  = "mp"
	PrefixRecord  = "pr"
	PrefixDeposit = "dep"
	PrefixDoc     = "doc"
)

// Receipt number prefixes.
const (
	ReceiptRent    = "REC"
	ReceiptDeposit = "DEP"
)

const receiptAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewID returns "<prefix>_<uuid>".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewReceiptNumber returns "<prefix>-<yyyyMM>-<6 random characters>".
func NewReceiptNumber(prefix string, now time.Time) string {
	b := make([]byte, 6)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(receiptAlphabet))))
		if err != nil {
			panic(err)
		}
		b[i] = receiptAlphabet[n.Int64()]
	}
	return prefix + "-" + now.UTC().Format("200601") + "-" + string(b)
}
