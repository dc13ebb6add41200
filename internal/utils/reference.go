package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewLedgerReference returns a unique reference for a ledger entry, e.g.
// "reward-4b1f...". The prefix is the transaction type.
func NewLedgerReference(prefix string) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(prefix), uuid.NewString())
}

// GenerateReceipt returns a short receipt id in the format RCPT-XXXX-XXXX-XXXX
// for payment gateway orders.
func GenerateReceipt() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	hex := strings.ToUpper(hex.EncodeToString(bytes))
	return fmt.Sprintf("RCPT-%s-%s-%s",
		hex[0:4],
		hex[4:8],
		hex[8:12],
	), nil
}
