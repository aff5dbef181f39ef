package challenge

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	InviteCodeLength = 8
	// no 0/O or 1/I so codes survive being read aloud
	inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func NewInviteCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < InviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode makes codes case-insensitive.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
