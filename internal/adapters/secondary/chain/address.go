package chain

import (
	"fmt"
	"strings"

	"github.com/tonkeeper/tongo/ton"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

const (
	tronAddressLen = 34
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

// NormalizeTONAddress любой формат (raw 0:..., bounceable, non-bounceable) в raw "0:hex"
func NormalizeTONAddress(address string) (string, error) {
	accountID, err := ton.ParseAccountID(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("%w: invalid TON address: %s", domain.ErrValidation, err.Error())
	}
	return accountID.ToRaw(), nil
}

// ValidateTRONAddress base58 "T..." длиной 34
func ValidateTRONAddress(address string) error {
	if len(address) != tronAddressLen || address[0] != 'T' {
		return fmt.Errorf("%w: TRON address must start with T and be %d characters", domain.ErrValidation, tronAddressLen)
	}
	for _, c := range address {
		if !strings.ContainsRune(base58Alphabet, c) {
			return fmt.Errorf("%w: TRON address contains non-base58 character %q", domain.ErrValidation, c)
		}
	}
	return nil
}

// NormalizeAddress приводит адрес сети к каноническому виду для сравнения и хранения
func NormalizeAddress(network domain.Network, address string) (string, error) {
	switch network {
	case domain.NetworkTON:
		return NormalizeTONAddress(address)
	case domain.NetworkTRC20:
		address = strings.TrimSpace(address)
		if err := ValidateTRONAddress(address); err != nil {
			return "", err
		}
		return address, nil
	default:
		return "", domain.ErrUnknownNetwork
	}
}
