package common

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// AddressQRCode generates QR code of address as base64 PNG
func AddressQRCode(address string, size int) (string, error) {
	if address == "" {
		return "", fmt.Errorf("address is empty")
	}
	if size <= 0 {
		size = 256
	}

	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(size)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
