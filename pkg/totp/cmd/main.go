package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dmitrymomot/restauth/pkg/totp"
)

func main() {
	account := flag.String("account", "user@example.com", "account name for the provisioning URI")
	issuer := flag.String("issuer", "restauth", "issuer for the provisioning URI")
	flag.Parse()

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	uri, err := totp.GetTOTPURI(totp.TOTPParams{Secret: secret, AccountName: *account, Issuer: *issuer})
	if err != nil {
		log.Fatalf("Failed to build provisioning URI: %v", err)
	}

	encodedKey, err := totp.NewEncryptionKey()
	if err != nil {
		log.Fatalf("Failed to generate encoded encryption key: %v", err)
	}

	fmt.Printf("Secret:\n———\n%s\n———\n", secret)
	fmt.Printf("Provisioning URI:\n———\n%s\n———\n", uri)
	fmt.Printf("Encryption key (for MFA_TOTP_ENCRYPTION_KEY env var):\n———\n%s\n———\n", encodedKey)
}
