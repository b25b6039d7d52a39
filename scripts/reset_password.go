package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Quick utility to generate a bcrypt hash for an identity's password
// Usage: go run scripts/reset_password.go <email-or-phone> <password>
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/reset_password.go <email-or-phone> <password>")
		fmt.Println("Example: go run scripts/reset_password.go admin@safekid-nepal.app s3cret!")
		os.Exit(1)
	}

	identifier := strings.TrimSpace(os.Args[1])
	password := os.Args[2]
	if len(password) < 6 {
		fmt.Println("Password must be at least 6 characters")
		os.Exit(1)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	field := "phone"
	if strings.Contains(identifier, "@") {
		field = "email"
		identifier = strings.ToLower(identifier)
	}

	fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))
	fmt.Printf("\nTo update in MongoDB, run:\n")
	fmt.Printf("db.identities.updateOne(\n")
	fmt.Printf("  {\"%s\": \"%s\"},\n", field, identifier)
	fmt.Printf("  {$set: {\"password_hash\": \"%s\"}}\n", string(hashedPassword))
	fmt.Printf(")\n")
}
