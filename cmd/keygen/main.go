package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/Daytona2026/Warmano-webseite/internal/auth"
)

func main() {
	apiKey := ""
	if len(os.Args) > 1 {
		apiKey = os.Args[1]
	} else {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
			os.Exit(1)
		}
		apiKey = "wk_" + hex.EncodeToString(buf)
	}

	fmt.Printf("Admin API key: %s\n", apiKey)
	fmt.Printf("SHA-256 hash:  %s\n", auth.HashAPIKey(apiKey))
	fmt.Println("\nSet it for the gateway, e.g. in .env:")
	fmt.Printf("  WARMANO_SERVER__ADMIN_API_KEY=%s\n", apiKey)
	fmt.Println("\nCall admin routes with:")
	fmt.Printf("  curl -H '%s: %s' http://localhost:8080/api/admin/bookings\n", auth.HeaderAPIKey, apiKey)
}
