// tools/cmd/devtokens/main.go
package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/example/payment-settlement/internal/config"
	"github.com/example/payment-settlement/internal/httpapi"
)

// Mints bearer tokens for local testing against the payments and ledger APIs.
func main() {
	n := flag.Int("n", 10, "number of users (rows, without header)")
	out := flag.String("out", "tmp/dev_tokens.csv", "output CSV path")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	envFile := flag.String("env-file", ".env", "dotenv file with JWT_SECRET_KEY")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatal(err)
	}
	cfg := config.LoadPayments()
	auth := httpapi.NewAuthenticator(cfg.Auth.SecretKey, cfg.Auth.Algorithm, nil)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	_ = w.Write([]string{"user_id", "authorization"})
	for i := 0; i < *n; i++ {
		userID := uuid.NewString()
		tok, err := auth.Issue(userID, *ttl)
		if err != nil {
			log.Fatal(err)
		}
		if err := w.Write([]string{userID, "Bearer " + tok}); err != nil {
			log.Fatal(err)
		}
	}
	log.Printf("generated %s (%d rows + header)", *out, *n)
}
