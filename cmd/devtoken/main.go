// Command devtoken mints an access token for local testing, signed with
// AUTH_TOKEN_SECRET from the environment or .env.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"storefront/internal/auth"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user", 1, "user id (sub claim)")
	role := flag.String("role", auth.RoleCustomer, "customer or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("AUTH_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("AUTH_TOKEN_SECRET is not set")
	}
	if *role != auth.RoleCustomer && *role != auth.RoleAdmin {
		log.Fatalf("unknown role %q", *role)
	}

	iss := os.Getenv("AUTH_TOKEN_ISS")
	if iss == "" {
		iss = "storefront"
	}

	token, err := auth.NewJWTAuthenticator(secret, iss, iss, *ttl).GenerateToken(*userID, *role)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
