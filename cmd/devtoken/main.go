// Command devtoken prints a signed bearer token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"consultations/config"
	"consultations/internal/adapters/auth"
	"consultations/internal/domain"
)

func main() {
	sub := flag.String("sub", "", "user id carried in the sub claim")
	role := flag.String("role", string(domain.RoleStudent), "student, lecturer or admin")
	email := flag.String("email", "", "optional email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *sub == "" {
		log.Fatal("-sub is required")
	}
	r, ok := domain.ParseRole(*role)
	if !ok {
		log.Fatalf("unknown role %q", *role)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := auth.NewJWTIssuer(cfg.JWTSecret, *ttl).Issue(domain.Identity{UserID: *sub, Role: r}, *email)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
