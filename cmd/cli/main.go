// Command cli is an operator tool for checking the remote backend from the
// console's point of view: connectivity, credentials, and list endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nvelasco/stockdesk/internal/backend"
	"github.com/nvelasco/stockdesk/internal/pager"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("expected 'check' or 'login' subcommand")
		os.Exit(1)
	}

	baseURL := os.Getenv("BACKEND_URL")
	if baseURL == "" {
		fmt.Println("BACKEND_URL environment variable is required")
		os.Exit(1)
	}
	api := backend.NewClient(baseURL, 15*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "check":
		runCheck(ctx, api)
	case "login":
		loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
		role := loginCmd.String("role", "admin", "Role to log in as: admin or worker")
		username := loginCmd.String("username", "", "Username")
		password := loginCmd.String("password", "", "Password")
		loginCmd.Parse(os.Args[2:])
		if *username == "" || *password == "" {
			fmt.Println("username and password are required")
			loginCmd.PrintDefaults()
			os.Exit(1)
		}
		runLogin(ctx, api, *role, *username, *password)
	default:
		fmt.Println("expected 'check' or 'login' subcommand")
		os.Exit(1)
	}
}

// runCheck verifies the backend answers /check-auth at all; without a cookie
// the expected answer is simply "not authenticated".
func runCheck(ctx context.Context, api *backend.Client) {
	status, err := api.CheckAuth(ctx, "")
	if err != nil {
		fmt.Printf("backend unreachable or misbehaving: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("backend reachable, authenticated=%v\n", status.Authenticated)
}

// runLogin performs a real login and a first page fetch, which is exactly
// what the console does right after a user signs in.
func runLogin(ctx context.Context, api *backend.Client, role, username, password string) {
	creds := backend.Credentials{Username: username, Password: password}

	var tok backend.Token
	var err error
	switch role {
	case "admin":
		tok, err = api.AdminLogin(ctx, creds)
	case "worker":
		tok, err = api.WorkerLogin(ctx, creds)
	default:
		fmt.Printf("unknown role %q: must be admin or worker\n", role)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("login ok, session cookie captured (%d bytes)\n", len(tok))

	products, err := api.ListProducts(ctx, tok, 1, pager.DefaultPageSize, "")
	if err != nil {
		fmt.Printf("product list failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("product list ok: %d of %d products on page 1\n", len(products.Products), products.TotalCount)
}
