// Command token mints an access token for a registry user, creating the
// user when it does not exist yet. It reads the server configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joaopapereira/crates.io/internal/flagx"
	"github.com/joaopapereira/crates.io/internal/server"
	"github.com/joaopapereira/crates.io/internal/server/config"
)

func main() {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	login := fs.String("l", "", "github login of the user")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-l"}))

	if *login == "" {
		log.Fatal("usage: token -l <login> [server flags]")
	}

	cfg := config.LoadConfig()
	token, err := server.IssueToken(context.Background(), cfg, *login)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(token)
}
