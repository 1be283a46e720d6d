package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/portfolio-site/meetbook/libs/auth"
)

// admin-passwd prints a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func main() {
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "plain password; read from stdin when empty")
	flag.Parse()

	raw := *password
	if raw == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fatal("password required on stdin or -password")
		}
		raw = strings.TrimRight(line, "\r\n")
	}
	if len(raw) < 8 {
		fatal("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(raw)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Println(hash)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
