package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"minishop/config"
	"minishop/console"
	"minishop/db"
	"minishop/logx"
	"minishop/service"
	"minishop/session"
	"minishop/store"
)

func main() {
	var envFile, loginID string
	var verbose bool
	flag.StringVar(&envFile, "env", ".env", "dotenv file to load outside production")
	flag.StringVar(&loginID, "login", "", "login id (prompted when empty)")
	flag.BoolVar(&verbose, "v", false, "log to stderr")
	flag.Parse()

	if err := run(envFile, loginID, verbose); err != nil {
		fmt.Fprintf(os.Stderr, "minishop: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile, loginID string, verbose bool) error {
	cfg, warnings, err := config.Load(envFile)
	if err != nil {
		return err
	}
	var logOut io.Writer = io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment(), Output: logOut})
	for _, w := range warnings {
		logx.Warn().Msg(w)
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	st := store.NewPostgresStore(conn)
	defer st.Close()

	svc := service.NewService(st, service.WithMinCharge(cfg.MinCharge))

	in := bufio.NewReader(os.Stdin)
	sess, err := login(ctx, svc, in, loginID)
	if err != nil {
		return err
	}

	return console.New(svc, sess, in, os.Stdout).Run(ctx)
}

// login asks for credentials until they match, up to three times.
func login(ctx context.Context, svc service.ServiceInterface, in *bufio.Reader, loginID string) (*session.Session, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := loginID
		if id == "" {
			fmt.Print("Login id: ")
			s, err := in.ReadString('\n')
			if err != nil {
				return nil, err
			}
			id = strings.TrimSpace(s)
		}
		fmt.Print("Password: ")
		pw, err := in.ReadString('\n')
		if err != nil {
			return nil, err
		}

		sess, err := svc.Login(ctx, id, strings.TrimSpace(pw))
		if err == nil {
			return sess, nil
		}
		fmt.Println("Login failed.")
	}
	return nil, errors.New("too many failed logins")
}
