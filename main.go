package main

import (
	"context"
	"os"
	"time"

	"touchpanel-go/app"
	"touchpanel-go/errcode"
	"touchpanel-go/platform"
)

// board may be set at link time: -ldflags "-X main.board=lab2b".
var board = platform.DefaultBoard

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot", board)

	a, err := app.Start(board, app.Options{})
	if err != nil {
		println("[main] init failed:", err.Error())
		os.Exit(errcode.ExitCode(err))
	}
	err = a.Run(context.Background())
	a.Log.Error("polling ended", "err", err)
	os.Exit(errcode.ExitCode(err))
}
