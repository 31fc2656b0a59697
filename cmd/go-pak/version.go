package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

// sessionID identifies one invocation of the CLI for correlating log
// lines across a run. A random ID plus a timestamp, rather than the
// process PID, which wraps and gets reused across short-lived runs.
var sessionID = uuid.New().String() + ":" + time.Now().Format("20060102T150405")

type versionInfo struct {
	Version   string `json:"version"`
	SessionID string `json:"session_id"`
}

func newCmd_Version() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the build version",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print version info as JSON"},
		},
		Action: func(c *cli.Context) error {
			sha := gitCommitSHA
			if sha == "" {
				sha = "dev"
			}
			if c.Bool("json") {
				b, err := json.Marshal(versionInfo{Version: sha, SessionID: sessionID})
				if err != nil {
					return fmt.Errorf("marshal version info: %w", err)
				}
				fmt.Println(string(b))
				return nil
			}
			fmt.Println("go-pak " + sha)
			return nil
		},
	}
}
