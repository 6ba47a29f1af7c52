// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/livekit/protocol/tracer/jaeger"
	"github.com/urfave/cli/v3"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/callorch/pkg/callbus"
	"github.com/livekit/callorch/pkg/calltest"
	"github.com/livekit/callorch/pkg/config"
	"github.com/livekit/callorch/pkg/errors"
	"github.com/livekit/callorch/pkg/service"
	"github.com/livekit/callorch/version"
)

func main() {
	cmd := &cli.Command{
		Name:        "voice-client",
		Usage:       "LiveKit voice client",
		Version:     version.Version,
		Description: "Call session orchestrator driven from the terminal against a simulated backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "voice client yaml config file",
				Sources: cli.EnvVars("VOICE_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config-body",
				Usage:   "voice client yaml config body",
				Sources: cli.EnvVars("VOICE_CONFIG_BODY"),
			},
		},
		Action: runService,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
	}
}

func runService(ctx context.Context, c *cli.Command) error {
	conf, err := getConfig(c, true)
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	if conf.JaegerURL != "" {
		jaeger.Configure(ctx, conf.JaegerURL, conf.ServiceName)
	}

	backend := calltest.NewBackend()
	backend.Auto = true
	ui := calltest.NewUI()
	ui.AutoDeliver = true

	svc, err := service.NewService(conf, log, backend, ui)
	if err != nil {
		return err
	}
	backend.SetSink(svc.Orchestrator())
	ui.SetSink(svc.Orchestrator())

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGTERM, syscall.SIGQUIT)

	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, syscall.SIGINT)

	go func() {
		select {
		case sig := <-stopChan:
			log.Infow("exit requested, ending the current call then shutting down", "signal", sig)
			svc.Stop(false)
		case sig := <-killChan:
			log.Infow("exit requested, shutting down", "signal", sig)
			svc.Stop(true)
		}
	}()

	go watchStatus(ctx, svc.Bus())
	go func() {
		readCommands(os.Stdin, svc, ui, log)
		svc.Stop(false)
	}()

	return svc.Run()
}

func watchStatus(ctx context.Context, bus *callbus.Bus) {
	sub := bus.Status()
	defer sub.Close()
	for {
		st, err := sub.Next(ctx)
		if err != nil {
			return
		}
		fmt.Println("call:", st.State())
	}
}

const usage = `commands:
  call <number>        start an outbound call
  hangup               end the current call
  speaker on|off       route audio to the speaker
  incoming <from>      simulate an incoming invite
  answer               answer the last incoming invite
  cancel               cancel the last incoming invite
  quit                 end the call and exit`

func readCommands(r io.Reader, svc *service.Service, ui *calltest.UI, log logger.Logger) {
	fmt.Println(usage)
	var (
		invites  int
		inviteID string
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		arg := strings.Join(fields[1:], " ")
		switch fields[0] {
		case "call":
			svc.Bus().PublishOperation(callbus.StartCall(arg))
		case "hangup":
			svc.Bus().PublishOperation(callbus.EndCall())
		case "speaker":
			svc.Orchestrator().SetAudioConfig(arg == "on")
		case "incoming":
			invites++
			inviteID = fmt.Sprintf("INV_%d", invites)
			svc.Push().OnPushPayload(calltest.InvitePayload(inviteID, arg, true))
		case "answer":
			in := ui.Incoming()
			if len(in) == 0 {
				fmt.Println("no incoming call")
				continue
			}
			a := ui.Answer(in[len(in)-1].ActionID)
			<-a.Done()
			if err := a.Err(); err != nil {
				log.Infow("answer failed", "error", err, "code", errors.Code(err))
			}
		case "cancel":
			if inviteID == "" {
				fmt.Println("no incoming call")
				continue
			}
			svc.Push().OnPushPayload(calltest.CancelPayload(inviteID))
		case "quit", "exit":
			return
		default:
			fmt.Println(usage)
		}
	}
}

func getConfig(c *cli.Command, initialize bool) (*config.Config, error) {
	configFile := c.String("config")
	configBody := c.String("config-body")
	if configBody == "" {
		if configFile == "" {
			// The access token alone can come from the environment.
			if os.Getenv("VOICE_ACCESS_TOKEN") == "" {
				return nil, errors.ErrNoConfig
			}
		} else {
			content, err := os.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			configBody = string(content)
		}
	}

	conf, err := config.NewConfig(configBody)
	if err != nil {
		return nil, err
	}

	if initialize {
		err = conf.Init()
		if err != nil {
			return nil, err
		}
	}

	return conf, nil
}
