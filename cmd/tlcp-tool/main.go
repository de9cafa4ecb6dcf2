// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// tlcp-tool sends messages to and receives updates from a TLCP server.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/scheduler"
	"github.com/tlcp-go/tlcp/pkg/session"
)

// printUsage of tlcp-tool and exit with an error code afterwards.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s send|send-dir|subscribe:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s send configuration.toml [sequence]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Sends each line of stdin as a message, optionally within the named sequence.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s send-dir configuration.toml directory\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Watches the directory and sends the content of each new file as a message.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s subscribe configuration.toml mode group schema\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Subscribes to the item group and prints each update to stdout.\n\n")

	os.Exit(1)
}

// printFatal logs an error and exits.
func printFatal(err error, msg string) {
	log.WithError(err).Fatal(msg)
}

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signal.Notify(signalSyn, os.Interrupt)
	<-signalSyn
}

// tool is a connected Client together with its configuration's resources.
type tool struct {
	client   *session.Client
	mux      scheduler.Multiplexer
	recorder *recorder
	profile  interface{ Stop() }
}

// startTool parses the configuration file and connects a Client. A dataPrinter gets the configured recorder.
func startTool(filename string, listener session.ClientListener) *tool {
	s, err := parseConfig(filename)
	if err != nil {
		printFatal(err, "Failed to parse config")
	}

	t := &tool{mux: s.mux}
	if s.profiling {
		t.profile = profile.Start(profile.ProfilePath("."))
	}

	if dp, ok := listener.(*dataPrinter); ok && s.record != "" {
		if t.recorder, err = newRecorder(s.record); err != nil {
			printFatal(err, "Opening record file errored")
		}
		dp.recorder = t.recorder
		log.WithField("file", s.record).Info("Recording updates")
	}

	var opts []session.Option
	if s.mux != nil {
		opts = append(opts, session.WithMultiplexer(s.mux))
	}

	if t.client, err = session.NewClient(s.client, opts...); err != nil {
		printFatal(err, "Creating client errored")
	}
	if listener != nil {
		if err := t.client.AddListener(listener); err != nil {
			printFatal(err, "Registering listener errored")
		}
	}
	if err := t.client.Connect(); err != nil {
		printFatal(err, "Connecting errored")
	}
	return t
}

// stop the Client and release all resources.
func (t *tool) stop() {
	log.Info("Shutting down..")

	if err := t.client.Close(); err != nil {
		log.WithError(err).Warn("Closing client errored")
	}
	if t.mux != nil {
		if err := t.mux.Close(); err != nil {
			log.WithError(err).Warn("Closing scheduler errored")
		}
	}
	if t.recorder != nil {
		if err := t.recorder.Close(); err != nil {
			log.WithError(err).Warn("Closing record file errored")
		}
	}
	if t.profile != nil {
		t.profile.Stop()
	}
}

func main() {
	if len(os.Args) < 3 {
		printUsage()
	}

	switch os.Args[1] {
	case "send":
		sendLines(os.Args[2:])

	case "send-dir":
		startExchange(os.Args[2:])

	case "subscribe":
		subscribe(os.Args[2:])

	default:
		printUsage()
	}
}
