// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
)

// dataPrinter prints each data notification to stdout and records it, if configured.
type dataPrinter struct {
	statusLogger

	recorder *recorder
}

func (dp *dataPrinter) OnData(line string) {
	fmt.Println(line)

	if dp.recorder == nil {
		return
	}
	if err := dp.recorder.record(line); err != nil {
		log.WithError(err).Error("Recording update errored, stopping to record")
		dp.recorder = nil
	}
}

// subscribe for the "subscribe" CLI option, until SIGINT.
func subscribe(args []string) {
	if len(args) != 4 {
		printUsage()
	}

	dp := &dataPrinter{}
	t := startTool(args[0], dp)
	defer t.stop()

	sub := tlcp.Subscription{
		Mode:   args[1],
		Group:  args[2],
		Schema: args[3],
	}
	if sub.Mode != "RAW" {
		sub.Snapshot = "true"
	}
	subID, err := t.client.Subscribe(sub)
	if err != nil {
		printFatal(err, "Subscribing errored")
	}

	log.WithFields(log.Fields{
		"subscription": subID,
		"group":        sub.Group,
	}).Info("Subscribed")

	waitSigint()
}
