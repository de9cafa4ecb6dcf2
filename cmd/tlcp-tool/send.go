// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
)

// sendLines for the "send" CLI option. It returns after each message's outcome.
func sendLines(args []string) {
	if len(args) != 1 && len(args) != 2 {
		printUsage()
	}

	var sequence string
	if len(args) == 2 {
		sequence = args[1]
	}

	t := startTool(args[0], statusLogger{})
	defer t.stop()

	var wg sync.WaitGroup
	ol := outcomeLogger{wg: &wg}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		wg.Add(1)
		if err := t.client.SendMessage(tlcp.Message{Text: line, Sequence: sequence}, ol); err != nil {
			wg.Done()
			log.WithError(err).WithField("line", line).Error("Sending message errored")
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Error("Reading stdin errored")
	}

	wg.Wait()
}
