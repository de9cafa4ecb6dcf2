// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
)

// exchange sends files dropped into a directory as messages.
type exchange struct {
	directory  string
	sequence   string
	knownFiles sync.Map
	tool       *tool
	watcher    *fsnotify.Watcher
	outcomes   sync.WaitGroup

	closeChan chan os.Signal
}

// startExchange for the "send-dir" CLI option, until SIGINT.
func startExchange(args []string) {
	if len(args) != 2 {
		printUsage()
	}

	var (
		configFile = args[0]
		directory  = args[1]

		err error
	)

	ex := &exchange{
		directory: directory,
		sequence:  "send_dir",
		closeChan: make(chan os.Signal, 1),
	}

	signal.Notify(ex.closeChan, os.Interrupt)

	if ex.watcher, err = fsnotify.NewWatcher(); err != nil {
		printFatal(err, "Starting file watcher errored")
	}
	if err = ex.watcher.Add(directory); err != nil {
		printFatal(err, "Adding directory to file watcher errored")
	}

	ex.tool = startTool(configFile, statusLogger{})
	ex.handler()
}

// cleanFilepath creates a relative path from the initial path to a new file's path.
func (ex *exchange) cleanFilepath(f string) string {
	rel, err := filepath.Rel(ex.directory, f)
	if err != nil {
		log.WithField("path", f).WithError(err).Fatal("Failed to clean file path")
	}
	return rel
}

func (ex *exchange) handler() {
	defer func() {
		_ = ex.watcher.Close()

		// Closing aborts each unresolved message.
		ex.tool.stop()
		ex.outcomes.Wait()
	}()

	for {
		select {
		case <-ex.closeChan:
			log.Info("Received interrupt signal")
			return

		case e, ok := <-ex.watcher.Events:
			if !ok {
				log.Error("fsnotify's Event channel was closed")
				return
			}

			if e.Op&fsnotify.Create == 0 {
				log.WithFields(log.Fields{
					"file":      e.Name,
					"operation": e.Op.String(),
				}).Debug("Ignoring fsnotify event")
				continue
			}

			if _, known := ex.knownFiles.LoadOrStore(ex.cleanFilepath(e.Name), struct{}{}); known {
				log.WithField("file", e.Name).Debug("Skipping file; already known")
				continue
			}

			ex.sendNewFile(e)

		case err, ok := <-ex.watcher.Errors:
			if !ok {
				log.Error("fsnotify's Errors channel was closed")
				return
			}

			log.WithError(err).Error("fsnotify errored")
			return
		}
	}
}

// sendNewFile as a message. A file might still be written while its Create event arrives, thus reading is retried.
func (ex *exchange) sendNewFile(e fsnotify.Event) {
	for i := 0; i < 5; i++ {
		data, err := os.ReadFile(e.Name)
		if err != nil || len(data) == 0 {
			log.WithError(err).WithField("file", e.Name).Warn("Reading file errored, retrying..")
			time.Sleep(time.Duration(math.Pow(2, float64(i))) * 100 * time.Millisecond)
			continue
		}

		msg := tlcp.Message{
			Text:     string(data),
			Sequence: ex.sequence,
			Unquoted: true,
		}

		ex.outcomes.Add(1)
		if err := ex.tool.client.SendMessage(msg, outcomeLogger{wg: &ex.outcomes}); err != nil {
			ex.outcomes.Done()
			log.WithError(err).WithField("file", e.Name).Error("Sending file errored")
		} else {
			log.WithFields(log.Fields{
				"file": e.Name,
				"size": len(data),
			}).Info("Sent file")
		}
		return
	}

	log.WithField("file", e.Name).Error("Failed to process file, giving up.")
}
