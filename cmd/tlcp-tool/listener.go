// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/session"
)

// statusLogger logs a Client's status changes and errors.
type statusLogger struct {
	session.NopClientListener
}

func (statusLogger) OnStatusChange(status session.Status) {
	log.WithField("status", status).Info("Status changed")
}

func (statusLogger) OnServerError(code int, message string) {
	log.WithFields(log.Fields{
		"code":    code,
		"message": message,
	}).Error("Server ended the session")
}

func (statusLogger) OnRequestError(request string, code int, message string) {
	log.WithFields(log.Fields{
		"request": request,
		"code":    code,
		"message": message,
	}).Warn("Request was refused")
}

// outcomeLogger logs the outcome of each message and counts down a WaitGroup.
type outcomeLogger struct {
	wg *sync.WaitGroup
}

func (ol outcomeLogger) done(message string, fields log.Fields, msg string) {
	defer ol.wg.Done()

	if len(message) > 32 {
		message = message[:32] + ".."
	}
	fields["message"] = message
	log.WithFields(fields).Info(msg)
}

func (ol outcomeLogger) OnProcessed(message, response string) {
	ol.done(message, log.Fields{"response": response}, "Message was processed")
}

func (ol outcomeLogger) OnDeny(message string, code int, reason string) {
	ol.done(message, log.Fields{"code": code, "reason": reason}, "Message was denied")
}

func (ol outcomeLogger) OnError(message string, code int, reason string) {
	ol.done(message, log.Fields{"code": code, "reason": reason}, "Message errored")
}

func (ol outcomeLogger) OnDiscarded(message string) {
	ol.done(message, log.Fields{}, "Message was discarded")
}

func (ol outcomeLogger) OnAbort(message string, sentOnNetwork bool) {
	ol.done(message, log.Fields{"sent": sentOnNetwork}, "Message was aborted")
}
