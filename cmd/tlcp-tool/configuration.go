// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/scheduler"
	"github.com/tlcp-go/tlcp/pkg/session"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Client    session.Config
	Logging   logConf
	Scheduler schedulerConf
	Record    recordConf
	Debug     debugConf
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// schedulerConf describes the Scheduler-configuration block. A positive pool size runs the client on a
// scheduler.Pool instead of its own thread.
type schedulerConf struct {
	PoolSize int `toml:"pool-size"`
}

// recordConf describes the Record-configuration block. Data notifications are appended to the file, if set.
type recordConf struct {
	File string
}

// debugConf describes the Debug-configuration block.
type debugConf struct {
	Profile bool
}

// setup is the result of parsing a configuration file.
type setup struct {
	client    session.Config
	mux       scheduler.Multiplexer
	record    string
	profiling bool
}

// configureLogging based on the Logging-configuration block.
func configureLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.WithField("format", conf.Format).Warn("Unknown logging format")
	}
}

// parseConfig reads the given TOML configuration file.
func parseConfig(filename string) (s setup, err error) {
	var conf tomlConfig
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	configureLogging(conf.Logging)

	// The client section is validated by session.NewClient.
	if conf.Client.Server == "" {
		err = fmt.Errorf("client.server is empty")
		return
	}

	switch {
	case conf.Scheduler.PoolSize < 0:
		err = fmt.Errorf("scheduler.pool-size %d is negative", conf.Scheduler.PoolSize)
		return
	case conf.Scheduler.PoolSize > 0:
		s.mux = scheduler.NewPool(conf.Scheduler.PoolSize)
	}

	s.client = conf.Client
	s.record = conf.Record.File
	s.profiling = conf.Debug.Profile
	return
}
