/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main is a chat process that reads from stdin and writes to
// stdout, or that serves an MQTT broker or WebSocket clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Comcast/chatter/config"
	"github.com/Comcast/chatter/core"
	"github.com/Comcast/chatter/extensions"
	"github.com/Comcast/chatter/interpreters"
	"github.com/Comcast/chatter/sio"
	"github.com/Comcast/chatter/storage"
	"github.com/Comcast/chatter/storage/bolt"
	"github.com/Comcast/chatter/storage/jsonstore"
	"github.com/Comcast/chatter/util"

	"go.uber.org/zap"
)

func main() {
	var (
		coupling = flag.String("io", "std", `IO protocol: "std", "mq", or "ws"`)
		confFile = flag.String("c", "", "Optional config filename (YAML)")
		corpus   = flag.String("corpus", "", "Additional comma-separated category files or directories")
		store    = flag.String("storage", "", "Session storage filename (overrides config; .json for a JSON file)")
		scripts  = flag.Bool("scripts", false, "Enable script tags (overrides config)")
		verbose  = flag.Bool("v", false, "Verbose")
		help     = flag.Bool("h", false, "Get usage")
	)

	flag.Parse()

	if *help {
		flag.PrintDefaults()
		for _, name := range []string{"std", "mq", "ws"} {
			fmt.Fprintf(os.Stderr, "\n-io %s:\n\n", name)
			flags(name).PrintDefaults()
		}
		os.Exit(0)
	}

	logger, err := util.NewLogger(*verbose)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Coupling flags follow the others.  Non-nil args ask for
	// couplings rather than just their flags.
	args := append([]string{}, flag.Args()...)

	if err := run(logger, *coupling, *confFile, *corpus, *store, *scripts, args); err != nil {
		logger.Fatal("chatter failed", zap.Error(err))
	}
}

func flags(coupling string) *flag.FlagSet {
	switch coupling {
	case "mq", "mqtt":
		_, fs := NewMQTTCouplings(context.Background(), nil, nil)
		return fs
	case "ws":
		_, fs := NewWebSocketCouplings(context.Background(), nil, nil)
		return fs
	}
	_, fs := NewStdCouplings(nil, nil)
	return fs
}

func openStorage(ctx context.Context, filename string, logger *zap.Logger) (storage.Storage, error) {
	var s storage.Storage
	if strings.HasSuffix(filename, ".json") {
		s = jsonstore.NewJSONStore(filename, logger)
	} else {
		b, err := bolt.NewStorage(filename, logger)
		if err != nil {
			return nil, err
		}
		s = b
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func run(logger *zap.Logger, coupling, confFile, corpus, store string, scripts bool, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		select {
		case <-ctx.Done():
		case sig := <-sigs:
			logger.Info("signal", zap.String("signal", sig.String()))
			cancel()
		}
	}()

	conf := config.Default()
	if confFile != "" {
		var err error
		if conf, err = config.Load(confFile); err != nil {
			return err
		}
	}
	if store != "" {
		conf.Storage = store
	}
	if scripts {
		conf.Scripts = true
	}

	opts := []core.Option{core.WithLogger(logger)}

	if conf.Storage != "" {
		s, err := openStorage(ctx, conf.Storage, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Close(context.Background()); err != nil {
				logger.Error("storage close", zap.Error(err))
			}
		}()
		opts = append(opts, core.WithStorage(s))
	}

	if conf.Scripts {
		opts = append(opts, core.WithInterpreters(interpreters.Standard(logger)))
	}

	e, err := core.New(conf, opts...)
	if err != nil {
		return err
	}

	if err = extensions.New().Register(e); err != nil {
		return err
	}

	filenames := conf.Corpus
	if corpus != "" {
		filenames = append(filenames, strings.Split(corpus, ",")...)
	}
	for _, filename := range filenames {
		n, err := e.Learn(ctx, strings.TrimSpace(filename))
		if err != nil {
			return err
		}
		logger.Info("corpus", zap.String("filename", filename), zap.Int("categories", n))
	}

	var c sio.Couplings
	switch coupling {
	case "std":
		std, _ := NewStdCouplings(logger, args)
		go func() {
			<-std.InputEOF
			logger.Debug("input EOF")
		}()
		c = std
	case "mq", "mqtt":
		c, _ = NewMQTTCouplings(ctx, logger, args)
	case "ws":
		c, _ = NewWebSocketCouplings(ctx, logger, args)
	default:
		return fmt.Errorf("unknown io: '%s'", coupling)
	}

	return sio.Run(ctx, e, c, logger)
}
