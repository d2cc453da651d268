/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package main is a command-line utility for examining a corpus.
//
//	corpustool analyze corpus/
//	corpustool match -input 'my name is Ada' corpus/
//	corpustool dot corpus/ | dot -Tpng > trie.png
//	corpustool mermaid corpus/
//	corpustool html greetings.yaml > greetings.html
//	corpustool yaml greetings.aiml > greetings.yaml
//	corpustool test -script names.yaml corpus/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Comcast/chatter/config"
	"github.com/Comcast/chatter/core"
	"github.com/Comcast/chatter/extensions"
	"github.com/Comcast/chatter/interpreters"
	"github.com/Comcast/chatter/loader"
	"github.com/Comcast/chatter/match"
	"github.com/Comcast/chatter/normalize"
	"github.com/Comcast/chatter/tools"
	"github.com/Comcast/chatter/tools/expect"
	"github.com/Comcast/chatter/util"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: corpustool COMMAND [FLAGS] FILE_OR_DIR...

Commands: analyze, match, dot, mermaid, html, yaml, test

`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var (
		cmd = os.Args[1]
		fs  = flag.NewFlagSet(cmd, flag.ExitOnError)

		input    = fs.String("input", "", "input for match")
		that     = fs.String("that", "*", "that for match")
		topic    = fs.String("topic", "*", "topic for match")
		emotion  = fs.String("emotion", "*", "emotion for match")
		bench    = fs.Int("bench", 0, "number of times to run match (and report time)")
		depth    = fs.Int("depth", 0, "maximum depth for dot")
		script   = fs.String("script", "", "expect session (YAML) for test")
		confFile = fs.String("c", "", "optional config (YAML) for test")
		verbose  = fs.Bool("v", false, "verbose")
	)

	fs.Parse(os.Args[2:])

	logger, err := util.NewLogger(*verbose)
	if err != nil {
		panic(err)
	}

	die := func(err error) {
		logger.Fatal(cmd, zap.Error(err))
	}

	cats, err := categories(fs.Args())
	if err != nil {
		die(err)
	}

	switch cmd {
	case "analyze":
		a, err := tools.Analyze(cats, extensionTags...)
		if err != nil {
			die(err)
		}
		js, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			die(err)
		}
		fmt.Printf("%s\n", js)
		if ps := a.Problems(); 0 < len(ps) {
			for _, p := range ps {
				fmt.Fprintf(os.Stderr, "problem: %s\n", p)
			}
			os.Exit(2)
		}

	case "match":
		g, err := graph(cats)
		if err != nil {
			die(err)
		}
		q := match.NewQuery(core.Path(normalize.Clean(*input), *that, *topic, *emotion))
		if 0 < *bench {
			then := time.Now()
			for i := 0; i < *bench; i++ {
				g.Evaluate(q.Path, match.NewQuery(q.Path), nil)
			}
			elapsed := time.Since(then)
			fmt.Fprintf(os.Stderr, "%d evaluations in %v (%v each)\n", *bench, elapsed, elapsed/time.Duration(*bench))
		}
		g.Evaluate(q.Path, q, nil)
		js, err := json.MarshalIndent(q, "", "  ")
		if err != nil {
			die(err)
		}
		fmt.Printf("%s\n", js)
		if q.Template == "" {
			os.Exit(2)
		}

	case "dot":
		g, err := graph(cats)
		if err != nil {
			die(err)
		}
		if err = tools.Dot(g, os.Stdout, &tools.DotOpts{MaxDepth: *depth, TemplateWidth: 40}); err != nil {
			die(err)
		}

	case "mermaid":
		if err = tools.Mermaid(cats, os.Stdout); err != nil {
			die(err)
		}

	case "html", "yaml":
		if len(fs.Args()) != 1 {
			die(fmt.Errorf("%s needs exactly one corpus file", cmd))
		}
		c, err := loader.ReadCorpus(fs.Arg(0))
		if err != nil {
			die(err)
		}
		if cmd == "html" {
			err = tools.RenderCorpusPage(c, fs.Arg(0), os.Stdout, nil)
		} else {
			err = tools.WriteYAML(c, os.Stdout)
		}
		if err != nil {
			die(err)
		}

	case "test":
		if err = test(logger, *confFile, *script, fs.Args()); err != nil {
			die(err)
		}
		logger.Info("passed", zap.String("script", *script))

	default:
		usage()
		os.Exit(1)
	}
}

var extensionTags = []string{"cronnext", "gensym"}

// categories reads every category file.
func categories(filenames []string) ([]*loader.Category, error) {
	var acc []*loader.Category
	for _, filename := range filenames {
		files, err := loader.Files(filename)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			cats, err := loader.ParseFile(f)
			if err != nil {
				return nil, err
			}
			acc = append(acc, cats...)
		}
	}
	return acc, nil
}

func graph(cats []*loader.Category) (*match.Graphmaster, error) {
	g := match.NewGraphmaster()
	for _, c := range cats {
		if err := g.Add(c.Path(), c.Template, c.Source); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", c.Source, c.Pattern, err)
		}
	}
	return g, nil
}

func test(logger *zap.Logger, confFile, script string, corpus []string) error {
	conf := config.Default()
	if confFile != "" {
		var err error
		if conf, err = config.Load(confFile); err != nil {
			return err
		}
	}

	opts := []core.Option{core.WithLogger(logger)}
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

	ctx := context.Background()
	for _, filename := range append(conf.Corpus, corpus...) {
		if _, err = e.Learn(ctx, filename); err != nil {
			return err
		}
	}

	s, err := expect.Read(script)
	if err != nil {
		return err
	}
	return s.Run(ctx, e, logger)
}
