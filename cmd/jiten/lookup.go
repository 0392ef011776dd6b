package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jiten/pkg/glossary"
	"github.com/japaniel/jiten/pkg/search"
)

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "Look up a word, deinflecting as needed",
	ArgsUsage: "TEXT",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of results",
			Value: search.DefaultMaxResults,
		},
		&cli.BoolFlag{
			Name:  "meta",
			Usage: "also print frequency and pitch metadata",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("search: expected exactly one query")
		}
		query := c.Args().First()

		store, conn, err := openStore(c)
		if err != nil {
			return err
		}
		defer conn.Close()

		ids, err := store.EnabledDictionaryIDs(c.Context)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no enabled dictionaries; run import first")
		}

		engine := search.NewEngine(store)
		engine.MaxResults = c.Int("limit")
		terms, err := engine.Search(c.Context, query, ids)
		if err != nil {
			return err
		}
		if len(terms) == 0 {
			fmt.Printf("no results for %q\n", query)
			return nil
		}

		titles := make(map[int64]string)
		dicts, err := store.Dictionaries(c.Context)
		if err != nil {
			return err
		}
		for _, d := range dicts {
			titles[d.ID] = d.Title
		}

		for _, t := range terms {
			head := t.Expression
			if t.Reading != "" && t.Reading != t.Expression {
				head = fmt.Sprintf("%s [%s]", t.Expression, t.Reading)
			}
			fmt.Printf("%s  (%s)\n", head, titles[t.DictionaryID])
			for _, line := range strings.Split(glossary.Flatten(t.Glossary), "\n") {
				if line != "" {
					fmt.Printf("  %s\n", line)
				}
			}
		}

		if c.Bool("meta") {
			exprs := make([]string, 0, len(terms))
			seen := make(map[string]bool)
			for _, t := range terms {
				if !seen[t.Expression] {
					seen[t.Expression] = true
					exprs = append(exprs, t.Expression)
				}
			}
			metas, err := engine.TermMeta(c.Context, exprs, ids)
			if err != nil {
				return err
			}
			for _, expr := range exprs {
				for _, m := range metas[expr] {
					fmt.Printf("%s  %s: %s\n", expr, m.Mode, string(m.Data))
				}
			}
		}
		return nil
	},
}

var segmentCommand = &cli.Command{
	Name:      "segment",
	Usage:     "Split Japanese text into dictionary words by longest match",
	ArgsUsage: "TEXT",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "first",
			Usage: "print only the first word",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("segment: expected exactly one text argument")
		}
		text := c.Args().First()

		store, conn, err := openStore(c)
		if err != nil {
			return err
		}
		defer conn.Close()

		ids, err := store.EnabledDictionaryIDs(c.Context)
		if err != nil {
			return err
		}
		engine := search.NewEngine(store)

		if c.Bool("first") {
			word, err := engine.FindFirstWord(c.Context, text, ids)
			if err != nil {
				return err
			}
			fmt.Println(word)
			return nil
		}

		words, err := engine.Segment(c.Context, text, ids)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(words, " "))
		return nil
	},
}
