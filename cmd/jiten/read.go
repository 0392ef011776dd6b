package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/urfave/cli/v2"

	"github.com/japaniel/jiten/pkg/analyze"
	"github.com/japaniel/jiten/pkg/glossary"
	"github.com/japaniel/jiten/pkg/search"
)

// maxArticleSize caps fetched HTML to keep untrusted pages from exhausting
// memory.
const maxArticleSize = 10 * 1024 * 1024

var readCommand = &cli.Command{
	Name:      "read",
	Usage:     "Fetch an article, tokenize it, and gloss its vocabulary",
	ArgsUsage: "URL",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "sentences",
			Usage: "print the tokenized sentences instead of the vocabulary list",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("read: expected exactly one URL")
		}
		pageURL := c.Args().First()

		body, err := fetchArticle(c, pageURL)
		if err != nil {
			return err
		}
		// Drop furigana before extraction so readings are not duplicated
		// into the text.
		body = analyze.SanitizeRuby(body)

		parsedURL, err := url.Parse(pageURL)
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}
		article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
		if err != nil {
			return fmt.Errorf("extract article: %w", err)
		}
		fmt.Printf("%s\n\n", article.Title)

		analyzer, err := analyze.NewAnalyzer()
		if err != nil {
			return fmt.Errorf("init analyzer: %w", err)
		}
		sentences := analyzer.AnalyzeDocument(article.TextContent)

		if c.Bool("sentences") {
			for _, s := range sentences {
				surfaces := make([]string, 0, len(s.Tokens))
				for _, t := range s.Tokens {
					surfaces = append(surfaces, t.Surface)
				}
				fmt.Println(strings.Join(surfaces, " "))
			}
			return nil
		}

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

		seen := make(map[string]bool)
		for _, s := range sentences {
			for _, tok := range s.Tokens {
				if !tok.IsContentWord() || seen[tok.Lemma] {
					continue
				}
				seen[tok.Lemma] = true

				terms, err := engine.Search(c.Context, tok.Lemma, ids)
				if err != nil {
					return err
				}
				if len(terms) == 0 {
					continue
				}
				t := terms[0]
				gloss := firstLine(glossary.Flatten(t.Glossary))
				fmt.Printf("%s [%s]  %s\n", t.Expression, t.Reading, gloss)
			}
		}
		return nil
	},
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func fetchArticle(c *cli.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(c.Context, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// Some hosts reject requests without a browser User-Agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxArticleSize {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", pageURL, maxArticleSize)
	}
	return body, nil
}
