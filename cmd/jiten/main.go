// Command jiten manages an offline Japanese dictionary: it imports
// Yomitan dictionary archives into a local SQLite store and looks words
// up with deinflection-aware matching.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/importer"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Offline Japanese dictionary with Yomitan archive import.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the SQLite database `FILE`",
				Value:   defaultDBPath(),
				EnvVars: []string{"JITEN_DB"},
			},
		},
		Commands: []*cli.Command{
			importCommand,
			listCommand,
			deleteCommand,
			swapCommand,
			enableCommand,
			disableCommand,
			searchCommand,
			segmentCommand,
			readCommand,
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultDBPath() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".jiten", "jiten.db")
	}
	return "jiten.db"
}

// openStore opens the database named by the --db flag, creating its
// directory and schema as needed.
func openStore(c *cli.Context) (*db.Store, *sql.DB, error) {
	path := c.String("db")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return db.NewStore(conn), conn, nil
}

func dictIDArg(c *cli.Context, pos int) (int64, error) {
	id, err := strconv.ParseInt(c.Args().Get(pos), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid dictionary id %q", c.Args().Get(pos))
	}
	return id, nil
}

var importCommand = &cli.Command{
	Name:      "import",
	Usage:     "Import Yomitan dictionary archives",
	ArgsUsage: "ARCHIVE [ARCHIVE...]",
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("import: no archive given")
		}
		store, conn, err := openStore(c)
		if err != nil {
			return err
		}
		defer conn.Close()

		im := importer.New(store)
		for _, path := range c.Args().Slice() {
			id, err := im.ImportArchive(c.Context, path)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			d, err := store.Dictionary(c.Context, id)
			if err != nil {
				return err
			}
			fmt.Printf("imported %s (%s) as dictionary %d\n", d.Title, d.Revision, id)
		}
		return nil
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List imported dictionaries by priority",
	Action: func(c *cli.Context) error {
		store, conn, err := openStore(c)
		if err != nil {
			return err
		}
		defer conn.Close()

		dicts, err := store.Dictionaries(c.Context)
		if err != nil {
			return err
		}
		tbl := table.New("PRIORITY", "ID", "TITLE", "REVISION", "FORMAT", "ENABLED", "TERMS")
		tbl.WithWriter(os.Stdout)
		for _, d := range dicts {
			n, err := store.TermCount(c.Context, d.ID)
			if err != nil {
				return err
			}
			tbl.AddRow(d.Priority, d.ID, d.Title, d.Revision, d.Version, d.Enabled, n)
		}
		tbl.Print()
		return nil
	},
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "Delete an imported dictionary and all its entries",
	ArgsUsage: "ID",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("delete: expected exactly one dictionary id")
		}
		id, err := dictIDArg(c, 0)
		if err != nil {
			return err
		}
		store, conn, err := openStore(c)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := store.DeleteDictionary(c.Context, id); err != nil {
			return err
		}
		fmt.Printf("deleted dictionary %d\n", id)
		return nil
	},
}

var swapCommand = &cli.Command{
	Name:      "swap",
	Usage:     "Swap the priorities of two dictionaries",
	ArgsUsage: "ID ID",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return fmt.Errorf("swap: expected two dictionary ids")
		}
		a, err := dictIDArg(c, 0)
		if err != nil {
			return err
		}
		b, err := dictIDArg(c, 1)
		if err != nil {
			return err
		}
		store, conn, err := openStore(c)
		if err != nil {
			return err
		}
		defer conn.Close()

		return store.SwapPriorities(c.Context, a, b)
	},
}

var enableCommand = &cli.Command{
	Name:      "enable",
	Usage:     "Include a dictionary in searches",
	ArgsUsage: "ID",
	Action:    setEnabledAction(true),
}

var disableCommand = &cli.Command{
	Name:      "disable",
	Usage:     "Exclude a dictionary from searches without deleting it",
	ArgsUsage: "ID",
	Action:    setEnabledAction(false),
}

func setEnabledAction(enabled bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("expected exactly one dictionary id")
		}
		id, err := dictIDArg(c, 0)
		if err != nil {
			return err
		}
		store, conn, err := openStore(c)
		if err != nil {
			return err
		}
		defer conn.Close()

		return store.SetEnabled(c.Context, id, enabled)
	}
}
