// Package cmd implements the finsight command line application.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/config"
	"github.com/etnz/finsight/gemini"
	"github.com/etnz/finsight/links"
	"github.com/etnz/finsight/logging"
	"github.com/etnz/finsight/marketplace"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/report"
	"github.com/etnz/finsight/session"
	"github.com/etnz/finsight/store"
	"github.com/etnz/finsight/vault"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&analyzeCmd{}, "analysis")
	c.Register(&simulateCmd{}, "analysis")
	c.Register(&chatCmd{}, "analysis")

	c.Register(&indexCmd{}, "vault")
	c.Register(&vaultCmd{}, "vault")

	c.Register(&reportCmd{}, "reports")

	c.Register(&pluginsCmd{}, "marketplace")
	c.Register(&connectCmd{}, "marketplace")

	c.Register(&serveCmd{}, "server")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", config.DefaultPath(), "Path to the configuration file")
var workspace = flag.String("workspace", "", "Directory holding the saved reports and the vault, overrides the configuration")
var verbose = flag.Bool("v", false, "Log debug messages")

// app is the state shared by the commands: configuration, client and stores.
type app struct {
	cfg     *config.Config
	client  *gemini.Client
	vault   *vault.Vault
	reports *report.Store
	closers []io.Closer
}

// openApp loads the configuration, initializes the logs and opens the
// workspace. The caller must Close it.
func openApp() (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *workspace != "" {
		cfg.Storage.Workspace = *workspace
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	logs, err := logging.Init(logrus.StandardLogger(), cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, client: gemini.New(cfg.GeminiClient()), closers: []io.Closer{logs}}

	var vaultRepo store.Repository[finsight.VaultItem]
	var reportRepo store.Repository[finsight.SavedReport]
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		vaultRepo, reportRepo = store.NewMemory[finsight.VaultItem](), store.NewMemory[finsight.SavedReport]()
	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.Storage.Workspace, 0o755); err != nil {
			a.Close()
			return nil, fmt.Errorf("cannot create workspace: %w", err)
		}
		db, err := store.OpenDB(filepath.Join(cfg.Storage.Workspace, "finsight.db"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db)
		vaultRepo, reportRepo = store.NewSQLite[finsight.VaultItem](db, store.Vault), store.NewSQLite[finsight.SavedReport](db, store.Reports)
	default:
		vaultRepo = store.NewFile[finsight.VaultItem](cfg.Storage.Workspace, store.Vault)
		reportRepo = store.NewFile[finsight.SavedReport](cfg.Storage.Workspace, store.Reports)
	}
	logrus.WithFields(logrus.Fields{"driver": cfg.Storage.Driver, "workspace": cfg.Storage.Workspace}).Debug("workspace opened")

	a.vault = vault.New(vaultRepo, a.client, vault.WithMaxItems(cfg.Vault.MaxItems), vault.WithMaxBytes(cfg.Vault.MaxBytes))
	a.reports = report.New(reportRepo)
	return a, nil
}

// Close releases the workspace and the log file.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing: %v\n", err)
		}
	}
}

func (a *app) options() renderer.Options {
	return renderer.Options{Currency: a.cfg.Report.Currency}
}

// newSession returns a session over the workspace.
func (a *app) newSession() *session.Session {
	return session.New(a.client, a.vault, a.reports,
		session.WithConnector(&marketplace.MockConnector{Delay: a.cfg.Integrations.Delay}),
		session.WithFetcher(&links.Fetcher{Fetch: links.Cached(filepath.Join(os.TempDir(), "finsight-links"))}),
		session.WithRendering(a.options()))
}

// stringList is a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// readSources splits the arguments in files and links, and reads the files.
// Files are classified as t.
func readSources(args []string, t finsight.DocumentType) ([]finsight.Document, []finsight.Link, error) {
	var docs []finsight.Document
	var refs []finsight.Link
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			link, err := finsight.NewLink(arg)
			if err != nil {
				return nil, nil, err
			}
			refs = append(refs, link)
			continue
		}
		doc, err := finsight.ReadDocument(arg)
		if err != nil {
			return nil, nil, err
		}
		if t != "" {
			doc.Type = t
		}
		docs = append(docs, doc)
	}
	return docs, refs, nil
}

// errStatus prints err and returns the matching exit status.
func errStatus(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	if errors.Is(err, finsight.ErrConfiguration) {
		fmt.Fprintln(os.Stderr, "See `finsight topic config`.")
	}
	return subcommands.ExitFailure
}

// renderMarkdown styles markdown for the terminal, it is left as is when
// stdout is not a terminal.
func renderMarkdown(md string) string {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return md
	}
	width := 100
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	out, err := renderer.Terminal(md, width)
	if err != nil {
		return md
	}
	return out
}

func printMarkdown(md string) {
	fmt.Print(renderMarkdown(md))
}

func printTo(w io.Writer, md string) {
	fmt.Fprint(w, renderMarkdown(md))
}
