package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/metcalfc/shu/internal/config"
	"github.com/metcalfc/shu/internal/navigator"
	"github.com/metcalfc/shu/internal/reader"
	"github.com/metcalfc/shu/internal/session"
	"github.com/metcalfc/shu/internal/state"
)

// app holds the flags and services shared by every command.
type app struct {
	cfgFile      string
	outputFormat string

	mgr    *config.Manager
	logger *slog.Logger
	store  *state.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shu [file]",
		Short: "Read novels chapter by chapter in the terminal",
		Long: `shu splits a novel into chapters and pages, remembers where you stopped
in every book and takes you back there next time.

Plain text (UTF-8, UTF-16 or GB18030), Markdown and EPUB files are supported.
Running shu with a file opens the reader, the same as "shu read".`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseOutputFormat(a.outputFormat); err != nil {
				return err
			}
			switch cmd.Name() {
			case "version", "init-config", "help":
				return nil
			}
			return a.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.read(cmd, args[0], readOptions{watch: true})
		},
	}

	root.PersistentFlags().StringVar(
		&a.cfgFile, "config", "", "config file (default: ./shu.yaml or "+config.DefaultPath()+")",
	)
	root.PersistentFlags().StringVarP(
		&a.outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)

	root.AddCommand(
		a.readCmd(),
		a.chaptersCmd(),
		a.pagesCmd(),
		a.searchCmd(),
		a.jumpCmd(),
		a.progressCmd(),
		a.initConfigCmd(),
		versionCmd(),
	)
	return root
}

// setup loads config and builds the logger and progress store. Bubbletea
// and fyne own the terminal, so read swaps the logger for a file later.
func (a *app) setup(stderr io.Writer) error {
	mgr, err := config.NewManager(a.cfgFile)
	if err != nil {
		return err
	}
	a.mgr = mgr
	a.logger = newLogger(stderr, mgr.Get().LogLevel())
	slog.SetDefault(a.logger)
	a.store = state.NewStore(mgr.Get().ProgressPath(), state.WithLogger(a.logger))
	a.store.Load()
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *app) format() outputFormat {
	f, _ := parseOutputFormat(a.outputFormat)
	return f
}

func (a *app) open(path string) (*session.Session, error) {
	return session.Open(path, a.store, a.mgr.Get(), a.logger)
}

type readOptions struct {
	watch bool
	fresh bool
}

func (a *app) readCmd() *cobra.Command {
	var opts readOptions
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Open the interactive reader at the saved position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.read(cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.watch, "watch", true, "reload when the file or config changes")
	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "forget the saved position and start at page 1")
	return cmd
}

func (a *app) read(cmd *cobra.Command, path string, opts readOptions) error {
	cfg := a.mgr.Get()
	logPath := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	a.logger = newLogger(logFile, cfg.LogLevel())
	slog.SetDefault(a.logger)
	a.store.SetLogger(a.logger)

	if opts.fresh {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if err := a.store.Clear(abs); err != nil {
			a.logger.Warn("failed to clear reading progress", "doc", abs, "error", err)
		}
	}

	sess, err := a.open(path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var reloads <-chan error
	if opts.watch {
		reloads, err = sess.Watch(ctx)
		if err != nil {
			a.logger.Warn("file watch unavailable", "error", err)
		}
		a.mgr.OnChange(func(c *config.Config) {
			if err := sess.SetConfig(c); err != nil {
				a.logger.Warn("failed to apply config change", "error", err)
			}
		})
		a.mgr.WatchConfig()
	}

	return runReader(ctx, sess, reloads)
}

func (a *app) chaptersCmd() *cobra.Command {
	var withStats bool
	cmd := &cobra.Command{
		Use:   "chapters <file>",
		Short: "List the chapters detected in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(args[0])
			if err != nil {
				return err
			}
			return writeChapters(cmd.OutOrStdout(), a.format(), sess.Navigator(), withStats)
		},
	}
	cmd.Flags().BoolVar(&withStats, "stats", false, "include chapter and page statistics")
	return cmd
}

func (a *app) pagesCmd() *cobra.Command {
	var chapterID int
	cmd := &cobra.Command{
		Use:   "pages <file>",
		Short: "List the pages of a file or of one chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(args[0])
			if err != nil {
				return err
			}
			nav := sess.Navigator()
			pages := nav.Pages().Pages()
			if chapterID > 0 {
				if _, ok := nav.Chapters().Get(chapterID); !ok {
					return fmt.Errorf("chapter %d: %w", chapterID, navigator.ErrChapterNotFound)
				}
				pages = nav.Pages().ChapterPages(chapterID)
			}
			return writePages(cmd.OutOrStdout(), a.format(), pages)
		},
	}
	cmd.Flags().IntVarP(&chapterID, "chapter", "c", 0, "only list pages of this chapter")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var inPages bool
	cmd := &cobra.Command{
		Use:   "search <file> <keyword>",
		Short: "Search chapter titles, or page text with --pages",
		Long: `Search chapter titles for a keyword, ignoring case. With --pages the
keyword is matched case sensitively against page titles and text.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(args[0])
			if err != nil {
				return err
			}
			nav := sess.Navigator()
			if inPages {
				return writePages(cmd.OutOrStdout(), a.format(), nav.SearchPages(sess.Path(), args[1]))
			}
			return writeChapterList(cmd.OutOrStdout(), a.format(), nav, nav.SearchChapters(sess.Path(), args[1]))
		},
	}
	cmd.Flags().BoolVar(&inPages, "pages", false, "search page text instead of chapter titles")
	return cmd
}

func (a *app) jumpCmd() *cobra.Command {
	var chapterID, pageID int
	var next, prev bool
	cmd := &cobra.Command{
		Use:   "jump <file>",
		Short: "Move the saved position and print the page",
		Long: `Move the saved reading position and print the page found there.
Without flags the current page is printed, starting the book if needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(args[0])
			if err != nil {
				return err
			}
			nav := sess.Navigator()
			doc := sess.Path()

			cur, err := nav.ContinueReading(doc)
			if err != nil {
				return err
			}
			pg := cur
			switch {
			case chapterID > 0:
				pg, err = nav.JumpToChapter(doc, chapterID)
			case pageID > 0:
				pg, err = nav.JumpToPage(doc, pageID)
			case next:
				pg, err = nav.NextPage(doc, cur.ID)
			case prev:
				pg, err = nav.PrevPage(doc, cur.ID)
			}
			if navigator.IsBoundary(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				pg, err = cur, nil
			}
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), a.format(), pg)
		},
	}
	cmd.Flags().IntVarP(&chapterID, "chapter", "c", 0, "jump to the first page of this chapter")
	cmd.Flags().IntVarP(&pageID, "page", "p", 0, "jump to this page")
	cmd.Flags().BoolVar(&next, "next", false, "move to the next page")
	cmd.Flags().BoolVar(&prev, "prev", false, "move to the previous page")
	cmd.MarkFlagsMutuallyExclusive("chapter", "page", "next", "prev")
	return cmd
}

func (a *app) progressCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "progress [file]",
		Short: "Show reading progress for every book or for one file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if clear {
					return errors.New("--clear needs a file")
				}
				return writeProgress(cmd.OutOrStdout(), a.format(), a.store)
			}
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if clear {
				return a.store.Clear(abs)
			}
			p, ok := a.store.Get(abs)
			if !ok {
				return fmt.Errorf("no reading progress for %s", abs)
			}
			return writeBookProgress(cmd.OutOrStdout(), a.format(), p, a.store.Stats(abs))
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "forget the saved position of the file")
	return cmd
}

func (a *app) initConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "shu %s (commit: %s, built: %s)\n", version, commit, date)
			for _, f := range reader.SupportedFormats() {
				fmt.Fprintf(w, "  %s\n", f)
			}
		},
	}
}
