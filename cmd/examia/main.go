// Package main provides the examia CLI: browse the question catalog, and as an
// operator add, delete and upload, against the catalog server or a local replica.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"examia/internal/client"
	"examia/internal/config"
	"examia/internal/localstore"
	"examia/internal/logger"
	"examia/internal/model"
	"examia/internal/replica"
	"examia/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:           "examia",
	Short:         "EXAMIA question catalog client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as the operator and cache the capability",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the cached capability",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active authority and login state",
	RunE:  runStatus,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List questions matching every given filter",
	RunE:  runQuery,
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List bucket names (chapters or papers) under a subject, year and mode",
	RunE:  runBuckets,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Insert a question, optionally uploading a solution image first",
	Long: `Insert a question, optionally uploading a solution image first.

Examples:
  examia add --subject physics --year 2024 --mode chapters --bucket Kinematics --question "Q1?"
  examia add --subject physics --year 2024 --mode papers --bucket "Paper 1" --question "Q?" --image sol.png`,
	RunE: runAdd,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a question by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a solution image and print its locator",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var replicaCmd = &cobra.Command{
	Use:   "replica",
	Short: "Local replica commands",
}

var replicaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard local changes and reseed the replica from the baseline",
	RunE:  runReplicaReset,
}

var replicaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the replica in baseline format",
	RunE:  runReplicaExport,
}

// fsys is the filesystem every command reads and writes through.
var fsys afero.Fs = afero.NewOsFs()

var (
	verbose bool

	loginIdentity string
	loginSecret   string

	filterSubject string
	filterYear    int
	filterMode    string
	filterBucket  string
	queryJSON     bool

	addQuestion string
	addSolution string
	addImage    string
	addMime     string

	uploadMime string

	resetYes     bool
	exportOutput string
)

func addFilterFlags(cmd *cobra.Command, withBucket bool) {
	cmd.Flags().StringVar(&filterSubject, "subject", "", "Subject")
	cmd.Flags().IntVar(&filterYear, "year", 0, "Exam year")
	cmd.Flags().StringVar(&filterMode, "mode", "", "chapters or papers")
	if withBucket {
		cmd.Flags().StringVar(&filterBucket, "bucket", "", "Chapter or paper title")
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")

	loginCmd.Flags().StringVarP(&loginIdentity, "identity", "u", "", "Operator identity (email)")
	loginCmd.Flags().StringVar(&loginSecret, "secret", "", "Operator secret (prompted when omitted)")
	loginCmd.MarkFlagRequired("identity")

	addFilterFlags(queryCmd, true)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output as JSON")

	addFilterFlags(bucketsCmd, false)

	addFilterFlags(addCmd, true)
	addCmd.Flags().StringVarP(&addQuestion, "question", "q", "", "Question text")
	addCmd.Flags().StringVarP(&addSolution, "solution", "a", "", "Solution text")
	addCmd.Flags().StringVar(&addImage, "image", "", "Solution image file to upload")
	addCmd.Flags().StringVar(&addMime, "mime", "", "Image content type hint")

	uploadCmd.Flags().StringVar(&uploadMime, "mime", "", "Image content type hint")

	replicaResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")
	replicaExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (defaults to stdout)")

	replicaCmd.AddCommand(replicaResetCmd)
	replicaCmd.AddCommand(replicaExportCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(bucketsCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(replicaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openSession wires a Session from configuration. The caller must Close it.
func openSession(ctx context.Context) (*client.Session, *config.ClientConfig, error) {
	home, _ := os.UserHomeDir()
	cfg, err := config.LoadClient(home)
	if err != nil {
		return nil, nil, err
	}

	log := zap.NewNop()
	if verbose {
		if log, err = logger.New("development", nil); err != nil {
			return nil, nil, err
		}
	}

	var store localstore.Store
	if cfg.RedisURL != "" {
		store, err = localstore.NewRedisStore(ctx, cfg.RedisURL)
	} else {
		store, err = localstore.NewFileStore(fsys, cfg.StateDir)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open local state: %w", err)
	}

	baseline, err := replica.LoadBaseline(fsys, cfg.BaselinePath)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	assets, err := storage.NewLocal(fsys, cfg.AssetsDir, "")
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	sess, err := client.Open(ctx, client.Options{
		Config:  cfg,
		Store:   store,
		Replica: replica.NewManager(store, baseline, log),
		Assets:  assets,
		Logger:  log,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return sess, cfg, nil
}

// withSession runs fn against a freshly opened session and always closes it.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *client.Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func currentFilter() model.Filter {
	return model.Filter{
		Subject: filterSubject,
		Year:    filterYear,
		Mode:    model.Mode(filterMode),
		Bucket:  filterBucket,
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readImage(path, mime string) (model.UploadRequest, error) {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return model.UploadRequest{}, fmt.Errorf("read image: %w", err)
	}
	return model.UploadRequest{
		ImageData: base64.StdEncoding.EncodeToString(b),
		FileName:  filepath.Base(path),
		MimeType:  mime,
	}, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	secret := loginSecret
	if secret == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Secret: ")
		var err error
		if secret, err = readLine(cmd.InOrStdin()); err != nil {
			return err
		}
	}
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		if err := s.Login(ctx, loginIdentity, secret); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in (%s).\n", s.Authority())
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		if err := s.Logout(ctx); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, cfg, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Authority:\t%s\n", s.Authority())
	if s.Authority() == client.AuthorityRemote {
		fmt.Fprintf(w, "Backend:\t%s\n", cfg.BackendURL)
	}
	fmt.Fprintf(w, "Logged in:\t%t\n", s.LoggedIn())
	fmt.Fprintf(w, "State:\t%s\n", cfg.StateDir)
	return w.Flush()
}

func runQuery(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		res, err := s.Query(ctx, currentFilter())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if queryJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		if res.Source == client.AuthorityReplica && s.Authority() == client.AuthorityRemote {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: catalog unreachable, showing local replica")
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSUBJECT\tYEAR\tMODE\tBUCKET\tQUESTION")
		for _, q := range res.Questions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", q.ID, q.Subject, q.Year, q.Mode, q.Bucket, q.Question)
		}
		return w.Flush()
	})
}

func runBuckets(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		names, source, err := s.Buckets(ctx, currentFilter())
		if err != nil {
			return err
		}
		if source == client.AuthorityReplica && s.Authority() == client.AuthorityRemote {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: catalog unreachable, showing local replica")
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string) error {
	q := model.Question{
		Subject:  filterSubject,
		Year:     filterYear,
		Mode:     model.Mode(filterMode),
		Bucket:   filterBucket,
		Question: addQuestion,
		Solution: addSolution,
	}
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		out := cmd.OutOrStdout()
		if addImage == "" {
			id, err := s.Insert(ctx, q)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, id)
			return nil
		}

		img, err := readImage(addImage, addMime)
		if err != nil {
			return err
		}
		id, asset, err := s.InsertWithImage(ctx, q, img)
		if err != nil {
			if asset != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "image was stored at %s but the question was not saved\n", asset.URL)
			}
			return err
		}
		fmt.Fprintln(out, id)
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		if err := s.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func runUpload(cmd *cobra.Command, args []string) error {
	img, err := readImage(args[0], uploadMime)
	if err != nil {
		return err
	}
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		asset, err := s.Upload(ctx, img)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "URL:\t%s\n", asset.URL)
		fmt.Fprintf(w, "Content-Type:\t%s\n", asset.ContentType)
		fmt.Fprintf(w, "Path:\t%s\n", asset.StoragePath)
		return w.Flush()
	})
}

func runReplicaReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		fmt.Fprint(cmd.OutOrStdout(), "This discards every local change to the replica. Type \"yes\" to continue: ")
		answer, err := readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		if err := s.ResetReplica(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Replica reset to baseline.")
		return nil
	})
}

func runReplicaExport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *client.Session) error {
		if exportOutput == "" {
			return s.ExportReplica(ctx, cmd.OutOrStdout())
		}
		f, err := fsys.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		if err := s.ExportReplica(ctx, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}
